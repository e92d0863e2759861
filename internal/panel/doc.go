// Package panel serves the lot display web page as an embedded asset.
//
// The page shows the free bay count and temperature and keeps them current
// over the status API's WebSocket. It is the browser counterpart of the
// console board in the display package.
//
// Unknown paths fall back to index.html. Responses carry no-cache headers so
// a kiosk picks up a new build on reload.
package panel
