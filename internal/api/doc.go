// Package api implements the read-only status HTTP server and WebSocket hub
// for the car park core.
//
// Routes live under /api/v1 (health, status, events, system and the panel
// socket at websocket.path), plus /metrics for Prometheus and the /panel
// page. Requests pass through chi's RequestID, an access log, panic
// recovery and the CORS origin list, which also gates socket upgrades.
//
// # Architecture
//
// The server never mutates the lot. Entries and exits only happen through
// sensors; the API reports what they did. The Hub is the bridge in the other
// direction: the lot pushes {available_bays, temperature} to it like any
// other display and it broadcasts the map on the "lot.updated" channel.
//
// # Graceful Degradation
//
// The activity repository, metrics collector, database and MQTT client are
// all optional. Endpoints backed by a missing dependency answer 503.
package api
