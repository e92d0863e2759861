// Package display provides the boards a lot pushes occupancy updates to.
//
// A Board renders every key/value it receives as a "key: value" line and
// keeps two pieces of state of its own: a message and a power flag. All
// other keys (available_bays, temperature) are rendered and dropped.
//
// MQTTBoard additionally publishes its state as a retained JSON message on
// carpark/{location}/display/{id} so physical signage can mirror it.
package display
