// Package sensor provides the entry and exit sensors that feed a lot.
//
// Both variants share one detection sequence:
//
//	scan plate → announce → update lot
//
// An EntrySensor scans a synthetic plate ("FAKE-NNN") and adds it to the
// lot. An ExitSensor picks one of the plates currently inside and removes
// it, failing with ErrNoVehiclePresent when the lot is empty.
//
// A sensor holds a plain reference to its lot and never owns it. The
// active flag is stored and reported but does not gate detection.
//
// Sensors can be driven directly or bound to an MQTT trigger topic with
// BindTrigger so gate hardware can request a detection.
package sensor
