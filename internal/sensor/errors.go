package sensor

import "errors"

var (
	// ErrNoVehiclePresent is returned by an exit detection on an empty lot.
	ErrNoVehiclePresent = errors.New("sensor: no vehicle present")

	// ErrNilLot is returned when a sensor is built without a lot.
	ErrNilLot = errors.New("sensor: lot is required")
)
