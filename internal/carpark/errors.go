package carpark

import "errors"

// Domain errors for the carpark package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, carpark.ErrPlateNotFound) {
//	    // vehicle already left
//	}
var (
	// ErrInvalidComponent is returned when registering something that is
	// neither a sensor nor a display.
	ErrInvalidComponent = errors.New("carpark: invalid component")

	// ErrPlateNotFound is returned when removing a plate that is not in the lot.
	ErrPlateNotFound = errors.New("carpark: plate not found")

	// ErrInvalidCapacity is returned when a lot is created with a negative capacity.
	ErrInvalidCapacity = errors.New("carpark: capacity must not be negative")

	// ErrMissingConfigKey is returned when a lot snapshot lacks a required key.
	ErrMissingConfigKey = errors.New("carpark: missing config key")
)
