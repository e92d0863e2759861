package carpark

import "context"

// ComponentKind tags what a registered component is.
type ComponentKind int

// Component kinds accepted by Register.
const (
	KindUnknown ComponentKind = iota
	KindSensor
	KindDisplay
)

// String returns the kind name used in logs.
func (k ComponentKind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// Component is anything that can be registered with a lot.
type Component interface {
	ID() int
	Kind() ComponentKind
}

// Sensor detects vehicles and mutates the lot it was built for.
type Sensor interface {
	Component

	// IsActive reports the sensor's stored power flag. The lot does not
	// consult it.
	IsActive() bool

	// DetectVehicle runs one detection and returns the plate it acted on.
	DetectVehicle(ctx context.Context) (string, error)
}

// Display receives occupancy updates pushed by the lot.
//
// Update must not call back into AddCar, RemoveCar, RemoveChosen or
// UpdateDisplays: the lot holds its change lock while displays run.
type Display interface {
	Component
	Update(data map[string]any)
}
