package carpark

import (
	"context"
	"time"
)

// Action is the verb written to the activity log for a plate.
type Action string

// Activity log actions.
const (
	ActionEntered Action = "entered"
	ActionRemoved Action = "removed"
)

// Event describes one committed entry or exit.
type Event struct {
	Location      string
	Plate         string
	Action        Action
	Occupied      int
	Capacity      int
	AvailableBays int
	At            time.Time
}

// EventRecorder receives every committed Event after the activity log
// has been written. Errors are logged by the lot and do not fail the
// originating AddCar/RemoveCar.
type EventRecorder interface {
	RecordEvent(ctx context.Context, e Event) error
}

// EventRecorderFunc adapts a function to EventRecorder.
type EventRecorderFunc func(ctx context.Context, e Event) error

// RecordEvent implements EventRecorder.
func (f EventRecorderFunc) RecordEvent(ctx context.Context, e Event) error {
	return f(ctx, e)
}
