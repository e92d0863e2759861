package sensor

import (
	"context"
	"fmt"

	"github.com/nerrad567/carpark-core/internal/carpark"
)

// Triggers is the part of the MQTT client BindTrigger needs.
type Triggers interface {
	OnTrigger(location string, sensorID int, qos byte, detect func() error) error
}

// BindTrigger runs one detection on s for each message on
// carpark/{location}/sensor/{id}/detect.
//
// Detection errors are returned to the MQTT client, which logs them.
// ctx bounds every triggered detection.
func BindTrigger(ctx context.Context, bus Triggers, location string, s carpark.Sensor, qos byte) error {
	err := bus.OnTrigger(location, s.ID(), qos, func() error {
		if _, err := s.DetectVehicle(ctx); err != nil {
			return fmt.Errorf("sensor %d: %w", s.ID(), err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("binding sensor %d trigger: %w", s.ID(), err)
	}
	return nil
}
