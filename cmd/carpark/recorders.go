package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/carpark-core/internal/carpark"
	"github.com/nerrad567/carpark-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/carpark-core/internal/infrastructure/mqtt"
)

// occupancyWriter is the part of the InfluxDB client the recorder needs.
type occupancyWriter interface {
	WriteOccupancy(o influxdb.Occupancy)
}

// influxRecorder writes each lot change as a carpark_occupancy point.
type influxRecorder struct {
	w occupancyWriter
}

func (r influxRecorder) RecordEvent(_ context.Context, e carpark.Event) error {
	r.w.WriteOccupancy(influxdb.Occupancy{
		Location:      e.Location,
		Plate:         e.Plate,
		Action:        string(e.Action),
		Occupied:      e.Occupied,
		Capacity:      e.Capacity,
		AvailableBays: e.AvailableBays,
		At:            e.At,
	})
	return nil
}

// occupancyBus is the part of the MQTT client the occupancy recorder needs.
type occupancyBus interface {
	PublishOccupancy(o mqtt.Occupancy, qos byte) error
}

// occupancyPublisher publishes the latest lot change as a retained message
// on carpark/{location}/occupancy.
type occupancyPublisher struct {
	pub occupancyBus
	qos byte
}

func (p occupancyPublisher) RecordEvent(_ context.Context, e carpark.Event) error {
	o := mqtt.NewOccupancy(e.Location, e.Plate, string(e.Action), e.Occupied, e.Capacity, e.AvailableBays, e.At)
	if err := p.pub.PublishOccupancy(o, p.qos); err != nil {
		return fmt.Errorf("publishing occupancy: %w", err)
	}
	return nil
}
