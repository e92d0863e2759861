// Package metrics exposes lot occupancy as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/carpark-core/internal/carpark"
)

const metricPrefix = "carpark_"

// Collector bundles the lot metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	EventsTotal   *prometheus.CounterVec
	OccupiedBays  *prometheus.GaugeVec
	AvailableBays *prometheus.GaugeVec
	CapacityBays  *prometheus.GaugeVec
}

// New constructs the lot metrics and registers them, together with the Go
// runtime and process collectors, in a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_total",
				Help: "Total entries and exits by lot and action",
			},
			[]string{"location", "action"},
		),
		OccupiedBays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "occupied_bays",
				Help: "Plates currently inside the lot, including any over capacity",
			},
			[]string{"location"},
		),
		AvailableBays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "available_bays",
				Help: "Free bays, floored at zero",
			},
			[]string{"location"},
		),
		CapacityBays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "capacity_bays",
				Help: "Configured lot capacity",
			},
			[]string{"location"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.EventsTotal,
		c.OccupiedBays,
		c.AvailableBays,
		c.CapacityBays,
	)
	return c
}

// Registry returns the registry the collector's metrics are registered in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Observe sets the occupancy gauges from a lot snapshot.
func (c *Collector) Observe(s carpark.Status) {
	c.OccupiedBays.WithLabelValues(s.Location).Set(float64(s.Occupied))
	c.AvailableBays.WithLabelValues(s.Location).Set(float64(s.AvailableBays))
	c.CapacityBays.WithLabelValues(s.Location).Set(float64(s.Capacity))
}

// RecordEvent counts a lot change and updates the occupancy gauges.
// It never fails.
func (c *Collector) RecordEvent(_ context.Context, e carpark.Event) error {
	c.EventsTotal.WithLabelValues(e.Location, string(e.Action)).Inc()
	c.Observe(carpark.Status{
		Location:      e.Location,
		Capacity:      e.Capacity,
		Occupied:      e.Occupied,
		AvailableBays: e.AvailableBays,
	})
	return nil
}

var _ carpark.EventRecorder = (*Collector)(nil)
