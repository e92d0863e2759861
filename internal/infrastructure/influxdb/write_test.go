package influxdb

import (
	"testing"
	"time"

	"github.com/nerrad567/carpark-core/internal/infrastructure/config"
)

func TestOccupancyPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)
	p := occupancyPoint(Occupancy{
		Location:      "moondalup",
		Plate:         "FAKE-042",
		Action:        "removed",
		Occupied:      8,
		Capacity:      100,
		AvailableBays: 92,
		At:            at,
	})

	if p.Name() != MeasurementOccupancy {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementOccupancy)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["location"] != "moondalup" || tags["action"] != "removed" || len(tags) != 2 {
		t.Errorf("tags = %v", tags)
	}

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	want := map[string]any{
		"plate":          "FAKE-042",
		"occupied":       int64(8),
		"capacity":       int64(100),
		"available_bays": int64(92),
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %v (%T), want %v", k, fields[k], fields[k], v)
		}
	}
}

func TestOccupancyPoint_DefaultsTime(t *testing.T) {
	before := time.Now()
	p := occupancyPoint(Occupancy{Location: "x", Action: "entered"})
	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want now", p.Time())
	}
}

func TestWriteOptions(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantBatch uint
		wantFlush uint
	}{
		{"configured", config.InfluxDBConfig{BatchSize: 20, FlushInterval: 2}, 20, 2000},
		{"unset falls back", config.InfluxDBConfig{}, 100, 10000},
		{"negative falls back", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -5}, 100, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := writeOptions(tt.cfg)
			if got := opts.BatchSize(); got != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", got, tt.wantBatch)
			}
			if got := opts.FlushInterval(); got != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", got, tt.wantFlush)
			}
		})
	}
}
