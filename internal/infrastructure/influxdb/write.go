package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementOccupancy = "carpark_occupancy"
)

// Occupancy is one lot change as written to InfluxDB.
type Occupancy struct {
	Location      string
	Plate         string
	Action        string
	Occupied      int
	Capacity      int
	AvailableBays int
	At            time.Time
}

// WriteOccupancy records a lot entry or exit. The write is non-blocking.
//
// Tags are location and action; the plate is a field to keep series
// cardinality bounded by the number of lots.
func (c *Client) WriteOccupancy(o Occupancy) {
	if !c.IsConnected() {
		return
	}
	c.writes.WritePoint(occupancyPoint(o))
}

func occupancyPoint(o Occupancy) *write.Point {
	at := o.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		MeasurementOccupancy,
		map[string]string{
			"location": o.Location,
			"action":   o.Action,
		},
		map[string]any{
			"plate":          o.Plate,
			"occupied":       o.Occupied,
			"capacity":       o.Capacity,
			"available_bays": o.AvailableBays,
		},
		at,
	)
}
