// Package influxdb provides InfluxDB connectivity for the car park core.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, non-blocking occupancy writes and health checks.
//
// Each entry or exit becomes one carpark_occupancy point tagged by location
// and action, so dashboards can chart availability over time per lot.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteOccupancy(influxdb.Occupancy{
//	    Location: "moondalup", Plate: "FAKE-042", Action: "entered",
//	    Occupied: 1, Capacity: 100, AvailableBays: 99, At: time.Now(),
//	})
package influxdb
