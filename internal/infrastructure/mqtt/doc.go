// Package mqtt provides MQTT client connectivity for the car park core.
//
// A Client publishes retained lot state (occupancy, display boards),
// routes sensor trigger messages into detections, and announces the
// process on the status topic with a last will for crashes.
//
// # Architecture
//
// The broker is how the lot talks to hardware it does not own. Occupancy
// events and retained display state flow out; sensor trigger requests from
// physical loops or test harnesses flow in.
//
//	Lot ↔ MQTT Broker ↔ Gate controllers / signage / dashboards
//
// # Topics
//
//	carpark/{location}/sensor/{id}/detect   trigger a detection (inbound)
//	carpark/{location}/display/{id}         display state (retained)
//	carpark/{location}/occupancy            entry and exit events
//	carpark/system/status                   online/offline (retained, LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.OnTrigger("moondalup", 1, 1, func() error {
//	    _, err := entry.DetectVehicle(ctx)
//	    return err
//	})
package mqtt
