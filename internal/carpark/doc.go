// Package carpark models a single parking facility.
//
// A CarPark owns its capacity, the plates of the vehicles currently inside,
// the sensors and displays registered with it, and an append-only activity
// log on disk. It is the only component with real invariants:
//
//   - AvailableBays is max(0, capacity - len(plates)) and is never negative.
//   - Capacity is not enforced on entry; a lot can be over-committed and
//     only the reported availability floors at zero.
//   - Every AddCar/RemoveCar appends exactly one line to the activity log.
//
// # Data Flow
//
//	sensor.DetectVehicle ──▶ CarPark.AddCar / RemoveCar
//	                              │
//	                              ├──▶ Display.Update({available_bays, temperature})
//	                              ├──▶ activity log: "<plate> entered at 2006-01-02 15:04:05"
//	                              └──▶ EventRecorder fan-out (SQLite, metrics, MQTT, InfluxDB)
//
// # Lot Snapshot
//
// WriteConfig and FromConfig persist only {location, capacity, log_file}.
// Plates, sensors and displays are not part of the snapshot; a restored lot
// always starts empty.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Displays and recorders are
// notified outside the lot's lock.
package carpark
