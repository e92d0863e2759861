package mqtt

import "fmt"

// Topic prefixes for the car park bus.
//
// Lot topics use the scheme: carpark/{location}/{category}[/{id}[/{verb}]]
const (
	// TopicPrefix is the base for all car park topics.
	TopicPrefix = "carpark"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "carpark/system"
)

// Topics builds the topic names of one or more lots.
//
//	mqtt.Topics{}.SensorTrigger("moondalup", 1) // carpark/moondalup/sensor/1/detect
type Topics struct{}

// =============================================================================
// Lot Topics
// =============================================================================

// SensorTrigger returns the topic a sensor listens on for detection requests.
//
// Example: carpark/moondalup/sensor/1/detect
func (Topics) SensorTrigger(location string, sensorID int) string {
	return fmt.Sprintf("%s/%s/sensor/%d/detect", TopicPrefix, location, sensorID)
}

// Display returns the retained state topic of a display.
//
// Example: carpark/moondalup/display/1
func (Topics) Display(location string, displayID int) string {
	return fmt.Sprintf("%s/%s/display/%d", TopicPrefix, location, displayID)
}

// Occupancy returns the topic carrying entry and exit events for a lot.
//
// Example: carpark/moondalup/occupancy
func (Topics) Occupancy(location string) string {
	return fmt.Sprintf("%s/%s/occupancy", TopicPrefix, location)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: carpark/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllSensorTriggers returns a pattern matching every sensor trigger of a lot.
//
// Pattern: carpark/moondalup/sensor/+/detect
func (Topics) AllSensorTriggers(location string) string {
	return fmt.Sprintf("%s/%s/sensor/+/detect", TopicPrefix, location)
}
