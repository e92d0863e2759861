package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxPayloadSize matches Mosquitto's default message_size_limit headroom.
const maxPayloadSize = 1 << 20

// Occupancy is the retained payload on carpark/{location}/occupancy: the
// latest entry or exit and the counts it left behind.
type Occupancy struct {
	Location      string `json:"location"`
	Plate         string `json:"plate"`
	Action        string `json:"action"`
	Occupied      int    `json:"occupied"`
	Capacity      int    `json:"capacity"`
	AvailableBays int    `json:"available_bays"`
	Timestamp     string `json:"timestamp"`
}

// NewOccupancy fills the timestamp from at in UTC RFC 3339.
func NewOccupancy(location, plate, action string, occupied, capacity, available int, at time.Time) Occupancy {
	return Occupancy{
		Location:      location,
		Plate:         plate,
		Action:        action,
		Occupied:      occupied,
		Capacity:      capacity,
		AvailableBays: available,
		Timestamp:     at.UTC().Format(time.RFC3339),
	}
}

// Publish sends payload on topic and waits for the broker ack.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkRoute(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := await(c.paho.Publish(topic, qos, retained, payload), ackTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// PublishState publishes v as retained JSON, so a subscriber joining
// later still sees the current lot or display state.
func (c *Client) PublishState(topic string, v any, qos byte) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrPublishFailed, topic, err)
	}
	return c.Publish(topic, payload, qos, true)
}

// PublishOccupancy publishes o on its lot's occupancy topic.
func (c *Client) PublishOccupancy(o Occupancy, qos byte) error {
	return c.PublishState(Topics{}.Occupancy(o.Location), o, qos)
}

// Subscribe routes messages matching topic (wildcards allowed) to handler.
// The route is replayed after every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkRoute(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := await(c.paho.Subscribe(topic, qos, c.dispatch(handler)), ackTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.mu.Lock()
	c.routes[topic] = route{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// OnTrigger runs detect for every message on the trigger topic of one
// sensor. Trigger payloads carry nothing: any message means "scan now".
func (c *Client) OnTrigger(location string, sensorID int, qos byte, detect func() error) error {
	return c.Subscribe(Topics{}.SensorTrigger(location, sensorID), qos, func(string, []byte) error {
		return detect()
	})
}

func checkRoute(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > 2 {
		return ErrInvalidQoS
	}
	return nil
}
