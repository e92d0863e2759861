package display

import (
	"io"
	"time"

	"github.com/nerrad567/carpark-core/internal/carpark"
	"github.com/nerrad567/carpark-core/internal/infrastructure/mqtt"
)

// Publisher is the part of the MQTT client an MQTTBoard needs.
type Publisher interface {
	PublishState(topic string, v any, qos byte) error
}

// State is the retained payload published by an MQTTBoard.
type State struct {
	ID        int            `json:"id"`
	Message   string         `json:"message"`
	IsOn      bool           `json:"is_on"`
	Readings  map[string]any `json:"readings,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MQTTBoard is a Board that mirrors its state to the broker.
type MQTTBoard struct {
	*Board

	pub   Publisher
	topic string
	qos   byte
	now   func() time.Time
}

// NewMQTTBoard creates a board publishing to carpark/{location}/display/{id}.
// Rendering goes to io.Discard unless WithOutput is given.
func NewMQTTBoard(id int, lot Lot, pub Publisher, qos byte, opts ...Option) *MQTTBoard {
	location := ""
	if lot != nil {
		location = lot.Location()
	}
	opts = append([]Option{WithOutput(io.Discard)}, opts...)

	return &MQTTBoard{
		Board: New(id, lot, opts...),
		pub:   pub,
		topic: mqtt.Topics{}.Display(location, id),
		qos:   qos,
		now:   time.Now,
	}
}

// Topic returns the retained state topic.
func (m *MQTTBoard) Topic() string {
	return m.topic
}

// Update applies data to the board and publishes the resulting state.
// Publish failures are logged and otherwise ignored.
func (m *MQTTBoard) Update(data map[string]any) {
	m.Board.Update(data)

	readings := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case KeyMessage, KeyIsOn, KeyCarPark:
		default:
			readings[k] = v
		}
	}

	state := State{
		ID:        m.ID(),
		Message:   m.Message(),
		IsOn:      m.IsOn(),
		Readings:  readings,
		UpdatedAt: m.now().UTC(),
	}
	if err := m.pub.PublishState(m.topic, state, m.qos); err != nil {
		m.logger.Warn("publishing display state failed", "display_id", m.ID(), "topic", m.topic, "error", err)
	}
}

var _ carpark.Display = (*MQTTBoard)(nil)
