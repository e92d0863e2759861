package display

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/nerrad567/carpark-core/internal/carpark"
)

// Keys a board stores or forwards. Anything else is rendered only.
const (
	KeyMessage = "message"
	KeyIsOn    = "is_on"
	KeyCarPark = "car_park"
)

// Lot is the board's back-reference to the car park it sits in.
type Lot interface {
	Location() string
}

// lotUpdater is implemented by lots that accept nested updates.
type lotUpdater interface {
	Update(data map[string]any)
}

// Logger defines the logging interface used by boards.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Option configures a board at construction.
type Option func(*Board)

// WithMessage sets the initial message.
func WithMessage(message string) Option {
	return func(b *Board) {
		b.message = message
	}
}

// WithOn sets the initial power flag. Boards start off.
func WithOn(on bool) Option {
	return func(b *Board) {
		b.isOn = on
	}
}

// WithOutput sets where updates are rendered. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(b *Board) {
		b.out = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(b *Board) {
		b.logger = logger
	}
}

// Board is a text display attached to a lot.
type Board struct {
	id  int
	lot Lot

	mu      sync.Mutex
	message string
	isOn    bool
	out     io.Writer

	logger Logger
}

// New creates a board for lot. lot may be nil for a free-standing board.
func New(id int, lot Lot, opts ...Option) *Board {
	b := &Board{
		id:     id,
		lot:    lot,
		out:    os.Stdout,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the board id.
func (b *Board) ID() int {
	return b.id
}

// Kind reports KindDisplay.
func (b *Board) Kind() carpark.ComponentKind {
	return carpark.KindDisplay
}

// Lot returns the lot the board was created for.
func (b *Board) Lot() Lot {
	return b.lot
}

// Message returns the current message.
func (b *Board) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

// IsOn returns the power flag.
func (b *Board) IsOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOn
}

// String renders the board as "Display <id>: <message>.".
func (b *Board) String() string {
	return fmt.Sprintf("Display %d: %s.", b.id, b.Message())
}

// Update renders each key/value in data, sorted by key, then applies the
// keys the board understands:
//
//   - message: replaces the message when it is a string
//   - is_on: replaces the power flag when it is a bool
//   - car_park: a nested map forwarded to the lot if the lot accepts updates
//
// A nil value for any of these keys leaves the field unchanged.
func (b *Board) Update(data map[string]any) {
	b.mu.Lock()
	for _, key := range slices.Sorted(maps.Keys(data)) {
		fmt.Fprintf(b.out, "%s: %v\n", key, data[key])
	}

	if v, ok := data[KeyMessage]; ok && v != nil {
		if msg, ok := v.(string); ok {
			b.message = msg
		} else {
			b.logger.Warn("ignoring non-string message", "display_id", b.id, "type", fmt.Sprintf("%T", v))
		}
	}
	if v, ok := data[KeyIsOn]; ok && v != nil {
		if on, ok := v.(bool); ok {
			b.isOn = on
		} else {
			b.logger.Warn("ignoring non-bool is_on", "display_id", b.id, "type", fmt.Sprintf("%T", v))
		}
	}
	b.mu.Unlock()

	if v, ok := data[KeyCarPark]; ok && v != nil {
		b.forward(v)
	}
}

// forward passes a nested car_park update to the lot. It runs outside the
// board lock so the lot may push back to its displays.
func (b *Board) forward(v any) {
	nested, ok := v.(map[string]any)
	if !ok {
		b.logger.Warn("ignoring non-map car_park update", "display_id", b.id, "type", fmt.Sprintf("%T", v))
		return
	}
	u, ok := b.lot.(lotUpdater)
	if !ok {
		b.logger.Debug("lot does not accept updates, dropping car_park", "display_id", b.id)
		return
	}
	u.Update(nested)
}

var _ carpark.Display = (*Board)(nil)
