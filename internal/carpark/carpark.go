package carpark

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// DefaultLogFile is the activity log used when no path is given.
const DefaultLogFile = "log.txt"

// Keys of the snapshot pushed to displays.
const (
	KeyAvailableBays = "available_bays"
	KeyTemperature   = "temperature"
)

// stubTemperature is the reading pushed to displays until a real
// temperature source is attached to the lot.
const stubTemperature = 25

// Logger defines the logging interface used by the lot.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Status is a point-in-time view of the lot.
type Status struct {
	Location      string `json:"location"`
	Capacity      int    `json:"capacity"`
	Occupied      int    `json:"occupied"`
	AvailableBays int    `json:"available_bays"`
	Temperature   int    `json:"temperature"`
}

// CarPark is a fixed-capacity lot tracking occupied bays by plate.
type CarPark struct {
	location string
	capacity int
	logFile  string

	// opMu makes each entry/exit one unit: the plate change, the display
	// refresh, the log append and the recorder calls. Taken before mu.
	opMu sync.Mutex

	mu       sync.RWMutex
	plates   []string
	sensors  []Sensor
	displays []Display

	recorders []EventRecorder
	now       func() time.Time
	logger    Logger
}

// Option configures a CarPark at construction.
type Option func(*CarPark)

// WithLogFile sets the activity log path. Defaults to DefaultLogFile.
func WithLogFile(path string) Option {
	return func(c *CarPark) {
		c.logFile = path
	}
}

// WithPlates seeds the lot with plates already inside.
// The slice is copied; later changes by the caller are not seen by the lot.
func WithPlates(plates []string) Option {
	return func(c *CarPark) {
		c.plates = slices.Clone(plates)
	}
}

// WithClock overrides the time source used for activity log timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *CarPark) {
		c.now = now
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(c *CarPark) {
		c.logger = logger
	}
}

// WithRecorders attaches event recorders notified after each entry/exit.
func WithRecorders(recorders ...EventRecorder) Option {
	return func(c *CarPark) {
		c.recorders = append(c.recorders, recorders...)
	}
}

// New creates a lot and touches its activity log file.
//
// Parameters:
//   - location: Human-readable lot location
//   - capacity: Number of bays (must not be negative)
//   - opts: Optional settings (log file, seed plates, clock, logger, recorders)
//
// Returns:
//   - *CarPark: Empty lot ready for registration
//   - error: ErrInvalidCapacity, or the error from creating the log file
func New(location string, capacity int, opts ...Option) (*CarPark, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	c := &CarPark{
		location: location,
		capacity: capacity,
		logFile:  DefaultLogFile,
		now:      time.Now,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.plates == nil {
		c.plates = []string{}
	}

	if err := touchFile(c.logFile); err != nil {
		return nil, err
	}

	return c, nil
}

// SetLogger sets the logger for the lot.
func (c *CarPark) SetLogger(logger Logger) {
	c.logger = logger
}

// AddRecorder attaches an event recorder after construction.
// It must be called before the lot is shared between goroutines.
func (c *CarPark) AddRecorder(r EventRecorder) {
	c.recorders = append(c.recorders, r)
}

// Location returns the lot location.
func (c *CarPark) Location() string {
	return c.location
}

// Capacity returns the number of bays.
func (c *CarPark) Capacity() int {
	return c.capacity
}

// LogFile returns the activity log path.
func (c *CarPark) LogFile() string {
	return c.logFile
}

// String describes the lot.
func (c *CarPark) String() string {
	return fmt.Sprintf("Car Park at %s, with %d bays.", c.location, c.capacity)
}

// Plates returns a copy of the plates currently inside, in arrival order.
func (c *CarPark) Plates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.plates)
}

// Sensors returns the registered sensors in registration order.
func (c *CarPark) Sensors() []Sensor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.sensors)
}

// Displays returns the registered displays in registration order.
func (c *CarPark) Displays() []Display {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.displays)
}

// Register adds a sensor or display to the lot, dispatching on its Kind.
// Returns ErrInvalidComponent for nil, unknown kinds, or a kind the value
// does not actually implement.
func (c *CarPark) Register(component Component) error {
	if component == nil {
		return fmt.Errorf("%w: nil", ErrInvalidComponent)
	}

	switch component.Kind() {
	case KindSensor:
		s, ok := component.(Sensor)
		if !ok {
			return fmt.Errorf("%w: %T reports kind sensor but is not a Sensor", ErrInvalidComponent, component)
		}
		return c.RegisterSensor(s)
	case KindDisplay:
		d, ok := component.(Display)
		if !ok {
			return fmt.Errorf("%w: %T reports kind display but is not a Display", ErrInvalidComponent, component)
		}
		return c.RegisterDisplay(d)
	default:
		return fmt.Errorf("%w: %T has kind %s", ErrInvalidComponent, component, component.Kind())
	}
}

// RegisterSensor appends a sensor to the lot.
func (c *CarPark) RegisterSensor(s Sensor) error {
	if s == nil {
		return fmt.Errorf("%w: nil sensor", ErrInvalidComponent)
	}
	c.mu.Lock()
	c.sensors = append(c.sensors, s)
	c.mu.Unlock()

	c.logger.Debug("sensor registered", "location", c.location, "sensor_id", s.ID())
	return nil
}

// RegisterDisplay appends a display to the lot.
func (c *CarPark) RegisterDisplay(d Display) error {
	if d == nil {
		return fmt.Errorf("%w: nil display", ErrInvalidComponent)
	}
	c.mu.Lock()
	c.displays = append(c.displays, d)
	c.mu.Unlock()

	c.logger.Debug("display registered", "location", c.location, "display_id", d.ID())
	return nil
}

// AvailableBays returns max(0, capacity - occupied).
func (c *CarPark) AvailableBays() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.availableLocked()
}

func (c *CarPark) availableLocked() int {
	return max(0, c.capacity-len(c.plates))
}

// Snapshot returns the current occupancy.
func (c *CarPark) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Location:      c.location,
		Capacity:      c.capacity,
		Occupied:      len(c.plates),
		AvailableBays: c.availableLocked(),
		Temperature:   stubTemperature,
	}
}

// AddCar records a vehicle entering. Capacity is not enforced: an entry into
// a full lot is committed and availability stays at zero.
//
// Displays are refreshed and one "entered" line is appended to the activity
// log. A log failure is returned after the plate has been committed.
func (c *CarPark) AddCar(ctx context.Context, plate string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.plates = append(c.plates, plate)
	ev := c.eventLocked(plate, ActionEntered)
	c.mu.Unlock()

	return c.afterChange(ctx, ev)
}

// RemoveCar removes the first occurrence of plate.
// Returns ErrPlateNotFound if the plate is not inside.
func (c *CarPark) RemoveCar(ctx context.Context, plate string) error {
	_, err := c.RemoveChosen(ctx, func(plates []string) (int, error) {
		idx := slices.Index(plates, plate)
		if idx < 0 {
			return 0, fmt.Errorf("%w: %s", ErrPlateNotFound, plate)
		}
		return idx, nil
	})
	return err
}

// RemoveChosen removes the plate at the index returned by choose and
// returns it. choose sees the plates inside in arrival order and runs in
// the same critical section as the removal, so two exits never pick the
// same car. An error from choose is returned unchanged and nothing is
// removed. choose must not call back into the lot.
func (c *CarPark) RemoveChosen(ctx context.Context, choose func(plates []string) (int, error)) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	idx, err := choose(slices.Clone(c.plates))
	if err != nil {
		c.mu.Unlock()
		return "", err
	}
	if idx < 0 || idx >= len(c.plates) {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: index %d of %d", ErrPlateNotFound, idx, len(c.plates))
	}
	plate := c.plates[idx]
	c.plates = slices.Delete(c.plates, idx, idx+1)
	ev := c.eventLocked(plate, ActionRemoved)
	c.mu.Unlock()

	return plate, c.afterChange(ctx, ev)
}

// eventLocked builds the Event for a change just applied. Caller holds mu.
func (c *CarPark) eventLocked(plate string, action Action) Event {
	return Event{
		Location:      c.location,
		Plate:         plate,
		Action:        action,
		Occupied:      len(c.plates),
		Capacity:      c.capacity,
		AvailableBays: c.availableLocked(),
		At:            c.now(),
	}
}

// afterChange runs the side effects of a committed entry or exit.
// Caller holds opMu, so no other change can land until it returns.
func (c *CarPark) afterChange(ctx context.Context, ev Event) error {
	c.pushDisplays(ev.AvailableBays)

	if err := appendLine(c.logFile, FormatLogLine(ev)); err != nil {
		c.logger.Error("activity log append failed",
			"location", c.location,
			"plate", ev.Plate,
			"action", ev.Action,
			"error", err,
		)
		return err
	}

	c.logger.Info("car "+string(ev.Action),
		"location", c.location,
		"plate", ev.Plate,
		"available_bays", ev.AvailableBays,
	)

	for _, r := range c.recorders {
		if err := r.RecordEvent(ctx, ev); err != nil {
			c.logger.Warn("event recorder failed",
				"plate", ev.Plate,
				"action", ev.Action,
				"error", err,
			)
		}
	}
	return nil
}

// UpdateDisplays pushes {available_bays, temperature} to every display.
func (c *CarPark) UpdateDisplays() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.pushDisplays(c.AvailableBays())
}

// pushDisplays sends one reading to every display. Caller holds opMu.
func (c *CarPark) pushDisplays(available int) {
	data := map[string]any{
		KeyAvailableBays: available,
		KeyTemperature:   stubTemperature,
	}
	for _, d := range c.Displays() {
		// Each display gets its own map so one cannot mutate another's view.
		d.Update(maps.Clone(data))
	}
}
