package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/carpark-core/internal/carpark"
)

// Lot is the part of a car park a sensor acts on.
type Lot interface {
	AddCar(ctx context.Context, plate string) error
	RemoveChosen(ctx context.Context, choose func(plates []string) (int, error)) (string, error)
}

// Logger defines the logging interface used by sensors.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Option configures a sensor at construction.
type Option func(*base)

// WithActive sets the initial active flag. Sensors start active.
func WithActive(active bool) Option {
	return func(b *base) {
		b.active.Store(active)
	}
}

// WithOutput sets where detection announcements are written.
// Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(b *base) {
		b.out = w
	}
}

// WithRand sets the random source used for plate generation and selection.
func WithRand(r *rand.Rand) Option {
	return func(b *base) {
		b.rng = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

// base holds the state both variants share and runs the detection sequence.
type base struct {
	id     int
	lot    Lot
	active atomic.Bool

	// direction prefixes the announcement: "Incoming" or "Outgoing".
	direction string

	// apply announces a plate and commits it to the lot.
	apply func(ctx context.Context) (string, error)

	outMu sync.Mutex
	out   io.Writer

	rngMu sync.Mutex
	rng   *rand.Rand

	logger Logger
}

func newBase(id int, lot Lot, direction string, opts []Option) (*base, error) {
	if lot == nil {
		return nil, ErrNilLot
	}

	b := &base{
		id:        id,
		lot:       lot,
		direction: direction,
		out:       os.Stdout,
		logger:    noopLogger{},
	}
	b.active.Store(true)
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return b, nil
}

// ID returns the sensor id.
func (b *base) ID() int {
	return b.id
}

// Kind reports KindSensor.
func (b *base) Kind() carpark.ComponentKind {
	return carpark.KindSensor
}

// IsActive returns the stored active flag.
func (b *base) IsActive() bool {
	return b.active.Load()
}

// SetActive stores the active flag.
func (b *base) SetActive(active bool) {
	b.active.Store(active)
}

// String describes the sensor and its active flag.
func (b *base) String() string {
	status := "Inactive"
	if b.IsActive() {
		status = "Active"
	}
	return fmt.Sprintf("Sensor %d is %s.", b.id, status)
}

// DetectVehicle scans a plate, announces it and applies it to the lot.
// It returns the plate acted on.
func (b *base) DetectVehicle(ctx context.Context) (string, error) {
	plate, err := b.apply(ctx)
	if errors.Is(err, ErrNoVehiclePresent) {
		return "", err
	}
	if err != nil {
		b.logger.Warn("lot update failed", "sensor_id", b.id, "plate", plate, "error", err)
		return plate, err
	}

	b.logger.Debug("vehicle detected", "sensor_id", b.id, "plate", plate)
	return plate, nil
}

func (b *base) announce(plate string) {
	b.outMu.Lock()
	defer b.outMu.Unlock()
	fmt.Fprintf(b.out, "%s vehicle detected. Plate: %s\n", b.direction, plate)
}

// intN returns a random int in [0, n).
func (b *base) intN(n int) int {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return b.rng.IntN(n)
}

// EntrySensor detects incoming vehicles and adds them to the lot.
type EntrySensor struct {
	*base
}

// NewEntry creates an entry sensor for lot.
func NewEntry(id int, lot Lot, opts ...Option) (*EntrySensor, error) {
	b, err := newBase(id, lot, "Incoming", opts)
	if err != nil {
		return nil, err
	}
	s := &EntrySensor{base: b}
	b.apply = s.enter
	return s, nil
}

// enter generates a synthetic plate and adds it. Collisions are possible.
func (s *EntrySensor) enter(ctx context.Context) (string, error) {
	plate := fmt.Sprintf("FAKE-%03d", s.intN(1000))
	s.announce(plate)
	return plate, s.lot.AddCar(ctx, plate)
}

// ExitSensor detects outgoing vehicles and removes them from the lot.
type ExitSensor struct {
	*base
}

// NewExit creates an exit sensor for lot.
func NewExit(id int, lot Lot, opts ...Option) (*ExitSensor, error) {
	b, err := newBase(id, lot, "Outgoing", opts)
	if err != nil {
		return nil, err
	}
	s := &ExitSensor{base: b}
	b.apply = s.leave
	return s, nil
}

// leave picks one of the plates inside, uniformly at random, and removes
// it. The pick runs inside the lot's change lock, so exits racing on the
// same lot never choose the same car.
func (s *ExitSensor) leave(ctx context.Context) (string, error) {
	return s.lot.RemoveChosen(ctx, func(plates []string) (int, error) {
		if len(plates) == 0 {
			return 0, ErrNoVehiclePresent
		}
		i := s.intN(len(plates))
		s.announce(plates[i])
		return i, nil
	})
}

var (
	_ carpark.Sensor = (*EntrySensor)(nil)
	_ carpark.Sensor = (*ExitSensor)(nil)
)
