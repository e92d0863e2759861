// Package activity stores the lot's entry and exit history in SQLite so it
// can be queried by plate, action or location.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/carpark-core/internal/carpark"
)

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// timeFormat is fixed-width so created_at sorts lexically. Times are stored in UTC.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// ParkingEvent is one stored entry or exit.
type ParkingEvent struct {
	ID            string    `json:"id"`
	Location      string    `json:"location"`
	Plate         string    `json:"plate"`
	Action        string    `json:"action"`
	AvailableBays int       `json:"available_bays"`
	Occupied      int       `json:"occupied"`
	CreatedAt     time.Time `json:"created_at"`
}

// Filter controls which events to return.
type Filter struct {
	Location string // optional: exact lot location
	Plate    string // optional: exact plate
	Action   string // optional: entered or removed
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ListResult contains a page of events.
type ListResult struct {
	Events []ParkingEvent `json:"events"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Repository defines the event history operations.
type Repository interface {
	Create(ctx context.Context, e *ParkingEvent) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores events in the parking_events table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new event repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordEvent stores a committed lot event. It lets the repository be
// attached to a lot as a carpark.EventRecorder.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, e carpark.Event) error {
	return r.Create(ctx, &ParkingEvent{
		Location:      e.Location,
		Plate:         e.Plate,
		Action:        string(e.Action),
		AvailableBays: e.AvailableBays,
		Occupied:      e.Occupied,
		CreatedAt:     e.At,
	})
}

// Create inserts an event. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *ParkingEvent) error {
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO parking_events (id, location, plate, action, available_bays, occupied, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Location, e.Plate, e.Action,
		e.AvailableBays, e.Occupied,
		e.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting parking event: %w", err)
	}
	return nil
}

// List returns events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Location != "" {
		conditions = append(conditions, "location = ?")
		args = append(args, filter.Location)
	}
	if filter.Plate != "" {
		conditions = append(conditions, "plate = ?")
		args = append(args, filter.Plate)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM parking_events " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting parking events: %w", err)
	}

	query := "SELECT id, location, plate, action, available_bays, occupied, created_at FROM parking_events " + //nolint:gosec // WHERE built from parameterised conditions
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying parking events: %w", err)
	}
	defer rows.Close()

	events := []ParkingEvent{}
	for rows.Next() {
		var e ParkingEvent
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Location, &e.Plate, &e.Action,
			&e.AvailableBays, &e.Occupied, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning parking event: %w", err)
		}

		t, err := time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing parking event timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parking events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

var _ carpark.EventRecorder = (*SQLiteRepository)(nil)
