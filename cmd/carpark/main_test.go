package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/carpark-core/internal/activity"
	"github.com/nerrad567/carpark-core/internal/carpark"
	"github.com/nerrad567/carpark-core/internal/display"
	"github.com/nerrad567/carpark-core/internal/infrastructure/config"
	"github.com/nerrad567/carpark-core/internal/infrastructure/database"
	"github.com/nerrad567/carpark-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/carpark-core/internal/infrastructure/logging"
	"github.com/nerrad567/carpark-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/carpark-core/internal/sensor"
)

func runWithTimeout(t *testing.T) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return run(ctx)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func countAction(lines []string, action carpark.Action) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, " "+string(action)+" at ") {
			n++
		}
	}
	return n
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("CARPARK_CONFIG", "/nonexistent/path/config.yaml")

	if err := runWithTimeout(t); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_Defaults runs the built-in detection sequence: ten entries then two exits.
func TestRun_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CARPARK_CONFIG", "")
	t.Setenv("CARPARK_LOGGING_LEVEL", "error")

	if err := runWithTimeout(t); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	lines := readLines(t, carpark.DefaultLogFile)
	if len(lines) != 12 {
		t.Fatalf("log lines = %d, want 12:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if got := countAction(lines, carpark.ActionEntered); got != 10 {
		t.Errorf("entered lines = %d, want 10", got)
	}
	if got := countAction(lines, carpark.ActionRemoved); got != 2 {
		t.Errorf("removed lines = %d, want 2", got)
	}
	if _, err := os.Stat(carpark.DefaultConfigFile); !os.IsNotExist(err) {
		t.Errorf("snapshot written without write_snapshot: stat err = %v", err)
	}
}

// TestRun_DatabaseAndSnapshot stores history in SQLite and writes the snapshot.
// More exits than entries are requested; the extras are skipped, not fatal.
func TestRun_DatabaseAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "carpark.db")
	logPath := filepath.Join(dir, "joondalup.txt")
	snapPath := filepath.Join(dir, "config.json")

	t.Setenv("CARPARK_CONFIG", writeConfig(t, dir, `
site:
  id: test-site
  name: Joondalup
carpark:
  location: joondalup
  capacity: 2
  log_file: "`+logPath+`"
  snapshot_file: "`+snapPath+`"
  write_snapshot: true
simulation:
  entries: 3
  exits: 5
database:
  enabled: true
  path: "`+dbPath+`"
  busy_timeout: 5
logging:
  level: error
  format: text
`))

	if err := runWithTimeout(t); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	lines := readLines(t, logPath)
	if got := countAction(lines, carpark.ActionEntered); got != 3 {
		t.Errorf("entered lines = %d, want 3", got)
	}
	if got := countAction(lines, carpark.ActionRemoved); got != 3 {
		t.Errorf("removed lines = %d, want 3", got)
	}

	var snap map[string]any
	data, err := os.ReadFile(snapPath)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("snapshot unmarshal: %v", err)
	}
	if snap["location"] != "joondalup" || snap["capacity"] != float64(2) || snap["log_file"] != logPath {
		t.Errorf("snapshot = %v", snap)
	}

	db, err := database.Open(config.DatabaseConfig{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close()

	result, err := activity.NewSQLiteRepository(db.DB).List(context.Background(), activity.Filter{Location: "joondalup"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 6 {
		t.Errorf("stored events = %d, want 6", result.Total)
	}
}

// TestRun_RestoreFromSnapshot builds the lot from config.json, whose log file wins.
func TestRun_RestoreFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "restored.txt")
	snapPath := filepath.Join(dir, "config.json")
	snap := `{"location": "joondalup", "capacity": 5, "log_file": "` + logPath + `"}`
	if err := os.WriteFile(snapPath, []byte(snap), 0600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	t.Setenv("CARPARK_CONFIG", writeConfig(t, dir, `
carpark:
  location: ignored
  log_file: "`+filepath.Join(dir, "ignored.txt")+`"
  snapshot_file: "`+snapPath+`"
  restore_from_snapshot: true
simulation:
  entries: 1
  exits: 0
logging:
  level: error
`))

	if err := runWithTimeout(t); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if lines := readLines(t, logPath); len(lines) != 1 {
		t.Errorf("restored log lines = %d, want 1", len(lines))
	}
	if _, err := os.Stat(filepath.Join(dir, "ignored.txt")); !os.IsNotExist(err) {
		t.Errorf("configured log file used instead of snapshot's: stat err = %v", err)
	}
}

func TestRun_RestoreFromBadSnapshot(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(snapPath, []byte(`{"location": "joondalup", "capacity": 5}`), 0600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	t.Setenv("CARPARK_CONFIG", writeConfig(t, dir, `
carpark:
  location: joondalup
  snapshot_file: "`+snapPath+`"
  restore_from_snapshot: true
logging:
  level: error
`))

	err := runWithTimeout(t)
	if !errors.Is(err, carpark.ErrMissingConfigKey) {
		t.Errorf("run() error = %v, want ErrMissingConfigKey", err)
	}
}

// TestAttachComponents_WelcomeUsesLotLocation checks the display greets the
// lot actually built, which differs from carpark.location after a restore.
func TestAttachComponents_WelcomeUsesLotLocation(t *testing.T) {
	cfg := config.Default()
	cfg.CarPark.Location = "ignored"

	lot, err := carpark.New("joondalup", 5, carpark.WithLogFile(filepath.Join(t.TempDir(), "log.txt")))
	if err != nil {
		t.Fatalf("carpark.New() error = %v", err)
	}
	if _, _, err := attachComponents(cfg, lot, logging.Default()); err != nil {
		t.Fatalf("attachComponents() error = %v", err)
	}

	displays := lot.Displays()
	if len(displays) != 1 {
		t.Fatalf("registered displays = %d, want 1", len(displays))
	}
	board, ok := displays[0].(*display.Board)
	if !ok {
		t.Fatalf("display type = %T, want *display.Board", displays[0])
	}
	if got := board.Message(); got != "Welcome to joondalup" {
		t.Errorf("board message = %q, want %q", got, "Welcome to joondalup")
	}
}

// ─── Simulation ────────────────────────────────────────────────────

type scriptedSensor struct {
	id    int
	errs  []error
	calls int
}

func (s *scriptedSensor) ID() int                     { return s.id }
func (s *scriptedSensor) Kind() carpark.ComponentKind { return carpark.KindSensor }
func (s *scriptedSensor) IsActive() bool              { return true }
func (s *scriptedSensor) DetectVehicle(context.Context) (string, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.errs) {
		return "", s.errs[s.calls]
	}
	return "FAKE-001", nil
}

func TestSimulate(t *testing.T) {
	boom := errors.New("camera offline")

	tests := []struct {
		name      string
		sim       config.SimulationConfig
		entryErrs []error
		exitErrs  []error
		wantErr   error
		wantEntry int
		wantExit  int
	}{
		{
			name:      "runs entries then exits",
			sim:       config.SimulationConfig{Entries: 3, Exits: 2},
			wantEntry: 3,
			wantExit:  2,
		},
		{
			name:      "empty lot exit is skipped",
			sim:       config.SimulationConfig{Entries: 1, Exits: 3},
			exitErrs:  []error{nil, sensor.ErrNoVehiclePresent, sensor.ErrNoVehiclePresent},
			wantEntry: 1,
			wantExit:  3,
		},
		{
			name:      "entry failure stops the run",
			sim:       config.SimulationConfig{Entries: 3, Exits: 2},
			entryErrs: []error{nil, boom},
			wantErr:   boom,
			wantEntry: 2,
			wantExit:  0,
		},
		{
			name:      "exit failure stops the run",
			sim:       config.SimulationConfig{Entries: 1, Exits: 2},
			exitErrs:  []error{boom},
			wantErr:   boom,
			wantEntry: 1,
			wantExit:  1,
		},
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &scriptedSensor{id: 1, errs: tt.entryErrs}
			exit := &scriptedSensor{id: 2, errs: tt.exitErrs}

			err := simulate(context.Background(), tt.sim, entry, exit, log)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("simulate() error = %v, want %v", err, tt.wantErr)
			}
			if entry.calls != tt.wantEntry || exit.calls != tt.wantExit {
				t.Errorf("calls = %d/%d, want %d/%d", entry.calls, exit.calls, tt.wantEntry, tt.wantExit)
			}
		})
	}
}

// ─── Recorders ─────────────────────────────────────────────────────

type fakeOccupancyWriter struct {
	got []influxdb.Occupancy
}

func (f *fakeOccupancyWriter) WriteOccupancy(o influxdb.Occupancy) {
	f.got = append(f.got, o)
}

type published struct {
	occupancy mqtt.Occupancy
	qos       byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) PublishOccupancy(o mqtt.Occupancy, qos byte) error {
	f.msgs = append(f.msgs, published{o, qos})
	return f.err
}

var testEvent = carpark.Event{
	Location:      "moondalup",
	Plate:         "FAKE-042",
	Action:        carpark.ActionEntered,
	Occupied:      4,
	Capacity:      100,
	AvailableBays: 96,
	At:            time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC),
}

func TestInfluxRecorder(t *testing.T) {
	w := &fakeOccupancyWriter{}
	if err := (influxRecorder{w: w}).RecordEvent(context.Background(), testEvent); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	if len(w.got) != 1 {
		t.Fatalf("writes = %d, want 1", len(w.got))
	}
	o := w.got[0]
	if o.Location != "moondalup" || o.Plate != "FAKE-042" || o.Action != "entered" {
		t.Errorf("occupancy = %+v", o)
	}
	if o.AvailableBays != 96 || o.Occupied != 4 || o.Capacity != 100 || !o.At.Equal(testEvent.At) {
		t.Errorf("occupancy counts = %+v", o)
	}
}

func TestOccupancyPublisher(t *testing.T) {
	pub := &fakePublisher{}
	if err := (occupancyPublisher{pub: pub, qos: 1}).RecordEvent(context.Background(), testEvent); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.msgs))
	}
	m := pub.msgs[0]
	if m.qos != 1 {
		t.Errorf("qos = %d, want 1", m.qos)
	}
	msg := m.occupancy
	if msg.Location != "moondalup" || msg.Plate != "FAKE-042" || msg.Action != "entered" {
		t.Errorf("occupancy = %+v", msg)
	}
	if msg.AvailableBays != 96 || msg.Occupied != 4 || msg.Timestamp != "2026-03-01T08:15:00Z" {
		t.Errorf("occupancy counts = %+v", msg)
	}
}

func TestOccupancyPublisher_Error(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	if err := (occupancyPublisher{pub: pub}).RecordEvent(context.Background(), testEvent); err == nil {
		t.Error("RecordEvent() expected publish error")
	}
}
