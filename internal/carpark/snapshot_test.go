package carpark

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteConfig_FromConfig_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "activity.txt")
	cfgPath := filepath.Join(dir, DefaultConfigFile)

	c, err := New("moondalup", 100, WithLogFile(logPath))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Register(&fakeDisplay{id: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddCar(ctx, "A"); err != nil {
		t.Fatal(err)
	}

	if err := c.WriteConfig(cfgPath); err != nil {
		t.Fatalf("WriteConfig() error = %v", err)
	}

	restored, err := FromConfig(cfgPath)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	if restored.Location() != "moondalup" || restored.Capacity() != 100 || restored.LogFile() != logPath {
		t.Errorf("restored = %q/%d/%q", restored.Location(), restored.Capacity(), restored.LogFile())
	}
	if len(restored.Plates()) != 0 {
		t.Errorf("restored plates = %v, want empty", restored.Plates())
	}
	if len(restored.Displays()) != 0 || len(restored.Sensors()) != 0 {
		t.Error("restored lot should have no components")
	}
	if restored.AvailableBays() != 100 {
		t.Errorf("restored AvailableBays() = %d, want 100", restored.AvailableBays())
	}
}

func TestWriteConfig_Keys(t *testing.T) {
	c := newTestLot(t, 7)
	path := filepath.Join(t.TempDir(), "config.json")

	if err := c.WriteConfig(path); err != nil {
		t.Fatalf("WriteConfig() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}

	if len(got) != 3 {
		t.Errorf("snapshot keys = %v, want location/capacity/log_file", got)
	}
	if got["location"] != "moondalup" || got["capacity"] != float64(7) || got["log_file"] != c.LogFile() {
		t.Errorf("snapshot = %v", got)
	}
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey error
	}{
		{"missing location", `{"capacity": 1, "log_file": "log.txt"}`, ErrMissingConfigKey},
		{"missing capacity", `{"location": "x", "log_file": "log.txt"}`, ErrMissingConfigKey},
		{"missing log_file", `{"location": "x", "capacity": 1}`, ErrMissingConfigKey},
		{"negative capacity", `{"location": "x", "capacity": -2, "log_file": "log.txt"}`, ErrInvalidCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			path := filepath.Join(dir, "config.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := FromConfig(path)
			if !errors.Is(err, tt.wantKey) {
				t.Errorf("FromConfig() error = %v, want %v", err, tt.wantKey)
			}
		})
	}
}

func TestFromConfig_MalformedAndMissingFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := FromConfig(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("FromConfig() expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := FromConfig(bad); err == nil {
		t.Error("FromConfig() expected error for malformed JSON")
	}
}

func TestFromConfig_SnapshotLogFileWins(t *testing.T) {
	dir := t.TempDir()
	snapLog := filepath.Join(dir, "snap-log.txt")
	path := filepath.Join(dir, "config.json")
	content := `{"location": "x", "capacity": 5, "log_file": "` + snapLog + `"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := FromConfig(path, WithLogFile(filepath.Join(dir, "other.txt")), WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if c.LogFile() != snapLog {
		t.Errorf("LogFile() = %q, want %q", c.LogFile(), snapLog)
	}
}

func TestFromConfig_OptionsCannotSeedPlates(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, DefaultConfigFile)
	logPath := filepath.Join(dir, "activity.txt")
	snap := `{"location": "joondalup", "capacity": 4, "log_file": "` + logPath + `"}`
	if err := os.WriteFile(cfgPath, []byte(snap), 0600); err != nil {
		t.Fatal(err)
	}

	// Spare capacity: appending into it would clobber the caller's slot.
	opts := make([]Option, 1, 4)
	opts[0] = WithPlates([]string{"A", "B"})
	sentinel := WithLogFile(filepath.Join(dir, "other.txt"))
	opts = append(opts, sentinel)[:1]

	restored, err := FromConfig(cfgPath, opts...)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	if got := restored.Plates(); len(got) != 0 {
		t.Errorf("restored plates = %v, want empty", got)
	}
	if restored.LogFile() != logPath {
		t.Errorf("restored LogFile() = %q, want %q", restored.LogFile(), logPath)
	}

	// The caller's backing array still holds its own option.
	spare := &CarPark{}
	opts[:2][1](spare)
	if spare.logFile != filepath.Join(dir, "other.txt") {
		t.Errorf("FromConfig wrote into the caller's options: logFile = %q", spare.logFile)
	}
}
