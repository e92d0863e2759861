package carpark

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// DefaultConfigFile is the conventional lot snapshot path.
const DefaultConfigFile = "config.json"

// snapshotFilePermissions is the permission mode for written snapshots.
const snapshotFilePermissions = 0644

// lotConfig is the on-disk lot snapshot. Pointer fields distinguish a
// missing key from a zero value.
type lotConfig struct {
	Location *string `json:"location"`
	Capacity *int    `json:"capacity"`
	LogFile  *string `json:"log_file"`
}

// WriteConfig writes {location, capacity, log_file} as JSON to path.
// Plates, sensors and displays are not written.
func (c *CarPark) WriteConfig(path string) error {
	location, capacity, logFile := c.location, c.capacity, c.logFile
	data, err := json.Marshal(lotConfig{
		Location: &location,
		Capacity: &capacity,
		LogFile:  &logFile,
	})
	if err != nil {
		return fmt.Errorf("marshalling lot config: %w", err)
	}

	if err := os.WriteFile(path, data, snapshotFilePermissions); err != nil {
		return fmt.Errorf("writing lot config: %w", err)
	}
	return nil
}

// FromConfig builds a lot from a snapshot written by WriteConfig.
//
// The restored lot has no plates, sensors or displays regardless of the
// state of the lot that wrote the snapshot or of a WithPlates in opts.
// opts are applied first, so the snapshot's log file always wins.
//
// Returns ErrMissingConfigKey if location, capacity or log_file is absent.
func FromConfig(path string, opts ...Option) (*CarPark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lot config: %w", err)
	}

	var cfg lotConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing lot config: %w", err)
	}

	switch {
	case cfg.Location == nil:
		return nil, fmt.Errorf("%w: %q", ErrMissingConfigKey, "location")
	case cfg.Capacity == nil:
		return nil, fmt.Errorf("%w: %q", ErrMissingConfigKey, "capacity")
	case cfg.LogFile == nil:
		return nil, fmt.Errorf("%w: %q", ErrMissingConfigKey, "log_file")
	}

	return New(*cfg.Location, *cfg.Capacity,
		slices.Concat(opts, []Option{WithLogFile(*cfg.LogFile), WithPlates(nil)})...)
}
