package carpark

import (
	"fmt"
	"os"
)

// LogTimeFormat is the local timestamp layout used in activity log lines.
const LogTimeFormat = "2006-01-02 15:04:05"

// logFilePermissions is the permission mode for a newly created activity log.
const logFilePermissions = 0644

// FormatLogLine renders one activity log line, including the trailing newline:
//
//	FAKE-042 entered at 2026-03-01 08:15:00
func FormatLogLine(e Event) string {
	return fmt.Sprintf("%s %s at %s\n", e.Plate, e.Action, e.At.Format(LogTimeFormat))
}

// appendLine opens path for append, writes line and closes the file on
// every exit path. A close error is reported if the write succeeded.
func appendLine(path, line string) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePermissions)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing activity log: %w", closeErr)
		}
	}()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing activity log: %w", err)
	}
	return nil
}

// touchFile creates path if it does not exist without truncating it.
func touchFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, logFilePermissions)
	if err != nil {
		return fmt.Errorf("creating activity log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("creating activity log: %w", err)
	}
	return nil
}
