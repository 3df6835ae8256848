package testutil

import (
	"bytes"

	"github.com/hospitalzapata/wardsync/internal/events"
)

// NewTestLogger creates a quiet logger for tests.
func NewTestLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.ErrorLevel, "json", &buf)
}
