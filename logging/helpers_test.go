package logging

import (
	"log/slog"
	"testing"
	"time"

	"github.com/tlgayhan/pedi-mvp/config"
)

// ResetForTest installs a fresh global logger writing under dir and restores
// the previous one when the test ends.
func ResetForTest(t *testing.T, dir string, env config.Environment, level string, retentionWeeks int, maxFileSize int64) {
	t.Helper()

	previous := DefaultLoggingService
	DefaultLoggingService = nil

	svc := InitLoggerWithRetentionAndSize(dir, env, level, retentionWeeks, maxFileSize, testing.Verbose())
	if svc.rotating != nil {
		svc.rotating.closeTimeout = 100 * time.Millisecond
	}

	t.Cleanup(func() {
		_ = svc.Close()
		DefaultLoggingService = previous
		if previous != nil {
			slog.SetDefault(previous.Logger)
		}
	})
}
