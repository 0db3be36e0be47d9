package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tlgayhan/pedi-mvp/config"
)

// readFileRecords decodes every JSON line the file handler wrote under dir
func readFileRecords(t *testing.T, dir string) []map[string]any {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, logFilePrefix+"-*.log"))
	if err != nil {
		t.Fatal(err)
	}

	var records []map[string]any
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		sc := bufio.NewScanner(bytes.NewReader(raw))
		for sc.Scan() {
			var rec map[string]any
			if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
				t.Fatalf("Expected JSON records in %s, got %q", filepath.Base(path), sc.Text())
			}
			records = append(records, rec)
		}
	}
	return records
}

func findRecord(records []map[string]any, msg string) map[string]any {
	for _, r := range records {
		if r["msg"] == msg {
			return r
		}
	}
	return nil
}

func TestLogLevelResolution(t *testing.T) {
	t.Run("LOG_LEVEL values", func(t *testing.T) {
		for input, expected := range map[string]slog.Level{
			"debug":    slog.LevelDebug,
			"  DEBUG ": slog.LevelDebug,
			"Warning":  slog.LevelWarn,
			"warn":     slog.LevelWarn,
			"error":    slog.LevelError,
			"info":     slog.LevelInfo,
			"verbose":  slog.LevelInfo,
			"":         slog.LevelInfo,
		} {
			if got := parseLogLevel(input); got != expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, expected)
			}
		}
	})

	t.Run("console level per environment", func(t *testing.T) {
		tests := []struct {
			env      config.Environment
			level    string
			verbose  bool
			expected slog.Level
		}{
			{config.EnvDevelopment, "", false, slog.LevelInfo},
			{config.EnvStaging, "", false, slog.LevelWarn},
			{config.EnvProduction, "", false, slog.LevelWarn},
			{config.EnvProduction, "error", false, slog.LevelError},
			{config.EnvDevelopment, "debug", true, slog.LevelDebug},
			{config.EnvTest, "", false, slog.LevelError},
			{config.EnvTest, "debug", false, slog.LevelError},
			{config.EnvTest, "error", true, slog.LevelInfo},
		}

		for _, tt := range tests {
			if got := GetConsoleLogLevel(tt.env, tt.level, tt.verbose); got != tt.expected {
				t.Errorf("GetConsoleLogLevel(%s, %q, %v) = %v, want %v", tt.env, tt.level, tt.verbose, got, tt.expected)
			}
		}
	})

	t.Run("files keep debug", func(t *testing.T) {
		if GetFileLogLevel() != slog.LevelDebug {
			t.Errorf("Expected debug records in log files, got %v", GetFileLogLevel())
		}
	})
}

func TestPackageFunctionsBeforeInit(t *testing.T) {
	previous := DefaultLoggingService
	DefaultLoggingService = nil
	t.Cleanup(func() { DefaultLoggingService = previous })

	if Logger() == nil {
		t.Fatal("Expected a fallback logger before InitLogger")
	}

	// CLI subcommands log through the fallback without a log directory
	Info("check-data started", "dir", "")
	Debug("not shown")
	Warn("quality issues", "count", 1)
	Error("load failed", "error", "boom")
}

func TestInitLoggerWritesJSONFiles(t *testing.T) {
	dir := t.TempDir()
	ResetForTest(t, dir, config.EnvTest, "", 1, 1024*1024)

	Info("reference data reloaded", "drugs", 4, "source", "embedded")
	Debug("snapshot swapped")

	records := readFileRecords(t, dir)

	rec := findRecord(records, "reference data reloaded")
	if rec == nil {
		t.Fatalf("Expected the info record in the log file, got %v", records)
	}
	if rec["level"] != "INFO" || rec["drugs"] != float64(4) || rec["source"] != "embedded" {
		t.Errorf("Unexpected record: %v", rec)
	}
	if findRecord(records, "snapshot swapped") == nil {
		t.Error("Expected debug records in the log file while the test console stays at error")
	}
}

func TestInitLoggerFromConfig(t *testing.T) {
	previous := DefaultLoggingService
	DefaultLoggingService = nil

	cfg := &config.Config{
		Env:               config.EnvTest,
		LogLevel:          "info",
		LogDir:            filepath.Join(t.TempDir(), "nested", "logs"),
		LogRetentionWeeks: 2,
		MaxLogFileSize:    1024 * 1024,
	}
	svc := InitLogger(cfg)
	svc.rotating.closeTimeout = 100 * time.Millisecond
	t.Cleanup(func() {
		_ = svc.Close()
		DefaultLoggingService = previous
		if previous != nil {
			slog.SetDefault(previous.Logger)
		}
	})

	if DefaultLoggingService != svc {
		t.Error("Expected InitLogger to install the service globally")
	}
	if svc.rotating.retention != 2*7*24*time.Hour {
		t.Errorf("Expected two weeks of retention, got %s", svc.rotating.retention)
	}
	if svc.rotating.maxFileSize != cfg.MaxLogFileSize {
		t.Errorf("Expected the configured size limit, got %d", svc.rotating.maxFileSize)
	}
	if !svc.rotating.sweeping.Load() {
		t.Error("Expected the retention sweep to be running")
	}
	if _, err := os.Stat(cfg.LogDir); err != nil {
		t.Errorf("Expected the log directory to be created: %v", err)
	}

	slog.Info("through slog.Default")
	if findRecord(readFileRecords(t, cfg.LogDir), "through slog.Default") == nil {
		t.Error("Expected slog.Default to write to the log file")
	}
}

func TestInitLoggerClosesPreviousService(t *testing.T) {
	ResetForTest(t, t.TempDir(), config.EnvTest, "", 1, 1024*1024)
	first := DefaultLoggingService

	second := InitLoggerWithRetentionAndSize(t.TempDir(), config.EnvTest, "", 1, 1024*1024, false)
	second.rotating.closeTimeout = 100 * time.Millisecond
	t.Cleanup(func() { _ = second.Close() })

	if DefaultLoggingService != second {
		t.Error("Expected the new service to replace the global one")
	}

	first.rotating.mu.RLock()
	defer first.rotating.mu.RUnlock()
	if first.rotating.currentFile != nil {
		t.Error("Expected the replaced service's log file to be closed")
	}
}

func TestInitLoggerFallsBackToConsole(t *testing.T) {
	// a regular file where the log directory should be
	blocker := filepath.Join(t.TempDir(), "logs")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ResetForTest(t, blocker, config.EnvTest, "", 1, 1024*1024)

	if DefaultLoggingService.rotating != nil {
		t.Error("Expected no file logger when the directory cannot be created")
	}
	if err := DefaultLoggingService.Close(); err != nil {
		t.Errorf("Expected Close on a console-only service to succeed, got %v", err)
	}
	Info("still logging")
}

func TestLoggingServiceCloseNil(t *testing.T) {
	var svc *LoggingService
	if err := svc.Close(); err != nil {
		t.Errorf("Expected nil service Close to be a no-op, got %v", err)
	}
}

func TestMultiHandler(t *testing.T) {
	var quiet, chatty bytes.Buffer
	m := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewJSONHandler(&chatty, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}

	if !m.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be enabled while one handler accepts it")
	}

	logger := slog.New(m).With("calculator", "pews").WithGroup("input")
	logger.Info("scored", "total", 5)
	logger.Error("failed", "field", "oxygen")

	if strings.Contains(quiet.String(), "scored") {
		t.Error("Expected the error-level handler to skip info records")
	}
	if !strings.Contains(quiet.String(), "input.field=oxygen") || !strings.Contains(quiet.String(), "calculator=pews") {
		t.Errorf("Expected attrs and group on the error handler, got %q", quiet.String())
	}

	lines := strings.Split(strings.TrimSpace(chatty.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected both records on the debug handler, got %d", len(lines))
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	group, _ := rec["input"].(map[string]any)
	if rec["calculator"] != "pews" || group["total"] != float64(5) {
		t.Errorf("Expected attrs and group on the JSON handler, got %v", rec)
	}
}
