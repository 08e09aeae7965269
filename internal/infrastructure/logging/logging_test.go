package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{" INFO ", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSetupLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := SetupLogger(Config{Level: "warn", Output: &buf})
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", slog.String("table", "users"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info record to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "table=users") {
		t.Errorf("Expected warn record with attributes, got %q", out)
	}
}

func TestSetupLoggerInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := SetupLogger(Config{Level: "loud", Output: &buf})
	defer closeFn()

	if !strings.Contains(buf.String(), "invalid log level") {
		t.Errorf("Expected a warning about the level, got %q", buf.String())
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected fallback to info level")
	}
}

func TestMultiHandlerFansOut(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	multi := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(multi).With("component", "test")

	logger.Debug("details")
	logger.Error("failure")

	if !strings.Contains(debugBuf.String(), "details") || !strings.Contains(debugBuf.String(), "failure") {
		t.Errorf("Expected debug handler to get both records, got %q", debugBuf.String())
	}
	if strings.Contains(errorBuf.String(), "details") {
		t.Errorf("Expected error handler to skip debug record, got %q", errorBuf.String())
	}
	if !strings.Contains(errorBuf.String(), "component=test") {
		t.Errorf("Expected attributes to reach every handler, got %q", errorBuf.String())
	}
}
