package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo, true).Info("alert", "kind", "yawn")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"kind":"yawn"`) {
		t.Errorf("JSON output: %s", buf.String())
	}

	buf.Reset()
	newLogger(&buf, slog.LevelWarn, false).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
}

func TestInitAdjustsLevel(t *testing.T) {
	defer Init("info")

	Init("error")
	if L().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}

	Init("debug")
	if !L().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after re-Init")
	}
}
