package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-drowsy/internal/config"
)

// Frame sources.
const (
	SourceCamera = "camera" // Local capture device or video file
	SourceIngest = "ingest" // Remote producers over WebSocket
	SourceReplay = "replay" // Recorded JSONL session
)

// Config holds everything the monitor needs. Flag parsing is done in
// cmd/drowsy; this struct is data only.
type Config struct {
	Settings config.Config

	Source     string
	ReplayPath string
	ReplayFPS  float64 // 0 replays as fast as possible
	RecordPath string  // Write monitor input frames as JSONL
	PushURL    string  // Forward camera landmarks to a remote monitor
	Window     bool    // Local preview window (camera source only)

	Debug       bool
	DebugFrames bool
}

// DefaultConfig returns a camera monitor. The preview window is off in
// production.
func DefaultConfig(settings config.Config) Config {
	return Config{
		Settings: settings,
		Source:   SourceCamera,
		Window:   !settings.IsProduction(),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if errs := c.Settings.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Settings", Message: strings.Join(errs, "; ")}
	}

	switch c.Source {
	case SourceCamera, SourceIngest:
	case SourceReplay:
		if c.ReplayPath == "" {
			return &ConfigError{Field: "ReplayPath", Message: "replay source needs a file (-replay)"}
		}
	default:
		return &ConfigError{Field: "Source", Message: fmt.Sprintf("unknown source %q (camera, ingest, replay)", c.Source)}
	}

	if c.ReplayFPS < 0 {
		return &ConfigError{Field: "ReplayFPS", Message: "replay fps must not be negative"}
	}
	if c.PushURL != "" && c.Source != SourceCamera {
		return &ConfigError{Field: "PushURL", Message: "-push only applies to the camera source"}
	}
	if c.Source == SourceIngest && c.Settings.Port == 0 {
		return &ConfigError{Field: "Port", Message: "ingest source needs the web server (port > 0)"}
	}
	return nil
}

// ReplayInterval converts ReplayFPS to a frame interval.
func (c *Config) ReplayInterval() time.Duration {
	if c.ReplayFPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.ReplayFPS)
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
