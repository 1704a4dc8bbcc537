// Package camera holds runtime-configurable capture settings for the driver
// camera. Processing settings apply from the next frame; a change to any
// capture setting makes the vision package reopen the device.
package camera

import "time"

// Config holds all capture configuration parameters.
// These can be modified via the dashboard API at runtime.
type Config struct {
	// === Source ===
	Device string `json:"device"` // Index ("0") or a file/stream URL

	// === Capture ===
	CaptureWidth  int `json:"capture_width"`  // Requested sensor width, 0 for driver default
	CaptureHeight int `json:"capture_height"` // Requested sensor height, 0 for driver default
	Framerate     int `json:"framerate"`      // Requested FPS, 0 for driver default

	// === Processing ===
	// Width is the frame width after resizing, before detection.
	// Thresholds in pkg/drowsiness are tuned for 450.
	Width  int  `json:"width"`
	Mirror bool `json:"mirror"` // Flip horizontally for a selfie-style preview

	// Quality is the JPEG quality for dashboard frames (1-100).
	Quality int `json:"quality"`

	// Warmup is how long to wait after opening the device before reading.
	Warmup time.Duration `json:"warmup"`
}

// CaptureChanged reports whether moving from c to next requires reopening
// the device.
func (c Config) CaptureChanged(next Config) bool {
	return c.Device != next.Device ||
		c.CaptureWidth != next.CaptureWidth ||
		c.CaptureHeight != next.CaptureHeight ||
		c.Framerate != next.Framerate
}

// Limits
const (
	MinWidth     = 160
	MaxWidth     = 1920
	MaxFramerate = 120
	MaxWarmup    = 10 * time.Second
)

// DefaultConfig returns the settings of the reference setup: first camera,
// resized to 450px, one second warm-up.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     450,
		Quality:   70,
		Warmup:    time.Second,
		Framerate: 0, // Driver default
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device is required")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 1920")
	}
	if c.CaptureWidth < 0 || c.CaptureHeight < 0 {
		errors = append(errors, "capture size must not be negative")
	}
	if c.Framerate < 0 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 0 (default) and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.Warmup < 0 || c.Warmup > MaxWarmup {
		errors = append(errors, "warmup must be between 0 and 10s")
	}

	return errors
}
