package drowsiness

import "github.com/teslashibe/go-drowsy/pkg/landmarks"

// Config holds the detection thresholds.
type Config struct {
	// Eyes
	EARThreshold float64 `json:"ear_threshold"` // Smoothed EAR below this counts as closed
	EyeFrames    int     `json:"eye_frames"`    // Consecutive closed frames before alerting

	// Mouth
	YawnThreshold float64 `json:"yawn_threshold"` // Lip distance above this counts as a yawn (pixels)
	YawnFrames    int     `json:"yawn_frames"`    // Consecutive yawn frames before alerting

	SmoothingWindow int `json:"smoothing_window"` // EAR values averaged

	Layout landmarks.Layout `json:"-"`
}

// DefaultConfig returns thresholds tuned for a 450px wide frame and a
// 68-point landmark model.
func DefaultConfig() Config {
	return Config{
		EARThreshold:    0.25,
		EyeFrames:       20,
		YawnThreshold:   25,
		YawnFrames:      10,
		SmoothingWindow: 5,
		Layout:          landmarks.Dlib68,
	}
}

// SensitiveConfig alerts sooner, for drivers with narrow eyes or low frame rates.
func SensitiveConfig() Config {
	cfg := DefaultConfig()
	cfg.EARThreshold = 0.27
	cfg.EyeFrames = 12
	cfg.YawnFrames = 6
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.EARThreshold <= 0 || c.EARThreshold >= 1 {
		errors = append(errors, "ear_threshold must be between 0 and 1")
	}
	if c.EyeFrames < 1 {
		errors = append(errors, "eye_frames must be at least 1")
	}
	if c.YawnThreshold <= 0 {
		errors = append(errors, "yawn_threshold must be positive")
	}
	if c.YawnFrames < 1 {
		errors = append(errors, "yawn_frames must be at least 1")
	}
	if c.SmoothingWindow < 1 {
		errors = append(errors, "smoothing_window must be at least 1")
	}
	if c.Layout.Points == 0 {
		errors = append(errors, "landmark layout is not set")
	}

	return errors
}
