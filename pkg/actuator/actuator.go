// Package actuator drives the physical alert indicator and decouples it from
// the frame loop.
//
// An Actuator performs one blocking pulse. The Dispatcher owns a queue and a
// worker goroutine so that a slow or missing indicator never stalls frame
// processing.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// ErrQueueFull is returned by Trigger when the dispatcher queue is saturated.
var ErrQueueFull = errors.New("actuator queue full")

// Actuator energizes an indicator for one alert and returns once it is off again.
type Actuator interface {
	Pulse(ctx context.Context, kind drowsiness.Kind) error
	Close() error
}

// Drivers
const (
	DriverGPIO    = "gpio"
	DriverCommand = "command"
	DriverHTTP    = "http"
	DriverLog     = "log"
)

// Config selects and parameterizes an actuator driver.
type Config struct {
	Driver string `json:"driver"`

	// GPIO
	Pin     string `json:"pin"`      // e.g. GPIO18
	YawnPin string `json:"yawn_pin"` // Optional separate indicator for yawns

	// Pulse length (gpio, http, log)
	Duration time.Duration `json:"duration"`

	// Command: argv of an external program, e.g. python3 alert_sys_v1.py
	Command []string `json:"command"`

	// HTTP endpoint receiving alert POSTs
	URL string `json:"url"`

	// Dispatcher
	QueueSize    int           `json:"queue_size"`
	PulseTimeout time.Duration `json:"pulse_timeout"`
}

// DefaultConfig returns a log-only actuator with the LED timing of the
// reference hardware (GPIO18, 5s).
func DefaultConfig() Config {
	return Config{
		Driver:    DriverLog,
		Pin:       "GPIO18",
		Duration:  5 * time.Second,
		Command:   []string{"sudo", "python3", "alert_sys_v1.py"},
		QueueSize: 8,
	}
}

// Timeout returns the per-pulse deadline.
func (c Config) Timeout() time.Duration {
	if c.PulseTimeout > 0 {
		return c.PulseTimeout
	}
	return c.Duration + 2*time.Second
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Driver {
	case DriverGPIO:
		if c.Pin == "" {
			errors = append(errors, "pin is required for gpio driver")
		}
	case DriverCommand:
		if len(c.Command) == 0 || strings.TrimSpace(c.Command[0]) == "" {
			errors = append(errors, "command is required for command driver")
		}
	case DriverHTTP:
		if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
			errors = append(errors, "url must be http:// or https:// for http driver")
		}
	case DriverLog:
	default:
		errors = append(errors, fmt.Sprintf("unknown driver %q (gpio, command, http, log)", c.Driver))
	}

	if c.Duration <= 0 {
		errors = append(errors, "duration must be positive")
	}
	if c.QueueSize < 1 {
		errors = append(errors, "queue_size must be at least 1")
	}

	return errors
}

// New builds the actuator selected by cfg.Driver.
func New(cfg Config) (Actuator, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid actuator config: %v", errs)
	}

	switch cfg.Driver {
	case DriverGPIO:
		g, err := NewGPIO(cfg.Pin, cfg.YawnPin, cfg.Duration)
		if err != nil {
			return nil, err
		}
		return g, nil
	case DriverCommand:
		return NewCommand(cfg.Command...), nil
	case DriverHTTP:
		return NewHTTP(cfg.URL, cfg.Duration), nil
	default:
		return NewLog(cfg.Duration), nil
	}
}
