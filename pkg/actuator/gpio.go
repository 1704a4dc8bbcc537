package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// GPIO lights an active-high LED for a fixed duration per alert.
type GPIO struct {
	pins     map[drowsiness.Kind]gpio.PinOut
	duration time.Duration
	mu       sync.Mutex
}

// NewGPIO opens the named pins (BCM names such as "GPIO18"). yawnPin may be
// empty to share the drowsiness indicator.
func NewGPIO(pin, yawnPin string, duration time.Duration) (*GPIO, error) {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("init gpio host: %w", hostErr)
	}

	primary, err := openPin(pin)
	if err != nil {
		return nil, err
	}

	g := &GPIO{
		pins:     map[drowsiness.Kind]gpio.PinOut{drowsiness.KindDrowsiness: primary, drowsiness.KindYawn: primary},
		duration: duration,
	}

	if yawnPin != "" && yawnPin != pin {
		yawn, err := openPin(yawnPin)
		if err != nil {
			return nil, err
		}
		g.pins[drowsiness.KindYawn] = yawn
	}

	return g, nil
}

func openPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("set %s low: %w", name, err)
	}
	return p, nil
}

// Pulse drives the pin high for the configured duration. Cancellation turns
// the LED off early.
func (g *GPIO) Pulse(ctx context.Context, kind drowsiness.Kind) error {
	pin, ok := g.pins[kind]
	if !ok {
		return fmt.Errorf("no gpio pin for %s", kind)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := pin.Out(gpio.High); err != nil {
		return fmt.Errorf("led on: %w", err)
	}

	timer := time.NewTimer(g.duration)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("led off: %w", err)
	}
	return waitErr
}

// Close switches every pin off.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var firstErr error
	for _, pin := range g.pins {
		if err := pin.Out(gpio.Low); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
