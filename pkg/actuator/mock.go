package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Log only logs pulses. It is the default when no indicator is wired.
type Log struct {
	duration time.Duration
}

// NewLog creates a log-only actuator.
func NewLog(duration time.Duration) *Log {
	return &Log{duration: duration}
}

// Pulse logs the alert and returns immediately.
func (l *Log) Pulse(ctx context.Context, kind drowsiness.Kind) error {
	log.Info("💡 alert indicator", "kind", kind, "duration", l.duration)
	return nil
}

// Close is a no-op.
func (l *Log) Close() error {
	return nil
}

// Mock records pulses for tests. Delay simulates a slow indicator.
type Mock struct {
	Delay time.Duration
	Err   error

	mu     sync.Mutex
	pulses []drowsiness.Kind
	closed bool
	done   chan drowsiness.Kind
}

// NewMock creates a mock actuator. Completed pulses are also sent on Done().
func NewMock() *Mock {
	return &Mock{done: make(chan drowsiness.Kind, 64)}
}

// Pulse records the kind, waiting Delay or until ctx ends.
func (m *Mock) Pulse(ctx context.Context, kind drowsiness.Kind) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	m.pulses = append(m.pulses, kind)
	m.mu.Unlock()

	select {
	case m.done <- kind:
	default:
	}
	return m.Err
}

// Pulses returns the recorded kinds.
func (m *Mock) Pulses() []drowsiness.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]drowsiness.Kind, len(m.pulses))
	copy(out, m.pulses)
	return out
}

// Done delivers each completed pulse.
func (m *Mock) Done() <-chan drowsiness.Kind {
	return m.done
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
