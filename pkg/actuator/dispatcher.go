package actuator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Stats counts dispatcher activity.
type Stats struct {
	Queued   uint64 `json:"queued"`
	Dropped  uint64 `json:"dropped"`
	Pulses   uint64 `json:"pulses"`
	Failures uint64 `json:"failures"`
	Pending  int    `json:"pending"`
}

// Dispatcher queues alert events and pulses the actuator from its own
// goroutine. It implements drowsiness.Handler.
type Dispatcher struct {
	actuator Actuator
	queue    chan drowsiness.Event
	timeout  time.Duration

	// OnPulse, if set, is called from the worker after each pulse
	OnPulse func(e drowsiness.Event, err error)

	queued   atomic.Uint64
	dropped  atomic.Uint64
	pulses   atomic.Uint64
	failures atomic.Uint64
}

// NewDispatcher creates a dispatcher with a bounded queue. timeout bounds each
// pulse.
func NewDispatcher(act Actuator, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		actuator: act,
		queue:    make(chan drowsiness.Event, queueSize),
		timeout:  timeout,
	}
}

// OnAlertTriggered enqueues the event without blocking. Events are dropped
// when the queue is full.
func (d *Dispatcher) OnAlertTriggered(e drowsiness.Event) {
	if err := d.enqueue(e); err != nil {
		log.Warn("actuator queue full, dropping alert", "kind", e.Kind, "seq", e.Seq)
	}
}

// Trigger queues a manual pulse, e.g. from the dashboard.
func (d *Dispatcher) Trigger(kind drowsiness.Kind) error {
	return d.enqueue(drowsiness.Event{Kind: kind, Time: time.Now()})
}

func (d *Dispatcher) enqueue(e drowsiness.Event) error {
	select {
	case d.queue <- e:
		d.queued.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run pulses the actuator for queued events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			d.pulse(ctx, e)
		}
	}
}

func (d *Dispatcher) pulse(ctx context.Context, e drowsiness.Event) {
	pctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := d.actuator.Pulse(pctx, e.Kind)
	d.pulses.Add(1)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		log.Info("actuator pulse stopped on shutdown", "kind", e.Kind, "seq", e.Seq)
		return
	}
	if err != nil {
		d.failures.Add(1)
		log.Error("actuator pulse failed", "kind", e.Kind, "seq", e.Seq, "error", err)
	} else {
		log.Debug("actuator pulse done", "kind", e.Kind, "seq", e.Seq, "took", time.Since(start))
	}

	if d.OnPulse != nil {
		d.OnPulse(e, err)
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:   d.queued.Load(),
		Dropped:  d.dropped.Load(),
		Pulses:   d.pulses.Load(),
		Failures: d.failures.Load(),
		Pending:  len(d.queue),
	}
}

// Close releases the underlying actuator. Call after Run has returned.
func (d *Dispatcher) Close() error {
	return d.actuator.Close()
}
