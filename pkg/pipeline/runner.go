// Package pipeline runs the frame loop: it pulls samples from a Source, feeds
// them through a drowsiness.Monitor in order, and hands the results to the
// display and publishers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/debug"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Display shows annotated views. Show reports whether the user asked to quit.
type Display interface {
	Show(v View) (quit bool)
	Close() error
}

// Publisher receives every result. It runs on the frame loop and must not
// block. The view is only valid during the call.
type Publisher interface {
	Publish(r drowsiness.Result, v View)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(r drowsiness.Result, v View)

// Publish calls f(r, v).
func (f PublisherFunc) Publish(r drowsiness.Result, v View) { f(r, v) }

// Runner is the single owner of a Monitor.
type Runner struct {
	monitor    *drowsiness.Monitor
	source     Source
	display    Display
	publishers []Publisher
	stats      *Stats

	resetRequested atomic.Bool
}

// NewRunner creates a runner. display may be nil.
func NewRunner(m *drowsiness.Monitor, src Source, display Display, pubs ...Publisher) *Runner {
	return &Runner{
		monitor:    m,
		source:     src,
		display:    display,
		publishers: pubs,
		stats:      NewStats(),
	}
}

// AddPublisher registers a publisher. Call before Run.
func (r *Runner) AddPublisher(p Publisher) {
	r.publishers = append(r.publishers, p)
}

// Stats returns the loop counters.
func (r *Runner) Stats() *Stats {
	return r.stats
}

// RequestReset clears the monitor state before the next frame. Safe to call
// from any goroutine.
func (r *Runner) RequestReset() {
	r.resetRequested.Store(true)
}

// Run processes samples until the source ends, ctx is cancelled, or the
// display asks to quit. Those are clean stops and return nil.
func (r *Runner) Run(ctx context.Context) error {
	for {
		sample, err := r.source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			log.Info("end of stream", "frames", r.stats.Frames())
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("read frame: %w", err)
		}

		if quit := r.step(sample); quit {
			log.Info("quit requested", "frames", r.stats.Frames())
			return nil
		}
	}
}

// step processes one sample and releases its view.
func (r *Runner) step(sample Sample) bool {
	if sample.View != nil {
		defer sample.View.Close()
	}

	if r.resetRequested.CompareAndSwap(true, false) {
		r.monitor.Reset()
		log.Info("monitor state reset")
	}

	start := time.Now()
	res, err := r.monitor.Process(sample.Frame)
	if err != nil {
		r.stats.RecordError()
		log.Warn("frame rejected", "seq", sample.Frame.Seq, "error", err)
		return false
	}
	r.stats.RecordFrame(res, time.Since(start))

	for _, k := range res.Triggered {
		log.Warn("🚨 alert", "kind", k, "seq", res.Seq, "ear", res.SmoothedEAR, "lip", res.LipDistance)
	}
	debug.FrameLog(res)

	if sample.View != nil {
		sample.View.Annotate(res)
	}
	for _, p := range r.publishers {
		p.Publish(res, sample.View)
	}

	if r.display != nil && sample.View != nil {
		return r.display.Show(sample.View)
	}
	return false
}
