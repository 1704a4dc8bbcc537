package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

const writeTimeout = 5 * time.Second

// Recorder persists alert events off the frame loop. It implements
// drowsiness.Handler; events are dropped when the queue is full.
type Recorder struct {
	store   *Store
	session string
	events  chan drowsiness.Event

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	// OnRecord, if set, is called after each write attempt.
	OnRecord func(Event, error)
}

// NewRecorder creates a recorder for one session.
func NewRecorder(s *Store, sessionID string, buffer int) *Recorder {
	if buffer < 1 {
		buffer = 1
	}
	return &Recorder{
		store:   s,
		session: sessionID,
		events:  make(chan drowsiness.Event, buffer),
	}
}

// OnAlertTriggered queues the event.
func (r *Recorder) OnAlertTriggered(e drowsiness.Event) {
	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
		log.Warn("event recorder full, dropping", "kind", e.Kind, "seq", e.Seq)
	}
}

// Run writes queued events until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case e := <-r.events:
			r.write(ctx, e)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case e := <-r.events:
			r.write(context.Background(), e)
		default:
			return
		}
	}
}

// write outlives cancellation of ctx so queued events still land on shutdown.
func (r *Recorder) write(ctx context.Context, e drowsiness.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	ev, err := r.store.InsertEvent(ctx, r.session, e)
	if err != nil {
		r.failed.Add(1)
		log.Error("record event", "kind", e.Kind, "seq", e.Seq, "error", err)
	} else {
		r.written.Add(1)
	}
	if r.OnRecord != nil {
		r.OnRecord(ev, err)
	}
}

// RecorderStats counts recorder outcomes.
type RecorderStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

// Stats returns the counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
	}
}
