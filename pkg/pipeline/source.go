package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/protocol"
)

// ErrSourceFull is returned by ChanSource.Push when the buffer is full.
var ErrSourceFull = errors.New("source buffer full")

// View is an image that can be annotated and shown. Camera samples carry one;
// remote and recorded samples do not.
type View interface {
	Annotate(r drowsiness.Result)
	JPEG() ([]byte, error)
	Close() error
}

// Sample is one unit of input: the monitor frame plus an optional view.
type Sample struct {
	Frame drowsiness.Frame
	View  View
}

// Source produces samples in order. Next returns io.EOF at the end of the
// stream and ctx.Err() when cancelled.
type Source interface {
	Next(ctx context.Context) (Sample, error)
	Close() error
}

// ChanSource is fed by another goroutine, e.g. the websocket ingest.
type ChanSource struct {
	ch      chan Sample
	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// NewChanSource creates a source with a bounded buffer.
func NewChanSource(buffer int) *ChanSource {
	if buffer < 1 {
		buffer = 1
	}
	return &ChanSource{ch: make(chan Sample, buffer)}
}

// Push queues a sample without blocking. Samples are dropped when the buffer
// is full or the source is closed.
func (s *ChanSource) Push(sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	select {
	case s.ch <- sample:
		return nil
	default:
		s.dropped.Add(1)
		return ErrSourceFull
	}
}

// PushFrame is Push for samples without a view.
func (s *ChanSource) PushFrame(f drowsiness.Frame) error {
	return s.Push(Sample{Frame: f})
}

// Next blocks until a sample arrives, the source is closed, or ctx ends.
func (s *ChanSource) Next(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case sample, ok := <-s.ch:
		if !ok {
			return Sample{}, io.EOF
		}
		return sample, nil
	}
}

// Dropped returns how many samples were dropped by Push.
func (s *ChanSource) Dropped() uint64 {
	return s.dropped.Load()
}

// Close ends the stream. Buffered samples are still delivered.
func (s *ChanSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// JSONLSource replays protocol landmark messages, one per line.
// Other message types are skipped.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int

	// Interval paces the replay; zero replays as fast as possible.
	Interval time.Duration
	ticker   *time.Ticker
}

// NewJSONLSource reads from r. If r is an io.Closer it is closed by Close.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	s := &JSONLSource{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next returns the next recorded frame.
func (s *JSONLSource) Next(ctx context.Context) (Sample, error) {
	if err := s.wait(ctx); err != nil {
		return Sample{}, err
	}

	for s.scanner.Scan() {
		s.line++
		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		msg, err := protocol.ParseMessage(raw)
		if err != nil {
			return Sample{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		if msg.Type != protocol.TypeLandmarks {
			continue
		}

		data, err := msg.GetLandmarksData()
		if err != nil {
			return Sample{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return Sample{Frame: data.Frame(msg.Time())}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return Sample{}, err
	}
	return Sample{}, io.EOF
}

func (s *JSONLSource) wait(ctx context.Context) error {
	if s.Interval <= 0 {
		return ctx.Err()
	}
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.Interval)
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ticker.C:
		return nil
	}
}

// Close stops pacing and closes the underlying reader.
func (s *JSONLSource) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// RecordingSource writes every frame it passes through as a JSONL landmark
// message, so a live session can be replayed later.
type RecordingSource struct {
	Source
	w   *bufio.Writer
	err error
}

// NewRecordingSource wraps src and records to w.
func NewRecordingSource(src Source, w io.Writer) *RecordingSource {
	return &RecordingSource{Source: src, w: bufio.NewWriter(w)}
}

// Next reads from the wrapped source and records the frame.
func (r *RecordingSource) Next(ctx context.Context) (Sample, error) {
	sample, err := r.Source.Next(ctx)
	if err != nil {
		return sample, err
	}
	if r.err == nil {
		r.err = r.write(sample.Frame)
	}
	return sample, nil
}

func (r *RecordingSource) write(f drowsiness.Frame) error {
	msg, err := protocol.NewFrameMessage(f)
	if err != nil {
		return err
	}
	b, err := msg.Bytes()
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

// Err returns the first write error. Recording stops after it.
func (r *RecordingSource) Err() error {
	return r.err
}

// Close flushes the recording and closes the wrapped source.
func (r *RecordingSource) Close() error {
	flushErr := r.w.Flush()
	if err := r.Source.Close(); err != nil {
		return err
	}
	return flushErr
}
