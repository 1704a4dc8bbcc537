package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness/drowsytest"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// sliceSource replays frames then returns io.EOF.
type sliceSource struct {
	samples []Sample
	closed  bool
}

func framesSource(frames []drowsiness.Frame) *sliceSource {
	s := &sliceSource{}
	for _, f := range frames {
		s.samples = append(s.samples, Sample{Frame: f})
	}
	return s
}

func (s *sliceSource) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if len(s.samples) == 0 {
		return Sample{}, io.EOF
	}
	next := s.samples[0]
	s.samples = s.samples[1:]
	return next, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type fakeView struct {
	annotated []drowsiness.Result
	closed    bool
}

func (v *fakeView) Annotate(r drowsiness.Result) { v.annotated = append(v.annotated, r) }
func (v *fakeView) JPEG() ([]byte, error)        { return []byte{0xFF, 0xD8}, nil }
func (v *fakeView) Close() error                 { v.closed = true; return nil }

type quitAfter struct {
	n     int
	shown int
}

func (d *quitAfter) Show(v View) bool {
	d.shown++
	return d.shown >= d.n
}

func (d *quitAfter) Close() error { return nil }

type eventLog struct {
	mu     sync.Mutex
	events []drowsiness.Event
}

func (l *eventLog) OnAlertTriggered(e drowsiness.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func newMonitor(t *testing.T, handlers ...drowsiness.Handler) *drowsiness.Monitor {
	t.Helper()
	m, err := drowsiness.NewMonitor(drowsiness.DefaultConfig(), handlers...)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return m
}

func TestRunnerDrowsyScenario(t *testing.T) {
	events := &eventLog{}
	src := framesSource(drowsytest.Sequence(drowsytest.Closed(30)))

	var published []drowsiness.Result
	pub := PublisherFunc(func(r drowsiness.Result, v View) { published = append(published, r) })

	r := NewRunner(newMonitor(t, events), src, nil, pub)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(events.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(events.events))
	}
	if events.events[0].Seq != 19 {
		t.Errorf("trigger seq: got %d, want 19", events.events[0].Seq)
	}
	if len(published) != 30 {
		t.Errorf("published: got %d, want 30", len(published))
	}

	snap := r.Stats().Snapshot()
	if snap.Frames != 30 || snap.DrowsyAlerts != 1 || snap.FaceFrames != 30 {
		t.Errorf("Snapshot: %+v", snap)
	}
}

func TestRunnerNoFaceGap(t *testing.T) {
	events := &eventLog{}
	src := framesSource(drowsytest.Sequence(
		drowsytest.Closed(25), drowsytest.NoFace(1), drowsytest.Closed(25),
	))

	r := NewRunner(newMonitor(t, events), src, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(events.events) != 2 {
		t.Fatalf("events: got %d, want 2", len(events.events))
	}
	if events.events[1].Seq != 45 {
		t.Errorf("second trigger seq: got %d, want 45", events.events[1].Seq)
	}
	if got := r.Stats().Snapshot().NoFaceFrames; got != 1 {
		t.Errorf("NoFaceFrames: got %d, want 1", got)
	}
}

func TestRunnerSkipsMalformedFrames(t *testing.T) {
	frames := drowsytest.Sequence(drowsytest.Closed(10))
	frames[4].Face = make(landmarks.Set, 12)
	src := framesSource(frames)

	r := NewRunner(newMonitor(t), src, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := r.Stats().Snapshot()
	if snap.Errors != 1 {
		t.Errorf("Errors: got %d, want 1", snap.Errors)
	}
	if snap.Frames != 9 {
		t.Errorf("Frames: got %d, want 9", snap.Frames)
	}
}

func TestRunnerViewLifecycleAndQuit(t *testing.T) {
	views := []*fakeView{{}, {}, {}, {}}
	src := &sliceSource{}
	for i, v := range views {
		src.samples = append(src.samples, Sample{
			Frame: drowsytest.Frame(uint64(i), drowsytest.Face(drowsytest.OpenEAR, drowsytest.RestLip)),
			View:  v,
		})
	}

	display := &quitAfter{n: 2}
	r := NewRunner(newMonitor(t), src, display)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if display.shown != 2 {
		t.Errorf("shown: got %d, want 2", display.shown)
	}
	for i := 0; i < 2; i++ {
		if len(views[i].annotated) != 1 || !views[i].closed {
			t.Errorf("view %d: annotated %d closed %v", i, len(views[i].annotated), views[i].closed)
		}
	}
	if len(views[2].annotated) != 0 {
		t.Error("frames after quit should not be processed")
	}
}

func TestRunnerReset(t *testing.T) {
	events := &eventLog{}
	src := NewChanSource(64)
	for _, f := range drowsytest.Sequence(drowsytest.Closed(15)) {
		src.PushFrame(f)
	}

	r := NewRunner(newMonitor(t, events), src, nil)

	var mu sync.Mutex
	var last drowsiness.Result
	r.AddPublisher(PublisherFunc(func(res drowsiness.Result, v View) {
		mu.Lock()
		last = res
		mu.Unlock()
	}))

	r.RequestReset()
	for _, f := range drowsytest.Sequence(drowsytest.Closed(15)) {
		f.Seq += 15
		src.PushFrame(f)
	}
	src.Close()

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Reset applies before the first frame, so all 30 closed frames count
	if len(events.events) != 1 {
		t.Errorf("events: got %d, want 1", len(events.events))
	}
	mu.Lock()
	defer mu.Unlock()
	if last.Seq != 29 {
		t.Errorf("last seq: got %d, want 29", last.Seq)
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	src := NewChanSource(1)
	r := NewRunner(newMonitor(t), src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: got %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

type brokenSource struct{}

func (brokenSource) Next(ctx context.Context) (Sample, error) {
	return Sample{}, errors.New("camera unplugged")
}
func (brokenSource) Close() error { return nil }

func TestRunnerSourceError(t *testing.T) {
	r := NewRunner(newMonitor(t), brokenSource{}, nil)
	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "camera unplugged") {
		t.Errorf("Run: got %v, want source error", err)
	}
}

func TestChanSource(t *testing.T) {
	src := NewChanSource(2)

	if err := src.PushFrame(drowsiness.Frame{Seq: 1}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	src.PushFrame(drowsiness.Frame{Seq: 2})
	if err := src.PushFrame(drowsiness.Frame{Seq: 3}); !errors.Is(err, ErrSourceFull) {
		t.Errorf("Push when full: got %v, want ErrSourceFull", err)
	}
	if src.Dropped() != 1 {
		t.Errorf("Dropped: got %d, want 1", src.Dropped())
	}

	src.Close()
	if err := src.PushFrame(drowsiness.Frame{Seq: 4}); err == nil {
		t.Error("Push after Close should fail")
	}

	ctx := context.Background()
	for _, want := range []uint64{1, 2} {
		s, err := src.Next(ctx)
		if err != nil || s.Frame.Seq != want {
			t.Errorf("Next: got %d, %v; want %d", s.Frame.Seq, err, want)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Next after drain: got %v, want io.EOF", err)
	}
	src.Close()
}

func TestRecordAndReplay(t *testing.T) {
	frames := drowsytest.Sequence(drowsytest.Closed(22), drowsytest.NoFace(1), drowsytest.Yawning(12))

	var buf bytes.Buffer
	live := NewRecordingSource(framesSource(frames), &buf)
	liveEvents := &eventLog{}
	if err := NewRunner(newMonitor(t, liveEvents), live, nil).Run(context.Background()); err != nil {
		t.Fatalf("live Run: %v", err)
	}
	if err := live.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if live.Err() != nil {
		t.Fatalf("recording error: %v", live.Err())
	}

	if lines := strings.Count(buf.String(), "\n"); lines != len(frames) {
		t.Fatalf("recorded %d lines, want %d", lines, len(frames))
	}

	replayEvents := &eventLog{}
	replay := NewJSONLSource(strings.NewReader(buf.String()))
	if err := NewRunner(newMonitor(t, replayEvents), replay, nil).Run(context.Background()); err != nil {
		t.Fatalf("replay Run: %v", err)
	}

	if len(liveEvents.events) != 2 {
		t.Fatalf("live events: got %d, want 2", len(liveEvents.events))
	}
	if len(replayEvents.events) != len(liveEvents.events) {
		t.Fatalf("replay events: got %d, want %d", len(replayEvents.events), len(liveEvents.events))
	}
	for i := range liveEvents.events {
		l, r := liveEvents.events[i], replayEvents.events[i]
		if l.Kind != r.Kind || l.Seq != r.Seq {
			t.Errorf("event %d: live %v@%d replay %v@%d", i, l.Kind, l.Seq, r.Kind, r.Seq)
		}
	}
}

func TestJSONLSourceSkipsOtherMessages(t *testing.T) {
	input := `{"type":"ping","ts":1}

{"type":"landmarks","ts":2000,"data":{"frame_id":9,"faces":[]}}
`
	src := NewJSONLSource(strings.NewReader(input))
	s, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.Frame.Seq != 9 || s.Frame.HasFace() {
		t.Errorf("frame: %+v", s.Frame)
	}
	if !s.Frame.Time.Equal(time.UnixMilli(2000)) {
		t.Errorf("Time: got %v", s.Frame.Time)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next at end: got %v, want io.EOF", err)
	}
}

func TestJSONLSourceBadLine(t *testing.T) {
	src := NewJSONLSource(strings.NewReader("{not json}\n"))
	_, err := src.Next(context.Background())
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("Next: got %v, want line 1 error", err)
	}
}

func TestJSONLSourceInterval(t *testing.T) {
	input := strings.Repeat(`{"type":"landmarks","data":{"frame_id":1,"faces":[]}}`+"\n", 3)
	src := NewJSONLSource(strings.NewReader(input))
	src.Interval = 20 * time.Millisecond
	defer src.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := src.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if took := time.Since(start); took < 35*time.Millisecond {
		t.Errorf("paced replay took %v, want at least 2 intervals", took)
	}
}
