package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Stats counts frame loop activity. Safe for concurrent reads.
type Stats struct {
	frames       atomic.Int64
	faceFrames   atomic.Int64
	noFaceFrames atomic.Int64
	errors       atomic.Int64
	drowsyAlerts atomic.Int64
	yawnAlerts   atomic.Int64
	totalLatency atomic.Int64 // Microseconds
	lastFrame    atomic.Int64 // Unix milliseconds

	mu      sync.Mutex
	started time.Time
	fps     float64
	window  []time.Time
}

// StatsSnapshot is a JSON view of Stats.
type StatsSnapshot struct {
	Frames       int64     `json:"frames"`
	FaceFrames   int64     `json:"face_frames"`
	NoFaceFrames int64     `json:"no_face_frames"`
	Errors       int64     `json:"errors"`
	DrowsyAlerts int64     `json:"drowsy_alerts"`
	YawnAlerts   int64     `json:"yawn_alerts"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	FPS          float64   `json:"fps"`
	Started      time.Time `json:"started"`
	LastFrame    time.Time `json:"last_frame"`
}

const fpsWindow = 30

// NewStats creates empty stats.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// RecordFrame counts one processed frame.
func (s *Stats) RecordFrame(r drowsiness.Result, latency time.Duration) {
	now := time.Now()
	s.frames.Add(1)
	s.lastFrame.Store(now.UnixMilli())
	s.totalLatency.Add(latency.Microseconds())

	if r.FaceDetected {
		s.faceFrames.Add(1)
	} else {
		s.noFaceFrames.Add(1)
	}
	for _, k := range r.Triggered {
		switch k {
		case drowsiness.KindDrowsiness:
			s.drowsyAlerts.Add(1)
		case drowsiness.KindYawn:
			s.yawnAlerts.Add(1)
		}
	}

	s.mu.Lock()
	s.window = append(s.window, now)
	if len(s.window) > fpsWindow {
		s.window = s.window[len(s.window)-fpsWindow:]
	}
	if n := len(s.window); n > 1 {
		if span := s.window[n-1].Sub(s.window[0]); span > 0 {
			s.fps = float64(n-1) / span.Seconds()
		}
	}
	s.mu.Unlock()
}

// RecordError counts a rejected frame.
func (s *Stats) RecordError() {
	s.errors.Add(1)
}

// Frames returns the number of processed frames.
func (s *Stats) Frames() int64 {
	return s.frames.Load()
}

// Errors returns the number of rejected frames.
func (s *Stats) Errors() int64 {
	return s.errors.Load()
}

// FPS returns the frame rate over the last frames.
func (s *Stats) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	frames := s.frames.Load()
	snap := StatsSnapshot{
		Frames:       frames,
		FaceFrames:   s.faceFrames.Load(),
		NoFaceFrames: s.noFaceFrames.Load(),
		Errors:       s.errors.Load(),
		DrowsyAlerts: s.drowsyAlerts.Load(),
		YawnAlerts:   s.yawnAlerts.Load(),
		FPS:          s.FPS(),
	}
	if frames > 0 {
		snap.AvgLatencyMs = float64(s.totalLatency.Load()) / float64(frames) / 1000
	}
	if ms := s.lastFrame.Load(); ms > 0 {
		snap.LastFrame = time.UnixMilli(ms)
	}
	s.mu.Lock()
	snap.Started = s.started
	s.mu.Unlock()
	return snap
}
