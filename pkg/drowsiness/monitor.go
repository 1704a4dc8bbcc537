// Package drowsiness turns per-frame facial landmarks into debounced
// drowsiness and yawn alerts.
//
// A Monitor is owned by a single frame loop. Each call to Process computes the
// eye aspect ratio and lip distance, smooths the EAR, advances one Alert per
// kind, and notifies registered handlers when an alert transitions into the
// alerting phase. Handlers are called synchronously from Process and must hand
// work off instead of blocking.
package drowsiness

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// Frame is the per-frame input. A nil Face means no face was detected.
type Frame struct {
	Seq   uint64
	Time  time.Time
	Face  landmarks.Set
	Faces int // Faces detected in the frame, including ignored ones
}

// HasFace reports whether the frame carries landmarks.
func (f Frame) HasFace() bool {
	return f.Face != nil
}

// Event is emitted when an alert fires.
type Event struct {
	Kind  Kind      `json:"kind"`
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Value float64   `json:"value"` // Smoothed EAR or lip distance at trigger time
	Count int       `json:"count"` // Consecutive frames at trigger time
}

// Handler receives alert transitions. Implementations must not block.
type Handler interface {
	OnAlertTriggered(Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event)

// OnAlertTriggered calls f(e).
func (f HandlerFunc) OnAlertTriggered(e Event) { f(e) }

// Result is a snapshot of the monitor after one frame, for display.
type Result struct {
	Seq          uint64    `json:"seq"`
	Time         time.Time `json:"time"`
	FaceDetected bool      `json:"face_detected"`
	Faces        int       `json:"faces"`

	EAR         float64 `json:"ear"`
	SmoothedEAR float64 `json:"smoothed_ear"`
	Smoothed    bool    `json:"smoothed"`
	LipDistance float64 `json:"lip_distance"`

	EyeCounter   int  `json:"eye_counter"`
	EyeRequired  int  `json:"eye_required"`
	YawnCounter  int  `json:"yawn_counter"`
	YawnRequired int  `json:"yawn_required"`
	Drowsy       bool `json:"drowsy"`
	Yawning      bool `json:"yawning"`

	EyePhase  Phase `json:"eye_phase"`
	YawnPhase Phase `json:"yawn_phase"`

	Triggered []Kind `json:"triggered,omitempty"`

	LeftEye  []landmarks.Point `json:"-"`
	RightEye []landmarks.Point `json:"-"`
	OuterLip []landmarks.Point `json:"-"`
}

// Message returns the banner text for the frame.
func (r Result) Message() string {
	switch {
	case !r.FaceDetected:
		return "No Face Detected"
	case r.Drowsy:
		return "DROWSINESS ALERT!"
	case r.Yawning:
		return "YAWN DETECTED!"
	default:
		return ""
	}
}

// Alerting reports whether any alert is active.
func (r Result) Alerting() bool {
	return r.Drowsy || r.Yawning
}

// Monitor holds the smoothing window and alert state for one video session.
type Monitor struct {
	config   Config
	window   *Window
	eyes     *Alert
	yawn     *Alert
	handlers []Handler
}

// NewMonitor creates a monitor. Invalid configs are rejected.
func NewMonitor(cfg Config, handlers ...Handler) (*Monitor, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid drowsiness config: %v", errs)
	}
	return &Monitor{
		config:   cfg,
		window:   NewWindow(cfg.SmoothingWindow),
		eyes:     NewAlert(KindDrowsiness, cfg.EyeFrames),
		yawn:     NewAlert(KindYawn, cfg.YawnFrames),
		handlers: handlers,
	}, nil
}

// Subscribe registers additional handlers.
func (m *Monitor) Subscribe(handlers ...Handler) {
	m.handlers = append(m.handlers, handlers...)
}

// Config returns the monitor configuration.
func (m *Monitor) Config() Config {
	return m.config
}

// Process advances the monitor by one frame. A malformed landmark set is
// rejected before any state changes.
func (m *Monitor) Process(f Frame) (Result, error) {
	if !f.HasFace() {
		m.Reset()
		return m.snapshot(f, Result{}), nil
	}

	ear, left, right, err := CombinedEAR(f.Face, m.config.Layout)
	if err != nil {
		return Result{}, fmt.Errorf("frame %d: %w", f.Seq, err)
	}
	lip, err := LipDistance(f.Face, m.config.Layout)
	if err != nil {
		return Result{}, fmt.Errorf("frame %d: %w", f.Seq, err)
	}

	m.window.Push(ear)
	smoothed := m.window.Value()

	res := Result{
		FaceDetected: true,
		EAR:          ear,
		SmoothedEAR:  smoothed,
		Smoothed:     m.window.Smoothed(),
		LipDistance:  lip,
		LeftEye:      left,
		RightEye:     right,
		OuterLip:     m.config.Layout.OuterLipPoints(f.Face),
	}

	if m.eyes.Update(smoothed < m.config.EARThreshold, true) {
		res.Triggered = append(res.Triggered, KindDrowsiness)
		m.emit(Event{Kind: KindDrowsiness, Seq: f.Seq, Time: f.Time, Value: smoothed, Count: m.eyes.Count()})
	}
	if m.yawn.Update(lip > m.config.YawnThreshold, true) {
		res.Triggered = append(res.Triggered, KindYawn)
		m.emit(Event{Kind: KindYawn, Seq: f.Seq, Time: f.Time, Value: lip, Count: m.yawn.Count()})
	}

	return m.snapshot(f, res), nil
}

// Reset clears the smoothing window and both alerts without firing.
func (m *Monitor) Reset() {
	m.window.Reset()
	m.eyes.Reset()
	m.yawn.Reset()
}

func (m *Monitor) emit(e Event) {
	for _, h := range m.handlers {
		h.OnAlertTriggered(e)
	}
}

func (m *Monitor) snapshot(f Frame, res Result) Result {
	res.Seq = f.Seq
	res.Time = f.Time
	res.Faces = f.Faces
	res.EyeCounter = m.eyes.Count()
	res.EyeRequired = m.eyes.Required()
	res.YawnCounter = m.yawn.Count()
	res.YawnRequired = m.yawn.Required()
	res.Drowsy = m.eyes.Active()
	res.Yawning = m.yawn.Active()
	res.EyePhase = m.eyes.Phase()
	res.YawnPhase = m.yawn.Phase()
	return res
}
