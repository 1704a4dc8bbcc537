package drowsiness

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

func newTestMonitor(t *testing.T) (*Monitor, *recorder) {
	t.Helper()
	rec := &recorder{}
	m, err := NewMonitor(DefaultConfig(), rec)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return m, rec
}

func TestMonitor_DrowsyFiresOnceAtFrame20(t *testing.T) {
	m, rec := newTestMonitor(t)

	for i := 0; i < 30; i++ {
		res, err := m.Process(frame(i, face(0.20, 5)))
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}

		switch {
		case i < 19:
			if res.Drowsy || len(rec.events) != 0 {
				t.Fatalf("frame %d: alert before threshold", i)
			}
			if res.EyeCounter != i+1 {
				t.Errorf("frame %d: EyeCounter got %d, want %d", i, res.EyeCounter, i+1)
			}
		case i == 19:
			if !res.Drowsy || len(res.Triggered) != 1 || res.Triggered[0] != KindDrowsiness {
				t.Fatalf("frame 19: expected drowsiness trigger, got %+v", res.Triggered)
			}
		default:
			if len(res.Triggered) != 0 {
				t.Fatalf("frame %d: refired", i)
			}
		}
	}

	if got := rec.count(KindDrowsiness); got != 1 {
		t.Fatalf("drowsiness events: got %d, want 1", got)
	}
	if rec.events[0].Seq != 19 {
		t.Errorf("event seq: got %d, want 19", rec.events[0].Seq)
	}
	if rec.events[0].Count != 20 {
		t.Errorf("event count: got %d, want 20", rec.events[0].Count)
	}
	if rec.count(KindYawn) != 0 {
		t.Error("unexpected yawn event")
	}
}

func TestMonitor_NoCarryOverAcrossFaceLoss(t *testing.T) {
	m, rec := newTestMonitor(t)

	seq := 0
	for i := 0; i < 25; i++ {
		m.Process(frame(seq, face(0.20, 5)))
		seq++
	}

	res, err := m.Process(frame(seq, nil))
	seq++
	if err != nil {
		t.Fatalf("no-face frame: %v", err)
	}
	if res.FaceDetected || res.Drowsy || res.EyeCounter != 0 || res.Smoothed {
		t.Errorf("no-face frame did not reset: %+v", res)
	}
	if res.Message() != "No Face Detected" {
		t.Errorf("Message: got %q", res.Message())
	}

	for i := 0; i < 25; i++ {
		m.Process(frame(seq, face(0.20, 5)))
		seq++
	}

	if got := rec.count(KindDrowsiness); got != 2 {
		t.Fatalf("drowsiness events: got %d, want 2", got)
	}
	// 25 frames + gap, then the 20th frame of the second run
	if rec.events[1].Seq != 45 {
		t.Errorf("second event seq: got %d, want 45", rec.events[1].Seq)
	}
}

func TestMonitor_RecoveryClearsWithoutEvent(t *testing.T) {
	m, rec := newTestMonitor(t)

	for i := 0; i < 20; i++ {
		m.Process(frame(i, face(0.20, 5)))
	}
	if len(rec.events) != 1 {
		t.Fatalf("setup: got %d events", len(rec.events))
	}

	// The window needs enough open-eye frames for the mean to cross back over
	var res Result
	for i := 20; i < 25; i++ {
		res, _ = m.Process(frame(i, face(0.40, 5)))
		if !res.Drowsy {
			break
		}
	}
	if res.Drowsy {
		t.Fatal("drowsy alert did not clear after eyes reopened")
	}
	if res.EyeCounter != 0 || res.EyePhase != PhaseIdle {
		t.Errorf("after recovery: EyeCounter=%d Phase=%v", res.EyeCounter, res.EyePhase)
	}
	if len(rec.events) != 1 {
		t.Errorf("recovery emitted events: got %d total", len(rec.events))
	}
}

func TestMonitor_SingleRecoveryFrameClears(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingWindow = 1
	m, err := NewMonitor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		m.Process(frame(i, face(0.20, 5)))
	}
	res, _ := m.Process(frame(20, face(0.25, 5)))
	if res.Drowsy {
		t.Error("EAR at threshold should clear the alert")
	}
}

func TestMonitor_ThresholdIsStrict(t *testing.T) {
	m, rec := newTestMonitor(t)
	for i := 0; i < 40; i++ {
		m.Process(frame(i, face(0.25, 25)))
	}
	if len(rec.events) != 0 {
		t.Errorf("values exactly at threshold fired %d events", len(rec.events))
	}
}

func TestMonitor_YawnMirrorsDrowsiness(t *testing.T) {
	m, rec := newTestMonitor(t)

	for i := 0; i < 9; i++ {
		res, _ := m.Process(frame(i, face(0.32, 30)))
		if res.Yawning {
			t.Fatalf("frame %d: yawn before threshold", i)
		}
		if res.YawnCounter != i+1 {
			t.Errorf("frame %d: YawnCounter got %d", i, res.YawnCounter)
		}
	}

	res, _ := m.Process(frame(9, face(0.32, 30)))
	if !res.Yawning || res.Message() != "YAWN DETECTED!" {
		t.Fatalf("frame 9: Yawning=%v Message=%q", res.Yawning, res.Message())
	}
	for i := 10; i < 20; i++ {
		m.Process(frame(i, face(0.32, 30)))
	}
	if got := rec.count(KindYawn); got != 1 {
		t.Fatalf("yawn events: got %d, want 1", got)
	}
	if rec.events[0].Value != 30 {
		t.Errorf("yawn event value: got %v, want 30", rec.events[0].Value)
	}

	res, _ = m.Process(frame(20, face(0.32, 4)))
	if res.Yawning || res.YawnCounter != 0 {
		t.Errorf("closing mouth: Yawning=%v YawnCounter=%d", res.Yawning, res.YawnCounter)
	}
	if rec.count(KindYawn) != 1 {
		t.Error("clearing yawn emitted an event")
	}
}

func TestMonitor_BothAlertsIndependent(t *testing.T) {
	m, rec := newTestMonitor(t)
	var res Result
	for i := 0; i < 20; i++ {
		res, _ = m.Process(frame(i, face(0.15, 35)))
	}
	if !res.Drowsy || !res.Yawning {
		t.Fatalf("Drowsy=%v Yawning=%v", res.Drowsy, res.Yawning)
	}
	if rec.count(KindDrowsiness) != 1 || rec.count(KindYawn) != 1 {
		t.Errorf("events: %+v", rec.events)
	}
	if res.Message() != "DROWSINESS ALERT!" {
		t.Errorf("drowsiness banner takes priority, got %q", res.Message())
	}
}

func TestMonitor_MalformedLandmarksLeaveStateAlone(t *testing.T) {
	m, _ := newTestMonitor(t)
	for i := 0; i < 10; i++ {
		m.Process(frame(i, face(0.20, 5)))
	}

	_, err := m.Process(frame(10, make(landmarks.Set, 5)))
	if !errors.Is(err, landmarks.ErrPointCount) {
		t.Fatalf("expected ErrPointCount, got %v", err)
	}

	res, _ := m.Process(frame(11, face(0.20, 5)))
	if res.EyeCounter != 11 {
		t.Errorf("EyeCounter after malformed frame: got %d, want 11", res.EyeCounter)
	}
}

func TestMonitor_ResultSnapshot(t *testing.T) {
	m, _ := newTestMonitor(t)
	res, err := m.Process(frame(0, face(0.3, 12)))
	if err != nil {
		t.Fatal(err)
	}
	if !res.FaceDetected || res.Faces != 1 {
		t.Errorf("FaceDetected=%v Faces=%d", res.FaceDetected, res.Faces)
	}
	if res.Smoothed || res.SmoothedEAR != res.EAR {
		t.Errorf("cold start should pass raw EAR through: %+v", res)
	}
	if len(res.LeftEye) != 6 || len(res.RightEye) != 6 || len(res.OuterLip) != 12 {
		t.Errorf("overlay points: %d %d %d", len(res.LeftEye), len(res.RightEye), len(res.OuterLip))
	}
	if res.EyeRequired != 20 || res.YawnRequired != 10 {
		t.Errorf("required: %d %d", res.EyeRequired, res.YawnRequired)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"eye_phase":"counting"`) && !strings.Contains(string(data), `"eye_phase":"idle"`) {
		t.Errorf("phase not encoded as text: %s", data)
	}
}

func TestNewMonitor_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EyeFrames = 0
	if _, err := NewMonitor(cfg); err == nil {
		t.Error("expected error for zero eye frames")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("DefaultConfig invalid: %v", errs)
	}

	bad := Config{}
	if errs := bad.Validate(); len(errs) != 6 {
		t.Errorf("zero Config: got %d errors, want 6: %v", len(errs), errs)
	}

	sensitive := SensitiveConfig()
	if errs := sensitive.Validate(); len(errs) != 0 {
		t.Errorf("SensitiveConfig invalid: %v", errs)
	}
}
