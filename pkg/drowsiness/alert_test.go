package drowsiness

import (
	"errors"
	"testing"
)

func TestAlert_TriggersOnceAtRequired(t *testing.T) {
	a := NewAlert(KindDrowsiness, 20)

	for i := 1; i <= 19; i++ {
		if a.Update(true, true) {
			t.Fatalf("frame %d: triggered early", i)
		}
	}
	if a.Active() || a.Count() != 19 {
		t.Fatalf("after 19 frames: Active=%v Count=%d", a.Active(), a.Count())
	}
	if a.Phase() != PhaseCounting {
		t.Errorf("Phase: got %v, want counting", a.Phase())
	}

	if !a.Update(true, true) {
		t.Fatal("frame 20: expected trigger")
	}
	if !a.Active() || a.Phase() != PhaseAlerting {
		t.Errorf("after trigger: Active=%v Phase=%v", a.Active(), a.Phase())
	}

	for i := 21; i <= 40; i++ {
		if a.Update(true, true) {
			t.Fatalf("frame %d: refired while active", i)
		}
	}
	if a.Count() != 40 {
		t.Errorf("Count keeps growing while active: got %d, want 40", a.Count())
	}
}

func TestAlert_RecoveryClearsSilently(t *testing.T) {
	a := NewAlert(KindYawn, 3)
	a.Update(true, true)
	a.Update(true, true)
	if !a.Update(true, true) {
		t.Fatal("expected trigger on frame 3")
	}

	if a.Update(false, true) {
		t.Error("recovery frame must not trigger")
	}
	if a.Active() || a.Count() != 0 || a.Phase() != PhaseIdle {
		t.Errorf("after recovery: Active=%v Count=%d Phase=%v", a.Active(), a.Count(), a.Phase())
	}
}

func TestAlert_CountIsConsecutive(t *testing.T) {
	a := NewAlert(KindDrowsiness, 5)
	for i := 0; i < 4; i++ {
		a.Update(true, true)
	}
	a.Update(false, true)
	if a.Count() != 0 {
		t.Fatalf("Count after break: got %d, want 0", a.Count())
	}
	for i := 0; i < 4; i++ {
		if a.Update(true, true) {
			t.Fatalf("triggered after break at run frame %d", i+1)
		}
	}
	if !a.Update(true, true) {
		t.Error("expected trigger after a fresh run of 5")
	}
}

func TestAlert_NoFaceSuppresses(t *testing.T) {
	tests := []struct {
		name  string
		setup int // exceeding frames before the gap
	}{
		{name: "from idle", setup: 0},
		{name: "from counting", setup: 2},
		{name: "from alerting", setup: 6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAlert(KindDrowsiness, 3)
			for i := 0; i < tc.setup; i++ {
				a.Update(true, true)
			}
			if a.Update(true, false) {
				t.Error("no-face frame must not trigger")
			}
			if a.Active() || a.Count() != 0 {
				t.Errorf("after no face: Active=%v Count=%d", a.Active(), a.Count())
			}
		})
	}
}

func TestAlert_RetriggersAfterClear(t *testing.T) {
	a := NewAlert(KindYawn, 2)
	fired := 0
	stream := []bool{true, true, true, false, true, true, true}
	for _, exceeded := range stream {
		if a.Update(exceeded, true) {
			fired++
		}
	}
	if fired != 2 {
		t.Errorf("fired: got %d, want 2", fired)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "drowsiness", want: KindDrowsiness},
		{in: " Yawn ", want: KindYawn},
		{in: "eyes", want: KindDrowsiness},
		{in: "sneeze", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKind(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if tc.wantErr && !errors.Is(err, ErrUnknownKind) {
				t.Errorf("ParseKind(%q): got %v, want ErrUnknownKind", tc.in, err)
			}
			if !tc.wantErr && got != tc.want {
				t.Errorf("ParseKind(%q): got %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestPhaseText(t *testing.T) {
	for _, p := range []Phase{PhaseIdle, PhaseCounting, PhaseAlerting} {
		b, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", p, err)
		}
		var got Phase
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", b, err)
		}
		if got != p {
			t.Errorf("Phase text: got %v, want %v", got, p)
		}
	}

	var p Phase
	if err := p.UnmarshalText([]byte("dozing")); err == nil {
		t.Error("UnmarshalText should reject unknown phases")
	}
}
