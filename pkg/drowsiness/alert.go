package drowsiness

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when parsing an unrecognized alert kind.
var ErrUnknownKind = errors.New("unknown alert kind")

// Kind identifies an alert type.
type Kind int

const (
	KindDrowsiness Kind = iota
	KindYawn
)

// Kinds lists every alert kind in evaluation order.
var Kinds = []Kind{KindDrowsiness, KindYawn}

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDrowsiness:
		return "drowsiness"
	case KindYawn:
		return "yawn"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a wire name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drowsiness", "drowsy", "eyes":
		return KindDrowsiness, nil
	case "yawn":
		return KindYawn, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownKind, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Phase is the observable state of an Alert.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCounting
	PhaseAlerting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCounting:
		return "counting"
	case PhaseAlerting:
		return "alerting"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "counting":
		*p = PhaseCounting
	case "alerting":
		*p = PhaseAlerting
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// Alert debounces one condition over consecutive frames and fires once on the
// transition into the alerting phase.
type Alert struct {
	kind     Kind
	required int

	count  int
	active bool
}

// NewAlert creates an alert that needs required consecutive exceeding frames.
func NewAlert(kind Kind, required int) *Alert {
	if required < 1 {
		required = 1
	}
	return &Alert{kind: kind, required: required}
}

// Update advances the alert by one frame and reports whether this frame
// triggered it.
func (a *Alert) Update(exceeded, faceDetected bool) bool {
	if !faceDetected {
		a.count = 0
		a.active = false
		return false
	}

	if !exceeded {
		a.count = 0
		a.active = false
		return false
	}

	a.count++
	if a.count >= a.required && !a.active {
		a.active = true
		return true
	}
	return false
}

// Reset returns the alert to idle without firing.
func (a *Alert) Reset() {
	a.count = 0
	a.active = false
}

// Kind returns the alert kind.
func (a *Alert) Kind() Kind { return a.kind }

// Count returns the current consecutive frame count.
func (a *Alert) Count() int { return a.count }

// Required returns the frames needed to trigger.
func (a *Alert) Required() int { return a.required }

// Active reports whether the alert has fired and not yet cleared.
func (a *Alert) Active() bool { return a.active }

// Phase returns the current state machine phase.
func (a *Alert) Phase() Phase {
	switch {
	case a.active:
		return PhaseAlerting
	case a.count > 0:
		return PhaseCounting
	default:
		return PhaseIdle
	}
}
