package drowsiness

import (
	"time"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

const eyeWidth = 30.0

// eye builds six ordered eye points whose EAR is exactly ear.
func eye(x0, y, ear float64) []landmarks.Point {
	h := ear * eyeWidth / 2
	return []landmarks.Point{
		{X: x0, Y: y},
		{X: x0 + eyeWidth/3, Y: y - h},
		{X: x0 + 2*eyeWidth/3, Y: y - h},
		{X: x0 + eyeWidth, Y: y},
		{X: x0 + 2*eyeWidth/3, Y: y + h},
		{X: x0 + eyeWidth/3, Y: y + h},
	}
}

// face builds a 68-point dlib set with the given EAR for both eyes and the
// given inner lip gap.
func face(ear, lip float64) landmarks.Set {
	s := make(landmarks.Set, 68)
	copy(s[36:42], eye(100, 100, ear))
	copy(s[42:48], eye(200, 100, ear))

	for i := 48; i < 68; i++ {
		s[i] = landmarks.Point{X: 150, Y: 200}
	}
	for _, r := range landmarks.Dlib68.UpperLip {
		for i := r.Start; i < r.End; i++ {
			s[i] = landmarks.Point{X: float64(130 + i), Y: 200}
		}
	}
	for _, r := range landmarks.Dlib68.LowerLip {
		for i := r.Start; i < r.End; i++ {
			s[i] = landmarks.Point{X: float64(130 + i), Y: 200 + lip}
		}
	}
	return s
}

// recorder collects emitted events.
type recorder struct {
	events []Event
}

func (r *recorder) OnAlertTriggered(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) count(kind Kind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func frame(seq int, set landmarks.Set) Frame {
	f := Frame{Seq: uint64(seq), Time: time.Unix(0, 0).Add(time.Duration(seq) * 33 * time.Millisecond)}
	if set != nil {
		f.Face = set
		f.Faces = 1
	}
	return f
}
