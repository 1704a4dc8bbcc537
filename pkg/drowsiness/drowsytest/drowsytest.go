// Package drowsytest builds synthetic landmark sets and frame sequences with
// known eye aspect ratios and lip gaps.
package drowsytest

import (
	"time"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// Typical values for a 450px wide frame.
const (
	OpenEAR   = 0.32
	ClosedEAR = 0.18
	RestLip   = 8.0
	YawnLip   = 32.0
)

const eyeWidth = 30.0

// Eye returns six ordered eye points starting at (x0, y) whose EAR is ear.
func Eye(x0, y, ear float64) []landmarks.Point {
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

// Face returns a 68-point dlib set with both eyes at ear and an inner lip
// gap of lip pixels.
func Face(ear, lip float64) landmarks.Set {
	s := make(landmarks.Set, landmarks.Dlib68.Points)
	copy(s[36:42], Eye(150, 120, ear))
	copy(s[42:48], Eye(230, 120, ear))

	for i := 0; i < 36; i++ {
		// Jaw, brows and nose on a rough oval so bounds look like a face
		s[i] = landmarks.Point{X: 140 + float64(i)*3, Y: 90 + float64(i%17)*8}
	}
	for i := 48; i < 68; i++ {
		s[i] = landmarks.Point{X: 200, Y: 200 + lip/2}
	}
	for _, r := range landmarks.Dlib68.UpperLip {
		for i := r.Start; i < r.End; i++ {
			s[i] = landmarks.Point{X: float64(140 + i), Y: 200}
		}
	}
	for _, r := range landmarks.Dlib68.LowerLip {
		for i := r.Start; i < r.End; i++ {
			s[i] = landmarks.Point{X: float64(140 + i), Y: 200 + lip}
		}
	}
	return s
}

// Frame returns frame seq at 30 FPS from the Unix epoch. A nil set is a
// no-face frame.
func Frame(seq uint64, set landmarks.Set) drowsiness.Frame {
	f := drowsiness.Frame{
		Seq:  seq,
		Time: time.Unix(0, 0).Add(time.Duration(seq) * time.Second / 30),
	}
	if set != nil {
		f.Face = set
		f.Faces = 1
	}
	return f
}

// Sequence builds consecutive frames starting at seq 0. Each step adds n
// frames of the given set.
func Sequence(steps ...Step) []drowsiness.Frame {
	var frames []drowsiness.Frame
	var seq uint64
	for _, st := range steps {
		for i := 0; i < st.N; i++ {
			frames = append(frames, Frame(seq, st.Set))
			seq++
		}
	}
	return frames
}

// Step is N frames of Set (nil for no face).
type Step struct {
	N   int
	Set landmarks.Set
}

// Closed is n frames with eyes shut and mouth at rest.
func Closed(n int) Step { return Step{N: n, Set: Face(ClosedEAR, RestLip)} }

// Open is n alert frames.
func Open(n int) Step { return Step{N: n, Set: Face(OpenEAR, RestLip)} }

// Yawning is n frames with eyes open and mouth wide.
func Yawning(n int) Step { return Step{N: n, Set: Face(OpenEAR, YawnLip)} }

// NoFace is n frames without a face.
func NoFace(n int) Step { return Step{N: n} }
