package landmarks

import "fmt"

// Layout names the index ranges of a landmark model. The geometry code only
// ever addresses points through a Layout, never through raw indices.
type Layout struct {
	Name   string
	Points int // Total points per face

	LeftEye  Range // 6 ordered points, p0/p3 are the corners
	RightEye Range

	// Inner lip halves; each is a union of ranges
	UpperLip []Range
	LowerLip []Range

	OuterLip Range // Overlay only
}

// Dlib68 is the iBUG 300-W 68-point convention used by dlib's
// shape_predictor_68_face_landmarks and most 68-point ONNX regressors.
var Dlib68 = Layout{
	Name:     "dlib68",
	Points:   68,
	LeftEye:  Range{42, 48},
	RightEye: Range{36, 42},
	UpperLip: []Range{{50, 53}, {61, 64}},
	LowerLip: []Range{{56, 59}, {65, 68}},
	OuterLip: Range{48, 60},
}

// Validate checks that s has exactly the number of points the layout needs.
func (l Layout) Validate(s Set) error {
	if len(s) != l.Points {
		return fmt.Errorf("%s layout: got %d points, want %d: %w", l.Name, len(s), l.Points, ErrPointCount)
	}
	return nil
}

// LeftEyePoints returns the left eye subset of s.
func (l Layout) LeftEyePoints(s Set) []Point {
	return l.LeftEye.Slice(s)
}

// RightEyePoints returns the right eye subset of s.
func (l Layout) RightEyePoints(s Set) []Point {
	return l.RightEye.Slice(s)
}

// UpperLipPoints returns the concatenated upper inner lip points of s.
func (l Layout) UpperLipPoints(s Set) []Point {
	return gather(s, l.UpperLip)
}

// LowerLipPoints returns the concatenated lower inner lip points of s.
func (l Layout) LowerLipPoints(s Set) []Point {
	return gather(s, l.LowerLip)
}

// OuterLipPoints returns the outer lip contour of s.
func (l Layout) OuterLipPoints(s Set) []Point {
	return l.OuterLip.Slice(s)
}

func gather(s Set, ranges []Range) []Point {
	n := 0
	for _, r := range ranges {
		n += r.Len()
	}
	out := make([]Point, 0, n)
	for _, r := range ranges {
		out = append(out, r.Slice(s)...)
	}
	return out
}
