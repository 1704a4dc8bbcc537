package drowsiness

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// FallbackEAR is returned when an eye has zero horizontal width, which happens
// on degenerate or occluded detections.
const FallbackEAR = 0.3

// ErrEyePoints is returned when an eye is not described by exactly six points.
var ErrEyePoints = errors.New("eye needs exactly 6 points")

// EyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2*|p0-p3|) for six ordered
// eye points. eye must have six points.
func EyeAspectRatio(eye []landmarks.Point) float64 {
	a := landmarks.Distance(eye[1], eye[5])
	b := landmarks.Distance(eye[2], eye[4])
	c := landmarks.Distance(eye[0], eye[3])
	if c == 0 {
		return FallbackEAR
	}
	return (a + b) / (2.0 * c)
}

// EyeAspectRatioChecked is EyeAspectRatio with a length check.
func EyeAspectRatioChecked(eye []landmarks.Point) (float64, error) {
	if len(eye) != 6 {
		return 0, fmt.Errorf("got %d points: %w", len(eye), ErrEyePoints)
	}
	return EyeAspectRatio(eye), nil
}

// CombinedEAR averages the EAR of both eyes. The eye subsets are returned for
// overlay drawing.
func CombinedEAR(set landmarks.Set, layout landmarks.Layout) (ear float64, left, right []landmarks.Point, err error) {
	if err := layout.Validate(set); err != nil {
		return 0, nil, nil, err
	}

	left = layout.LeftEyePoints(set)
	right = layout.RightEyePoints(set)

	leftEAR, err := EyeAspectRatioChecked(left)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("left eye: %w", err)
	}
	rightEAR, err := EyeAspectRatioChecked(right)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("right eye: %w", err)
	}

	return (leftEAR + rightEAR) / 2.0, left, right, nil
}

// LipDistance is the vertical gap between the mean upper inner lip point and
// the mean lower inner lip point.
func LipDistance(set landmarks.Set, layout landmarks.Layout) (float64, error) {
	if err := layout.Validate(set); err != nil {
		return 0, err
	}

	top := landmarks.Mean(layout.UpperLipPoints(set))
	low := landmarks.Mean(layout.LowerLipPoints(set))

	d := top.Y - low.Y
	if d < 0 {
		d = -d
	}
	return d, nil
}
