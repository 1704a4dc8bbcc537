// Package landmarks defines facial landmark point sets and the named index
// ranges used to pick eyes and lips out of them.
package landmarks

import (
	"errors"
	"math"
)

// ErrPointCount is returned when a landmark set does not have the number of
// points its layout expects.
var ErrPointCount = errors.New("unexpected landmark point count")

// Point is a 2D landmark in image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Mean returns the centroid of pts. An empty slice yields the zero point.
func Mean(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return Point{X: sx / n, Y: sy / n}
}

// Set is the ordered landmark output of one face in one frame.
type Set []Point

// Bounds returns the min and max corners of the set.
func (s Set) Bounds() (min, max Point) {
	if len(s) == 0 {
		return Point{}, Point{}
	}
	min, max = s[0], s[0]
	for _, p := range s[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Range is a half-open [Start, End) index range into a Set.
type Range struct {
	Start, End int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Slice returns the points of s covered by r. The result aliases s.
func (r Range) Slice(s Set) []Point {
	return s[r.Start:r.End]
}
