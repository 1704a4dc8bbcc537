// Package detection holds face detection results and the policy for choosing
// which face drives the monitor. Model inference lives in pkg/vision.
package detection

import (
	"errors"
	"fmt"
	"os"

	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// ErrModelNotFound is returned when a model file is missing.
var ErrModelNotFound = errors.New("model file not found")

// Detection represents a detected face
type Detection struct {
	X          float64 `json:"x"` // Top-left corner (0-1 normalized)
	Y          float64 `json:"y"`
	W          float64 `json:"w"` // Width and height (0-1 normalized)
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"` // Detection confidence (0-1)
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Face is a detection with its landmarks in image pixels. Landmarks is nil
// when the landmark model was not run for this face.
type Face struct {
	Detection
	Landmarks landmarks.Set `json:"landmarks,omitempty"`
}

// Config holds detector configuration
type Config struct {
	FaceModel        string  // Path to YuNet ONNX model
	LandmarkModel    string  // Path to 68-point landmark ONNX model
	ConfidenceThresh float64 // Minimum face confidence (default 0.6)
	NMSThresh        float64 // Non-maximum suppression IoU
	InputWidth       int     // Initial detector input size
	InputHeight      int
	LandmarkSize     int     // Square landmark model input (112 for PFLD-style nets)
	CropScale        float64 // Face box is grown by this factor before landmarking
}

// DefaultConfig returns production defaults for YuNet + a 112px landmark net
func DefaultConfig() Config {
	return Config{
		FaceModel:        "models/face_detection_yunet_2023mar.onnx",
		LandmarkModel:    "models/face_landmarks_68.onnx",
		ConfidenceThresh: 0.6,
		NMSThresh:        0.3,
		InputWidth:       320,
		InputHeight:      320,
		LandmarkSize:     112,
		CropScale:        1.2,
	}
}

// CheckModels verifies both model files exist.
func (c Config) CheckModels() error {
	for _, path := range []string{c.FaceModel, c.LandmarkModel} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
	}
	return nil
}

// SelectBest picks the best face from multiple detections
// Priority: confidence * 0.7 + area * 0.3
func SelectBest(dets []Detection) *Detection {
	i := bestIndex(len(dets), func(i int) Detection { return dets[i] })
	if i < 0 {
		return nil
	}
	return &dets[i]
}

// SelectBestFace applies the SelectBest policy to faces.
func SelectBestFace(faces []Face) *Face {
	i := bestIndex(len(faces), func(i int) Detection { return faces[i].Detection })
	if i < 0 {
		return nil
	}
	return &faces[i]
}

func bestIndex(n int, at func(int) Detection) int {
	if n == 0 {
		return -1
	}
	if n == 1 {
		return 0
	}

	// Find max area for normalization
	maxArea := 0.0
	for i := 0; i < n; i++ {
		if a := at(i).Area(); a > maxArea {
			maxArea = a
		}
	}

	bestScore := -1.0
	best := 0
	for i := 0; i < n; i++ {
		d := at(i)
		score := d.Confidence * 0.7
		if maxArea > 0 {
			score += (d.Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}
