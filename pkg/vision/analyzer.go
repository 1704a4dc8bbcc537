// Package vision turns camera images into landmark frames with OpenCV: YuNet
// finds faces, an ONNX regressor places 68 landmarks on the selected face,
// and the results are drawn back onto the image for preview and streaming.
package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/detection"
)

// Analyzer detects faces and landmarks the one chosen by
// detection.SelectBest. Other faces are returned without landmarks.
type Analyzer struct {
	faces *FaceDetector
	marks *Landmarker
}

// NewAnalyzer loads both models.
func NewAnalyzer(cfg detection.Config) (*Analyzer, error) {
	if err := cfg.CheckModels(); err != nil {
		return nil, err
	}

	faces, err := NewFaceDetector(cfg)
	if err != nil {
		return nil, err
	}
	marks, err := NewLandmarker(cfg)
	if err != nil {
		faces.Close()
		return nil, err
	}
	return &Analyzer{faces: faces, marks: marks}, nil
}

// Analyze returns every face in img and the index of the selected one, or -1
// when there are none.
func (a *Analyzer) Analyze(img gocv.Mat) ([]detection.Face, int, error) {
	dets, err := a.faces.Detect(img)
	if err != nil {
		return nil, -1, fmt.Errorf("detect faces: %w", err)
	}
	if len(dets) == 0 {
		return nil, -1, nil
	}

	best := detection.SelectBest(dets)
	faces := make([]detection.Face, len(dets))
	selected := -1
	for i := range dets {
		faces[i] = detection.Face{Detection: dets[i]}
		if &dets[i] == best {
			selected = i
		}
	}

	set, err := a.marks.Landmarks(img, *best)
	if err != nil {
		return faces, selected, fmt.Errorf("landmarks: %w", err)
	}
	faces[selected].Landmarks = set
	return faces, selected, nil
}

// Close releases both models.
func (a *Analyzer) Close() error {
	a.faces.Close()
	return a.marks.Close()
}
