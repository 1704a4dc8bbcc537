package vision

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/detection"
)

// FaceDetector uses OpenCV's FaceDetectorYN (YuNet) for face detection
type FaceDetector struct {
	detector gocv.FaceDetectorYN
	config   detection.Config
	mu       sync.Mutex // Protects inference
}

// NewFaceDetector creates a YuNet face detector using GoCV's built-in FaceDetectorYN
func NewFaceDetector(cfg detection.Config) (*FaceDetector, error) {
	if _, err := os.Stat(cfg.FaceModel); err != nil {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.FaceModel)
	}

	// Input size is updated per image
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.FaceModel,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		float32(cfg.NMSThresh),
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &FaceDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in a BGR image. Boxes are normalized to the image size.
func (d *FaceDetector) Detect(img gocv.Mat) ([]detection.Detection, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	var detections []detection.Detection
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))
		score := float64(faces.GetFloatAt(r, 14))

		detections = append(detections, detection.Detection{
			X:          x / imgW,
			Y:          y / imgH,
			W:          w / imgW,
			H:          h / imgH,
			Confidence: score,
		})
	}

	return detections, nil
}

// Close releases the detector resources
func (d *FaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
