package vision

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/detection"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// Landmarker runs a 68-point landmark regressor on a face crop. The model
// takes a square RGB crop and outputs 136 values, x/y pairs normalized to
// the crop.
type Landmarker struct {
	net    gocv.Net
	size   image.Point
	scale  float64
	points int
	mu     sync.Mutex
}

// NewLandmarker loads the ONNX landmark model.
func NewLandmarker(cfg detection.Config) (*Landmarker, error) {
	if _, err := os.Stat(cfg.LandmarkModel); err != nil {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.LandmarkModel)
	}

	net := gocv.ReadNetFromONNX(cfg.LandmarkModel)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load landmark model from %s", cfg.LandmarkModel)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	scale := cfg.CropScale
	if scale < 1 {
		scale = 1
	}

	return &Landmarker{
		net:    net,
		size:   image.Pt(cfg.LandmarkSize, cfg.LandmarkSize),
		scale:  scale,
		points: landmarks.Dlib68.Points,
	}, nil
}

// Landmarks returns the face's points in image pixels.
func (l *Landmarker) Landmarks(img gocv.Mat, det detection.Detection) (landmarks.Set, error) {
	box := CropBox(det, img.Cols(), img.Rows(), l.scale)
	if box.Empty() {
		return nil, fmt.Errorf("face box outside image")
	}

	crop := img.Region(box)
	defer crop.Close()

	blob := gocv.BlobFromImage(crop, 1.0/255.0, l.size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.net.SetInput(blob, "")
	output := l.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read landmark output: %w", err)
	}
	if len(data) < l.points*2 {
		return nil, fmt.Errorf("landmark output has %d values, want %d", len(data), l.points*2)
	}

	return MapPoints(data[:l.points*2], box), nil
}

// Close releases the network.
func (l *Landmarker) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.net.Close()
}

// CropBox grows a normalized detection into a square pixel box around its
// center, clamped to the image.
func CropBox(det detection.Detection, imgW, imgH int, scale float64) image.Rectangle {
	cx, cy := det.Center()
	cx *= float64(imgW)
	cy *= float64(imgH)

	side := math.Max(det.W*float64(imgW), det.H*float64(imgH)) * scale
	half := side / 2

	r := image.Rect(
		int(math.Round(cx-half)),
		int(math.Round(cy-half)),
		int(math.Round(cx+half)),
		int(math.Round(cy+half)),
	)
	return r.Intersect(image.Rect(0, 0, imgW, imgH))
}

// MapPoints converts crop-normalized x/y pairs to image pixels.
func MapPoints(values []float32, box image.Rectangle) landmarks.Set {
	w := float64(box.Dx())
	h := float64(box.Dy())
	set := make(landmarks.Set, len(values)/2)
	for i := range set {
		set[i] = landmarks.Point{
			X: float64(box.Min.X) + float64(values[2*i])*w,
			Y: float64(box.Min.Y) + float64(values[2*i+1])*h,
		}
	}
	return set
}
