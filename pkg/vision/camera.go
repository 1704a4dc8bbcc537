package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/debug"
	"github.com/teslashibe/go-drowsy/pkg/detection"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/pipeline"
)

// Camera reads frames from a capture device or video file and analyzes them.
// It implements pipeline.Source.
type Camera struct {
	capture  *gocv.VideoCapture
	opened   camera.Config
	pending  atomic.Pointer[camera.Config]
	settings *camera.Manager
	analyzer *Analyzer
	seq      uint64
	warmed   bool

	// OnFaces, if set, receives every analyzed frame's faces (e.g. for
	// forwarding to a remote monitor).
	OnFaces func(seq uint64, width, height int, faces []detection.Face)
}

// OpenCamera opens the device named in the current settings.
func OpenCamera(settings *camera.Manager, analyzer *Analyzer) (*Camera, error) {
	cfg := settings.GetConfig()

	capture, err := openCapture(cfg)
	if err != nil {
		return nil, err
	}

	return &Camera{
		capture:  capture,
		opened:   cfg,
		settings: settings,
		analyzer: analyzer,
	}, nil
}

// Reopen schedules cfg to be applied before the next frame is read. It
// matches camera.Manager.OnConfigChange and is safe to call from any
// goroutine. Only capture changes reopen the device.
func (c *Camera) Reopen(cfg camera.Config) error {
	c.pending.Store(&cfg)
	return nil
}

// applyPending swaps the capture when a pending config changed the device or
// its capture settings. On failure the current capture is kept.
func (c *Camera) applyPending() {
	cfg := c.pending.Swap(nil)
	if cfg == nil || !c.opened.CaptureChanged(*cfg) {
		return
	}

	capture, err := openCapture(*cfg)
	if err != nil {
		log.Error("camera reopen failed, keeping current device", "device", cfg.Device, "error", err)
		return
	}

	c.capture.Close()
	c.capture = capture
	c.opened = *cfg
	c.warmed = false
}

func openCapture(cfg camera.Config) (*gocv.VideoCapture, error) {
	var device interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open video capture %s: %w", cfg.Device, err)
	}

	if cfg.CaptureWidth > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.CaptureWidth))
	}
	if cfg.CaptureHeight > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.CaptureHeight))
	}
	if cfg.Framerate > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	log.Info("📷 camera opened", "device", cfg.Device, "width", cfg.Width)
	return capture, nil
}

// Next reads, resizes and analyzes the next frame. A failed read is the end
// of the stream.
func (c *Camera) Next(ctx context.Context) (pipeline.Sample, error) {
	c.applyPending()
	cfg := c.settings.GetConfig()

	if !c.warmed {
		c.warmed = true
		select {
		case <-ctx.Done():
			return pipeline.Sample{}, ctx.Err()
		case <-time.After(cfg.Warmup):
		}
	}
	if err := ctx.Err(); err != nil {
		return pipeline.Sample{}, err
	}

	raw := gocv.NewMat()
	defer raw.Close()
	if ok := c.capture.Read(&raw); !ok || raw.Empty() {
		return pipeline.Sample{}, io.EOF
	}
	now := time.Now()

	img := gocv.NewMat()
	gocv.Resize(raw, &img, ResizeToWidth(raw.Cols(), raw.Rows(), cfg.Width), 0, 0, gocv.InterpolationArea)
	if cfg.Mirror {
		gocv.Flip(img, &img, 1)
	}

	seq := c.seq
	c.seq++

	frame := drowsiness.Frame{Seq: seq, Time: now}
	faces, selected, err := c.analyzer.Analyze(img)
	if err != nil {
		// Treat as no face for this frame
		debug.Log("🔍 analyze frame %d: %v\n", seq, err)
	}
	frame.Faces = len(faces)
	if selected >= 0 {
		frame.Face = faces[selected].Landmarks
	}

	if c.OnFaces != nil {
		c.OnFaces(seq, img.Cols(), img.Rows(), faces)
	}

	return pipeline.Sample{Frame: frame, View: NewImage(img, cfg.Quality)}, nil
}

// Close releases the capture device.
func (c *Camera) Close() error {
	return c.capture.Close()
}

// ResizeToWidth keeps the aspect ratio.
func ResizeToWidth(w, h, width int) image.Point {
	if w <= 0 || width <= 0 {
		return image.Pt(w, h)
	}
	height := int(float64(h)*float64(width)/float64(w) + 0.5)
	return image.Pt(width, height)
}
