package vision

import (
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/pipeline"
)

// Window is a local preview. Pressing q or ESC quits.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a preview window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show displays the view and polls the keyboard.
func (w *Window) Show(v pipeline.View) bool {
	if img, ok := v.(*Image); ok {
		w.win.IMShow(img.Mat())
	}
	key := w.win.WaitKey(1) & 0xFF
	return key == 'q' || key == 27
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
