// Package debug provides global debug logging flags
package debug

import (
	"fmt"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether a metrics line is printed for every frame.
// Use --debug-frames to enable these very verbose logs
var Frames bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// FrameLog prints the per-frame metrics only if frame debug mode is enabled
func FrameLog(r drowsiness.Result) {
	if !Frames {
		return
	}
	fmt.Println(FrameLine(r))
}

// FrameLine formats one frame's metrics.
func FrameLine(r drowsiness.Result) string {
	if !r.FaceDetected {
		return fmt.Sprintf("🎞️  #%d no face", r.Seq)
	}
	return fmt.Sprintf("🎞️  #%d EAR %.2f (S:%.2f) LIP %.2f eyes %d/%d yawn %d/%d %s",
		r.Seq, r.EAR, r.SmoothedEAR, r.LipDistance,
		r.EyeCounter, r.EyeRequired, r.YawnCounter, r.YawnRequired, r.Message())
}
