package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

var (
	contourColor = color.RGBA{0, 255, 0, 255}
	metricColor  = color.RGBA{255, 0, 0, 255}
	counterColor = color.RGBA{0, 200, 200, 255}
	bannerColor  = color.RGBA{255, 0, 0, 255}
	bannerBG     = color.RGBA{0, 0, 0, 255}
)

// Draw renders eye and lip contours, metrics, counters and the alert banner.
func Draw(img *gocv.Mat, r drowsiness.Result) {
	if img.Empty() {
		return
	}

	if r.FaceDetected {
		drawContours(img, r.LeftEye, r.RightEye, r.OuterLip)

		gocv.PutText(img, fmt.Sprintf("EAR: %.2f (S:%.2f)", r.EAR, r.SmoothedEAR),
			image.Pt(10, 30), gocv.FontHersheySimplex, 0.6, metricColor, 2)
		gocv.PutText(img, fmt.Sprintf("LIP: %.2f", r.LipDistance),
			image.Pt(10, 60), gocv.FontHersheySimplex, 0.6, metricColor, 2)
	}

	y := img.Rows() - 10
	gocv.PutText(img, fmt.Sprintf("Yawn: %d/%d", r.YawnCounter, r.YawnRequired),
		image.Pt(10, y), gocv.FontHersheySimplex, 0.5, counterColor, 1)
	y -= 20
	gocv.PutText(img, fmt.Sprintf("Eyes Closed: %d/%d", r.EyeCounter, r.EyeRequired),
		image.Pt(10, y), gocv.FontHersheySimplex, 0.5, counterColor, 1)

	if r.Alerting() {
		drawBanner(img, r.Message())
	}
}

func drawContours(img *gocv.Mat, contours ...[]landmarks.Point) {
	var polys [][]image.Point
	for _, c := range contours {
		if len(c) < 3 {
			continue
		}
		polys = append(polys, toImagePoints(c))
	}
	if len(polys) == 0 {
		return
	}

	pv := gocv.NewPointsVectorFromPoints(polys)
	defer pv.Close()
	gocv.Polylines(img, pv, true, contourColor, 1)
}

// drawBanner writes an alert message at the top right on a black box.
func drawBanner(img *gocv.Mat, msg string) {
	size := gocv.GetTextSize(msg, gocv.FontHersheySimplex, 0.7, 2)
	x := img.Cols() - size.X - 10
	y := 30

	gocv.Rectangle(img, image.Rect(x-5, y-size.Y-5, x+size.X+5, y+5), bannerBG, -1)
	gocv.PutText(img, msg, image.Pt(x, y), gocv.FontHersheySimplex, 0.7, bannerColor, 2)
}

func toImagePoints(pts []landmarks.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Pt(int(p.X+0.5), int(p.Y+0.5))
	}
	return out
}
