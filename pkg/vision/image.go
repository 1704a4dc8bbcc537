package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Image is a camera frame owned by one pipeline sample. It implements
// pipeline.View.
type Image struct {
	mat     gocv.Mat
	quality int
}

// NewImage takes ownership of mat.
func NewImage(mat gocv.Mat, quality int) *Image {
	return &Image{mat: mat, quality: quality}
}

// Mat returns the underlying image. It is valid until Close.
func (i *Image) Mat() gocv.Mat {
	return i.mat
}

// Annotate draws the monitor result onto the image.
func (i *Image) Annotate(r drowsiness.Result) {
	Draw(&i.mat, r)
}

// JPEG encodes the image at the configured quality.
func (i *Image) JPEG() ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, i.mat, []int{int(gocv.IMWriteJpegQuality), i.quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Close releases the image.
func (i *Image) Close() error {
	return i.mat.Close()
}
