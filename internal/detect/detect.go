// Package detect defines the detection data model and the adapter boundary
// a concrete object detector implements. The detector itself (the model
// runtime) is out of scope; this package only fixes the contract.
package detect

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

// BBox is a pixel-space axis-aligned bounding box, x1<=x2, y1<=y2.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Width and Height return the box's pixel extents.
func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Normalize converts a pixel-space box to the [0,1]^2 box used by geometry
// tests, given the frame's pixel dimensions.
func (b BBox) Normalize(frameW, frameH int) geometry.BBox {
	fw, fh := float64(frameW), float64(frameH)
	return geometry.BBox{
		X1: b.X1 / fw, Y1: b.Y1 / fh,
		X2: b.X2 / fw, Y2: b.Y2 / fh,
	}
}

// Detection is a single per-frame object detection. Immutable once produced.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float64
	BBox       BBox
}

// Centroid returns the detection's reference point in pixel space for the
// given centroid mode.
func (d Detection) Centroid(mode geometry.CentroidMode) geometry.Point {
	return d.BBox.Centroid(mode)
}

// Adapter is the boundary a concrete detector implementation satisfies.
// Frame pixels are a 3-channel gocv.Mat; the bbox returned is pixel-space.
type Adapter interface {
	Infer(ctx context.Context, frame gocv.Mat) ([]Detection, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, frame gocv.Mat) ([]Detection, error)

func (f AdapterFunc) Infer(ctx context.Context, frame gocv.Mat) ([]Detection, error) {
	return f(ctx, frame)
}
