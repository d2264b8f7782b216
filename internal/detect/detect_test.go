package detect

import (
	"testing"

	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

func TestBBoxNormalize(t *testing.T) {
	b := BBox{X1: 100, Y1: 50, X2: 200, Y2: 150}
	got := b.Normalize(1000, 500)
	want := geometry.BBox{X1: 0.1, Y1: 0.1, X2: 0.2, Y2: 0.3}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestDetectionCentroid(t *testing.T) {
	d := Detection{BBox: BBox{X1: 0, Y1: 0, X2: 10, Y2: 20}}
	if c := d.Centroid(geometry.Head); c != (geometry.Point{X: 5, Y: 0}) {
		t.Errorf("head centroid = %v", c)
	}
	if c := d.Centroid(geometry.Bottom); c != (geometry.Point{X: 5, Y: 20}) {
		t.Errorf("bottom centroid = %v", c)
	}
}
