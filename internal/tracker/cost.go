package tracker

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

// IoUCostMatrix returns an len(dets) x len(tracks) cost matrix of 1-IoU,
// following the teacher's distances.go IoU function (intersection / union,
// cost = 1 - iou; disjoint boxes cost 1).
func IoUCostMatrix(dets []detect.BBox, tracks []detect.BBox) *mat.Dense {
	cost := mat.NewDense(len(dets), len(tracks), nil)
	for i, d := range dets {
		for j, tr := range tracks {
			xMin := math.Max(d.X1, tr.X1)
			yMin := math.Max(d.Y1, tr.Y1)
			xMax := math.Min(d.X2, tr.X2)
			yMax := math.Min(d.Y2, tr.Y2)

			w := math.Max(0, xMax-xMin)
			h := math.Max(0, yMax-yMin)
			intersection := w * h

			areaD := (d.X2 - d.X1) * (d.Y2 - d.Y1)
			areaT := (tr.X2 - tr.X1) * (tr.Y2 - tr.Y1)
			union := areaD + areaT - intersection

			iou := 0.0
			if union > 0 {
				iou = intersection / union
			}
			cost.Set(i, j, 1.0-iou)
		}
	}
	return cost
}

// CentroidCostMatrix returns a len(dets) x len(tracks) cost matrix of
// Euclidean distance between reference points.
func CentroidCostMatrix(dets, tracks []geometry.Point) *mat.Dense {
	cost := mat.NewDense(len(dets), len(tracks), nil)
	for i, d := range dets {
		for j, tr := range tracks {
			cost.Set(i, j, d.Dist(tr))
		}
	}
	return cost
}

// FuseScore blends detection confidence into a cost matrix in place, the
// same way ByteTrack's fuse-score option sharpens IoU cost by detection
// confidence: cost' = 1 - (1-cost)*score.
func FuseScore(cost *mat.Dense, scores []float64) {
	rows, cols := cost.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c := cost.At(i, j)
			cost.Set(i, j, 1-(1-c)*scores[i])
		}
	}
}
