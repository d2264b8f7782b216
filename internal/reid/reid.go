// Package reid extracts appearance embeddings used to re-attach a returning
// track to its previous identity across an occlusion gap.
package reid

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
)

// Embedding is an L2-normalized appearance descriptor.
type Embedding []float64

// DefaultHBins, DefaultSBins and DefaultVBins give the default HSV histogram
// resolution (16x16x16), matching
// the appearance descriptor used for the tracker's Re-ID layer.
const (
	DefaultHBins = 16
	DefaultSBins = 16
	DefaultVBins = 16
)

// Extractor computes HSV-histogram appearance embeddings from a detection's
// bbox crop. The crop is clamped to frame bounds the same way GetCutout
// clamps a points bounding box to an image in the teacher's utils.go; a
// degenerate (empty) crop yields a nil embedding rather than an error, since
// embedding extraction failure must never fail the tracker.
type Extractor struct {
	HBins, SBins, VBins int
}

// NewExtractor returns an Extractor configured with the default bin counts.
func NewExtractor() *Extractor {
	return &Extractor{HBins: DefaultHBins, SBins: DefaultSBins, VBins: DefaultVBins}
}

// Extract computes the embedding for the given bbox within frame. frame must
// be a 3-channel BGR gocv.Mat. Returns nil if the crop is degenerate.
func (e *Extractor) Extract(frame gocv.Mat, bbox detect.BBox) Embedding {
	x1, y1 := int(bbox.X1), int(bbox.Y1)
	x2, y2 := int(bbox.X2), int(bbox.Y2)

	w, h := frame.Cols(), frame.Rows()
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > w {
		x2 = w
	}
	if y2 > h {
		y2 = h
	}
	if x1 >= x2 || y1 >= y2 {
		return nil
	}

	crop := frame.Region(image.Rect(x1, y1, x2, y2))
	defer crop.Close()
	if crop.Empty() {
		return nil
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(crop, &hsv, gocv.ColorBGRToHSV)

	hist := gocv.NewMat()
	defer hist.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	gocv.CalcHist(
		[]gocv.Mat{hsv},
		[]int{0, 1, 2},
		mask,
		&hist,
		[]int{e.HBins, e.SBins, e.VBins},
		[]float64{0, 180, 0, 256, 0, 256},
		false,
	)

	flat := make(Embedding, 0, e.HBins*e.SBins*e.VBins)
	for hi := 0; hi < e.HBins; hi++ {
		for si := 0; si < e.SBins; si++ {
			for vi := 0; vi < e.VBins; vi++ {
				flat = append(flat, float64(hist.GetFloatAt3(hi, si, vi)))
			}
		}
	}
	return normalize(flat)
}

func normalize(v Embedding) Embedding {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return nil
	}
	norm := math.Sqrt(sumSq)
	out := make(Embedding, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// CosineSimilarity returns the cosine similarity of two embeddings, or 0 if
// either is nil/empty or their lengths differ.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// UpdateRunning applies the EMA update emb_t = (1-momentum)*prev + momentum*new,
// renormalized, matching the running-embedding update used by the identity
// tracker's Re-ID layer. If prev is nil, newEmb is returned unchanged.
func UpdateRunning(prev, newEmb Embedding, momentum float64) Embedding {
	if prev == nil {
		return newEmb
	}
	if newEmb == nil || len(prev) != len(newEmb) {
		return prev
	}
	out := make(Embedding, len(prev))
	for i := range prev {
		out[i] = (1-momentum)*prev[i] + momentum*newEmb[i]
	}
	return normalize(out)
}
