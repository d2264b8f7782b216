package tracker

import (
	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
	"github.com/hafizalfariz/yoi-engine-go/internal/reid"
)

// Weighting for the legacy centroid-fallback match score, resolved per
// DESIGN.md Open Question (a): combined = distanceWeight*distance_score +
// appearanceWeight*reid_score, with the match permitted past the normal
// max_distance gate (up to maxDistanceReIDMultiplier*max_distance) when the
// appearance term is strong. Exposed as package-level defaults rather than
// hard-coded so a config layer can override them.
var (
	CentroidDistanceWeight    = 0.65
	CentroidAppearanceWeight  = 0.35
	MaxDistanceReIDMultiplier = 2.0
)

// updateCentroid implements the per-class greedy nearest-neighbor fallback
// associator: each detection is matched to the nearest active track of the
// same class within max_distance (relaxed up to 2x when Re-ID similarity is
// strong). Unmatched detections are returned for the caller to spawn as new
// tracks.
func (tr *Tracker) updateCentroid(dets []detect.Detection, frame gocv.Mat) (map[int]*Track, []int) {
	matched := make(map[int]*Track)
	active := tr.Active()

	byClass := make(map[string][]int) // class -> indices into active
	for i, t := range active {
		byClass[t.ClassName] = append(byClass[t.ClassName], i)
	}

	matchedTrackIdx := make(map[int]bool, len(active))
	var unmatched []int

	for di, d := range dets {
		candidates := byClass[d.ClassName]
		pt := d.Centroid(tr.cfg.CentroidMode)

		var detEmb reid.Embedding
		if tr.cfg.ReIDEnabled && tr.extractor != nil {
			detEmb = tr.extractor.Extract(frame, d.BBox)
		}

		bestIdx := -1
		bestScore := -1.0
		for _, ti := range candidates {
			if matchedTrackIdx[ti] {
				continue
			}
			t := active[ti]
			dist := pt.Dist(t.Centroid())
			distScore := 1 - dist/tr.cfg.MaxDistance
			if distScore < 0 {
				distScore = 0
			}

			reidScore := reid.CosineSimilarity(t.Embedding, detEmb)

			combined := CentroidDistanceWeight*distScore + CentroidAppearanceWeight*reidScore

			gate := tr.cfg.MaxDistance
			if reidScore >= tr.cfg.ReIDSimilarity {
				gate = tr.cfg.MaxDistance * MaxDistanceReIDMultiplier
			}
			if dist > gate {
				continue
			}
			if combined > bestScore {
				bestScore, bestIdx = combined, ti
			}
		}

		if bestIdx >= 0 {
			matched[di] = active[bestIdx]
			matchedTrackIdx[bestIdx] = true
		} else {
			unmatched = append(unmatched, di)
		}
	}

	return matched, unmatched
}
