package tracker

import "github.com/hafizalfariz/yoi-engine-go/internal/detect"

// updateByteTrack implements the two-stage ByteTrack-style association:
// high-score detections are matched to active tracks first by IoU (fused
// with detection score when configured), then any tracks still unmatched
// are given a second chance against low-score detections. Matching uses
// either the greedy heuristic (generalized from the teacher's matching.go)
// or the exact Hungarian solver, per Config.UseOptimal.
//
// Returns a map from detection index (within dets) to the Track it matched,
// and the indices of high-score detections left unmatched after both stages
// (callers decide whether any of those spawn new tracks); unmatched
// low-score detections are dropped.
func (tr *Tracker) updateByteTrack(dets []detect.Detection) (map[int]*Track, []int) {
	matched := make(map[int]*Track)

	var high, low []int
	for i, d := range dets {
		switch {
		case d.Confidence >= tr.cfg.HighThresh:
			high = append(high, i)
		case d.Confidence >= tr.cfg.LowThresh:
			low = append(low, i)
		}
	}

	active := tr.Active()
	matchedTrackIdx := make(map[int]bool, len(active))

	matchStage := func(detIdxs []int, threshold float64) {
		if len(detIdxs) == 0 || len(active) == 0 {
			return
		}
		candidateTracks := make([]*Track, 0, len(active))
		candidateTrackOrigIdx := make([]int, 0, len(active))
		for ti, t := range active {
			if matchedTrackIdx[ti] {
				continue
			}
			candidateTracks = append(candidateTracks, t)
			candidateTrackOrigIdx = append(candidateTrackOrigIdx, ti)
		}
		if len(candidateTracks) == 0 {
			return
		}

		boxes := make([]detect.BBox, len(detIdxs))
		scores := make([]float64, len(detIdxs))
		for i, di := range detIdxs {
			boxes[i] = dets[di].BBox
			scores[i] = dets[di].Confidence
		}
		cost := IoUCostMatrix(boxes, activeBBoxes(candidateTracks))
		if tr.cfg.FuseScore {
			FuseScore(cost, scores)
		}

		var rows, cols []int
		if tr.cfg.UseOptimal {
			rows, cols = OptimalMatch(cost, threshold)
		} else {
			rows, cols = GreedyMatch(cost, threshold)
		}

		for k, r := range rows {
			c := cols[k]
			di := detIdxs[r]
			ti := candidateTrackOrigIdx[c]
			matched[di] = candidateTracks[c]
			matchedTrackIdx[ti] = true
		}
	}

	matchStage(high, 1-tr.cfg.MatchThresh)
	matchStage(low, 1-tr.cfg.MatchThresh)

	var unmatchedHigh []int
	for _, di := range high {
		if _, ok := matched[di]; !ok {
			unmatchedHigh = append(unmatchedHigh, di)
		}
	}

	return matched, unmatchedHigh
}
