package tracker

import (
	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
	"github.com/hafizalfariz/yoi-engine-go/internal/reid"
)

// Tracker consumes the unordered detection set for a frame and produces a
// stable track_id -> (centroid, class_name) mapping for everything
// associated this frame. It wraps one of two interchangeable association
// strategies (ByteTrack-style two-stage, or centroid nearest-neighbor) with
// an optional Re-ID layer that hides the associator's own id churn from
// downstream consumers.
type Tracker struct {
	cfg       Config
	extractor *reid.Extractor

	tracks []*Track
	nextID int
}

// New returns a Tracker configured with cfg. If cfg.ReIDEnabled, extractor
// must be non-nil.
func New(cfg Config, extractor *reid.Extractor) *Tracker {
	return &Tracker{cfg: cfg, extractor: extractor}
}

// Active returns the currently active tracks (associated this frame or
// still within max_lost_frames).
func (tr *Tracker) Active() []*Track {
	out := make([]*Track, 0, len(tr.tracks))
	for _, t := range tr.tracks {
		if t.active {
			out = append(out, t)
		}
	}
	return out
}

// Update associates dets against the current track set for frameIdx and
// returns the tracks associated this frame. frame is used for Re-ID
// embedding extraction when enabled; pass a zero gocv.Mat when Re-ID is
// disabled.
func (tr *Tracker) Update(frameIdx int, dets []detect.Detection, frame gocv.Mat) []*Track {
	var matchedDet map[int]*Track
	var unmatchedDet []int

	if tr.cfg.ImplByteTrack {
		matchedDet, unmatchedDet = tr.updateByteTrack(dets)
	} else {
		matchedDet, unmatchedDet = tr.updateCentroid(dets, frame)
	}

	for detIdx, t := range matchedDet {
		tr.applyObservation(t, frameIdx, dets[detIdx], frame)
	}

	for _, detIdx := range unmatchedDet {
		d := dets[detIdx]
		if d.Confidence < tr.cfg.NewTrackThresh {
			continue
		}
		t := tr.spawnOrRevive(frameIdx, d, frame)
		matchedDet[detIdx] = t
	}

	tr.ageAndEvict(frameIdx)

	associated := make([]*Track, 0, len(matchedDet))
	for _, t := range tr.tracks {
		if t.LastFrame == frameIdx {
			associated = append(associated, t)
		}
	}
	return associated
}

func (tr *Tracker) applyObservation(t *Track, frameIdx int, d detect.Detection, frame gocv.Mat) {
	pt := d.Centroid(tr.cfg.CentroidMode)
	t.ClassName = d.ClassName
	t.appendObservation(frameIdx, pt, d.Confidence, d.BBox)
	if tr.cfg.ReIDEnabled && tr.extractor != nil {
		emb := tr.extractor.Extract(frame, d.BBox)
		if emb != nil {
			t.Embedding = reid.UpdateRunning(t.Embedding, emb, tr.cfg.ReIDMomentum)
		}
	}
}

// spawnOrRevive allocates a new track id for a detection that could not be
// matched to any active track, unless Re-ID finds a dormant track of the
// same class whose embedding is similar enough, in which case that track's
// id is reused.
func (tr *Tracker) spawnOrRevive(frameIdx int, d detect.Detection, frame gocv.Mat) *Track {
	var newEmb reid.Embedding
	if tr.cfg.ReIDEnabled && tr.extractor != nil {
		newEmb = tr.extractor.Extract(frame, d.BBox)
	}

	if tr.cfg.ReIDEnabled && newEmb != nil {
		if revived := tr.findRevivalCandidate(d.ClassName, newEmb); revived != nil {
			revived.Embedding = reid.UpdateRunning(revived.Embedding, newEmb, tr.cfg.ReIDMomentum)
			tr.applyObservationFresh(revived, frameIdx, d)
			return revived
		}
	}

	t := &Track{ID: tr.nextID, ClassName: d.ClassName}
	tr.nextID++
	pt := d.Centroid(tr.cfg.CentroidMode)
	t.appendObservation(frameIdx, pt, d.Confidence, d.BBox)
	t.Embedding = newEmb
	tr.tracks = append(tr.tracks, t)
	return t
}

func (tr *Tracker) applyObservationFresh(t *Track, frameIdx int, d detect.Detection) {
	pt := d.Centroid(tr.cfg.CentroidMode)
	t.ClassName = d.ClassName
	t.appendObservation(frameIdx, pt, d.Confidence, d.BBox)
}

// findRevivalCandidate looks among inactive tracks of the same class for the
// best cosine-similarity match to newEmb, returning it if the similarity
// clears reid_similarity_thresh.
func (tr *Tracker) findRevivalCandidate(className string, newEmb reid.Embedding) *Track {
	var best *Track
	bestSim := 0.0
	for _, t := range tr.tracks {
		if t.active || t.ClassName != className || t.Embedding == nil {
			continue
		}
		sim := reid.CosineSimilarity(t.Embedding, newEmb)
		if sim >= tr.cfg.ReIDSimilarity && sim > bestSim {
			best, bestSim = t, sim
		}
	}
	return best
}

// ageAndEvict marks tracks not associated this frame as inactive once they
// exceed max_lost_frames, and permanently removes tracks past a bounded
// revival window (track_buffer frames beyond max_lost_frames).
func (tr *Tracker) ageAndEvict(frameIdx int) {
	kept := tr.tracks[:0]
	for _, t := range tr.tracks {
		if t.LastFrame == frameIdx {
			kept = append(kept, t)
			continue
		}
		t.lostFrames = frameIdx - t.LastFrame
		if t.lostFrames > tr.cfg.MaxLostFrames {
			t.active = false
		}
		if t.lostFrames > tr.cfg.MaxLostFrames+tr.cfg.TrackBuffer {
			continue // evicted: drop permanently, id never reused
		}
		kept = append(kept, t)
	}
	tr.tracks = kept
}

func activeBBoxes(tracks []*Track) []detect.BBox {
	out := make([]detect.BBox, len(tracks))
	for i, t := range tracks {
		out[i] = t.LastBBox
	}
	return out
}
