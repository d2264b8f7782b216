// Package tracker maintains persistent object identities across frames,
// associating each frame's detections to existing tracks (or spawning new
// ones) and optionally re-attaching a returning track to its previous
// identity via appearance similarity.
package tracker

import (
	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
	"github.com/hafizalfariz/yoi-engine-go/internal/reid"
)

const maxHistory = 64

// Track is a persistent identity. track_id is stable and monotonic for the
// process lifetime and is never reused.
type Track struct {
	ID         int
	ClassName  string
	History    []geometry.Point
	FrameIdxs  []int
	LastFrame  int
	ConfHist   []float64
	Embedding  reid.Embedding
	LastBBox   detect.BBox
	active     bool
	lostFrames int
}

// Active reports whether the track is part of the current active set.
func (t *Track) Active() bool { return t.active }

// Centroid returns the most recent reference point recorded for this track.
func (t *Track) Centroid() geometry.Point {
	return t.History[len(t.History)-1]
}

func (t *Track) appendObservation(frameIdx int, pt geometry.Point, conf float64, bbox detect.BBox) {
	t.History = append(t.History, pt)
	t.FrameIdxs = append(t.FrameIdxs, frameIdx)
	t.ConfHist = append(t.ConfHist, conf)
	if len(t.History) > maxHistory {
		t.History = t.History[len(t.History)-maxHistory:]
		t.FrameIdxs = t.FrameIdxs[len(t.FrameIdxs)-maxHistory:]
		t.ConfHist = t.ConfHist[len(t.ConfHist)-maxHistory:]
	}
	t.LastFrame = frameIdx
	t.LastBBox = bbox
	t.lostFrames = 0
	t.active = true
}

// Config holds the tunables named stably across both associator
// implementations, matching the tunable names enumerated for the Identity
// Tracker. Distances (MaxDistance) and centroids operate in pixel space,
// same as the bbox the detector returns; normalization to [0,1]^2 happens
// only at the feature boundary in the engine orchestrator.
type Config struct {
	MaxLostFrames   int
	MaxDistance     float64
	HighThresh      float64
	LowThresh       float64
	NewTrackThresh  float64
	MatchThresh     float64
	TrackBuffer     int
	FuseScore       bool
	UseOptimal      bool // use the exact Hungarian solver instead of greedy matching
	ReIDEnabled     bool
	ReIDSimilarity  float64
	ReIDMomentum    float64
	CentroidMode    geometry.CentroidMode
	ImplByteTrack   bool // true selects the ByteTrack associator; false selects centroid nearest-neighbor
}

// DefaultConfig returns the tunable values used when a config file leaves a
// field unset.
func DefaultConfig() Config {
	return Config{
		MaxLostFrames:  30,
		MaxDistance:    0.1,
		HighThresh:     0.6,
		LowThresh:      0.1,
		NewTrackThresh: 0.7,
		MatchThresh:    0.8,
		TrackBuffer:    30,
		FuseScore:      false,
		ReIDEnabled:    false,
		ReIDSimilarity: 0.85,
		ReIDMomentum:   0.1,
		CentroidMode:   geometry.MidCentre,
		ImplByteTrack:  true,
	}
}
