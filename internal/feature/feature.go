// Package feature implements the three interchangeable feature state
// machines evaluated against tracked identities: line-crossing counts,
// region occupancy, and dwell time. Exactly one is active per pipeline,
// selected once at startup as a tagged-variant handle.
package feature

import (
	"sort"

	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

// AlertKind enumerates the alert types a feature can emit.
type AlertKind string

const (
	AlertLineCrossingIn  AlertKind = "line_crossing_in"
	AlertLineCrossingOut AlertKind = "line_crossing_out"
	AlertRegionCrowd     AlertKind = "region_crowd_alert"
	AlertDwellTime       AlertKind = "dwell_time_alert"
)

// Alert is a single emitted event. Fields not meaningful for a given Kind
// are left at their zero value.
type Alert struct {
	Kind             AlertKind
	TrackID          int
	ZoneID           string
	FrameIndex       int
	Count            int
	Threshold        int
	DwellSeconds     float64
	ThresholdSeconds float64
}

// FeatureResult is produced once per frame by the active feature.
type FeatureResult struct {
	FeatureType string
	Metrics     map[string]any
	Alerts      []Alert
}

// TrackedDetection is the normalized, per-track input a feature consumes:
// the track identity and its current bounding box in [0,1]^2 coordinates.
type TrackedDetection struct {
	TrackID int
	BBox    geometry.BBox
}

// Feature is the common contract for the three state machines: consume one
// frame's tracked detections, produce a FeatureResult, and support resetting
// to the all-zero baseline for its type.
type Feature interface {
	Update(frameIdx int, dets []TrackedDetection) FeatureResult
	Reset()
}

// sortedIDs returns the keys of a track-id set in ascending order, matching
// the sorted inside_track_ids metric every feature reports.
func sortedIDs(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
