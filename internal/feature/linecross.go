package feature

import "github.com/hafizalfariz/yoi-engine-go/internal/geometry"

const lineCrossHistoryCap = 10

// LineZone is a configured, immutable line segment evaluated for directed
// crossings.
type LineZone struct {
	ID            string
	Start, End    geometry.Point
	Orientation   geometry.Orientation
	Direction     geometry.Direction
	Bidirectional bool
}

// LineCrossParams are the feature's tunables, named to match the source's
// config fields.
type LineCrossParams struct {
	Centroid         geometry.CentroidMode
	LostThreshold    int
	AllowRecounting  bool
	MaxPositionJump  float64
	InWarningThresh  int
	OutWarningThresh int
}

// DefaultLineCrossParams mirrors the source's hard-coded fallbacks.
func DefaultLineCrossParams() LineCrossParams {
	return LineCrossParams{
		Centroid:         geometry.MidCentre,
		LostThreshold:    30,
		AllowRecounting:  false,
		MaxPositionJump:  0.25,
		InWarningThresh:  5,
		OutWarningThresh: 5,
	}
}

type lineCrossTrackState struct {
	history   []geometry.Point
	lastSeen  int
}

// LineCrossFeature counts directed "in"/"out" crossings of configured lines
// produced by tracked objects' trajectories.
type LineCrossFeature struct {
	lines  []LineZone
	params LineCrossParams

	tracks  map[int]*lineCrossTrackState
	crossed map[string]map[int]bool // line id -> track ids already counted

	inCounts, outCounts map[string]int
	totalIn, totalOut   int
	alertsCount         int
}

// NewLineCrossFeature constructs the feature for the given lines and params.
func NewLineCrossFeature(lines []LineZone, params LineCrossParams) *LineCrossFeature {
	f := &LineCrossFeature{lines: lines, params: params}
	f.Reset()
	return f
}

func (f *LineCrossFeature) centroid(bbox geometry.BBox) geometry.Point {
	return bbox.Centroid(f.params.Centroid)
}

// Update implements Feature.
func (f *LineCrossFeature) Update(frameIdx int, dets []TrackedDetection) FeatureResult {
	var alerts []Alert

	for tid, st := range f.tracks {
		if frameIdx-st.lastSeen > f.params.LostThreshold {
			delete(f.tracks, tid)
		}
	}

	for _, det := range dets {
		tid := det.TrackID
		curr := f.centroid(det.BBox)

		st, ok := f.tracks[tid]
		if !ok {
			st = &lineCrossTrackState{}
			f.tracks[tid] = st
		}

		var prev geometry.Point
		hasPrev := len(st.history) > 0
		if hasPrev {
			prev = st.history[len(st.history)-1]
			if prev.Dist(curr) > f.params.MaxPositionJump {
				st.history = nil
				hasPrev = false
				for _, set := range f.crossed {
					delete(set, tid)
				}
			}
		}

		st.history = append(st.history, curr)
		if len(st.history) > lineCrossHistoryCap {
			st.history = st.history[len(st.history)-lineCrossHistoryCap:]
		}
		st.lastSeen = frameIdx

		if !hasPrev {
			continue
		}

		for _, line := range f.lines {
			if !f.params.AllowRecounting && f.crossed[line.ID][tid] {
				continue
			}
			if !geometry.SegmentsIntersect(prev, curr, line.Start, line.End) {
				continue
			}

			sign := geometry.LineCrossingDirection(prev, curr, line.Start, line.End, line.Orientation, line.Direction)
			if sign == geometry.NoCross {
				continue
			}

			if f.crossed[line.ID] == nil {
				f.crossed[line.ID] = make(map[int]bool)
			}
			f.crossed[line.ID][tid] = true

			switch sign {
			case geometry.CrossIn:
				f.inCounts[line.ID]++
				f.totalIn++
				if f.inCounts[line.ID] >= f.params.InWarningThresh {
					a := Alert{
						Kind:       AlertLineCrossingIn,
						TrackID:    tid,
						ZoneID:     line.ID,
						FrameIndex: frameIdx,
						Count:      f.inCounts[line.ID],
						Threshold:  f.params.InWarningThresh,
					}
					alerts = append(alerts, a)
					f.alertsCount++
				}
			case geometry.CrossOut:
				f.outCounts[line.ID]++
				f.totalOut++
				if f.outCounts[line.ID] >= f.params.OutWarningThresh {
					a := Alert{
						Kind:       AlertLineCrossingOut,
						TrackID:    tid,
						ZoneID:     line.ID,
						FrameIndex: frameIdx,
						Count:      f.outCounts[line.ID],
						Threshold:  f.params.OutWarningThresh,
					}
					alerts = append(alerts, a)
					f.alertsCount++
				}
			}
		}
	}

	return FeatureResult{
		FeatureType: "line_cross",
		Metrics:     f.metrics(),
		Alerts:      alerts,
	}
}

func (f *LineCrossFeature) metrics() map[string]any {
	perLine := make(map[string]any, len(f.lines))
	for _, line := range f.lines {
		in, out := f.inCounts[line.ID], f.outCounts[line.ID]
		perLine[line.ID] = map[string]any{
			"in":  in,
			"out": out,
			"net": in - out,
		}
	}
	return map[string]any{
		"total_in":      f.totalIn,
		"total_out":     f.totalOut,
		"net_count":     f.totalIn - f.totalOut,
		"per_line":      perLine,
		"active_tracks": len(f.tracks),
		"alerts_count":  f.alertsCount,
	}
}

// Reset implements Feature.
func (f *LineCrossFeature) Reset() {
	f.tracks = make(map[int]*lineCrossTrackState)
	f.crossed = make(map[string]map[int]bool)
	f.inCounts = make(map[string]int)
	f.outCounts = make(map[string]int)
	f.totalIn, f.totalOut, f.alertsCount = 0, 0, 0
}
