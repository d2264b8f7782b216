package feature

import "github.com/hafizalfariz/yoi-engine-go/internal/geometry"

// DwellTimeParams are the feature's tunables.
type DwellTimeParams struct {
	Centroid              geometry.CentroidMode
	FPS                   float64
	MinDwellSeconds       float64
	AlertThresholdSeconds float64
}

// DefaultDwellTimeParams mirrors the source's hard-coded fallbacks.
func DefaultDwellTimeParams() DwellTimeParams {
	return DwellTimeParams{
		Centroid:              geometry.MidCentre,
		FPS:                   30,
		MinDwellSeconds:       3,
		AlertThresholdSeconds: 10,
	}
}

func (p DwellTimeParams) minDwellFrames() float64   { return p.MinDwellSeconds * p.FPS }
func (p DwellTimeParams) alertThreshFrames() float64 { return p.AlertThresholdSeconds * p.FPS }

// DwellTimeFeature times how long each identity remains inside a region.
type DwellTimeFeature struct {
	regions []RegionZone
	params  DwellTimeParams

	entryFrame      map[string]map[int]int // region id -> track id -> entry frame
	currentDwelling map[string]map[int]bool
	alertedTracks   map[string]map[int]bool
	dwellTimes      map[string][]float64
	alertsCount     int
	frameCount      int
}

// NewDwellTimeFeature constructs the feature for the given regions and params.
func NewDwellTimeFeature(regions []RegionZone, params DwellTimeParams) *DwellTimeFeature {
	f := &DwellTimeFeature{regions: regions, params: params}
	f.Reset()
	return f
}

// Update implements Feature.
func (f *DwellTimeFeature) Update(frameIdx int, dets []TrackedDetection) FeatureResult {
	f.frameCount = frameIdx
	var alerts []Alert

	currentInRegion := make(map[string]map[int]bool, len(f.regions))
	for _, r := range f.regions {
		currentInRegion[r.ID] = make(map[int]bool)
	}

	for _, det := range dets {
		pt := det.BBox.Centroid(f.params.Centroid)

		for _, r := range f.regions {
			if len(r.Polygon) < 3 || !geometry.PointInPolygon(pt, r.Polygon) {
				continue
			}

			currentInRegion[r.ID][det.TrackID] = true

			if _, ok := f.entryFrame[r.ID][det.TrackID]; !ok {
				f.entryFrame[r.ID][det.TrackID] = frameIdx
				f.currentDwelling[r.ID][det.TrackID] = true
			}

			entry := f.entryFrame[r.ID][det.TrackID]
			dwellFrames := frameIdx - entry
			dwellSeconds := float64(dwellFrames) / f.params.FPS

			if float64(dwellFrames) >= f.params.alertThreshFrames() && !f.alertedTracks[r.ID][det.TrackID] {
				alerts = append(alerts, Alert{
					Kind:             AlertDwellTime,
					TrackID:          det.TrackID,
					ZoneID:           r.ID,
					FrameIndex:       frameIdx,
					DwellSeconds:     dwellSeconds,
					ThresholdSeconds: f.params.alertThreshFrames() / f.params.FPS,
				})
				f.alertedTracks[r.ID][det.TrackID] = true
				f.alertsCount++
			}
		}
	}

	for _, r := range f.regions {
		for tid := range f.currentDwelling[r.ID] {
			if currentInRegion[r.ID][tid] {
				continue
			}
			// tid was dwelling but is no longer inside: an exit.
			entry, ok := f.entryFrame[r.ID][tid]
			if ok {
				dwellFrames := frameIdx - entry
				dwellSeconds := float64(dwellFrames) / f.params.FPS
				if float64(dwellFrames) >= f.params.minDwellFrames() {
					f.dwellTimes[r.ID] = append(f.dwellTimes[r.ID], dwellSeconds)
				}
				delete(f.entryFrame[r.ID], tid)
				delete(f.alertedTracks[r.ID], tid)
			}
		}
		f.currentDwelling[r.ID] = currentInRegion[r.ID]
	}

	return FeatureResult{
		FeatureType: "dwell_time",
		Metrics:     f.metrics(),
		Alerts:      alerts,
	}
}

func (f *DwellTimeFeature) metrics() map[string]any {
	perRegion := make(map[string]any, len(f.regions))
	insideSet := make(map[int]bool)
	alertedSet := make(map[int]bool)
	var allDwells []float64

	for _, r := range f.regions {
		dwellList := f.dwellTimes[r.ID]
		avg, mx, mn := 0.0, 0.0, 0.0
		if len(dwellList) > 0 {
			sum := 0.0
			mx, mn = dwellList[0], dwellList[0]
			for _, d := range dwellList {
				sum += d
				if d > mx {
					mx = d
				}
				if d < mn {
					mn = d
				}
			}
			avg = sum / float64(len(dwellList))
		}

		var currentDwells []float64
		for tid := range f.currentDwelling[r.ID] {
			if entry, ok := f.entryFrame[r.ID][tid]; ok {
				currentDwells = append(currentDwells, float64(f.frameCount-entry)/f.params.FPS)
			}
			insideSet[tid] = true
		}
		for tid := range f.alertedTracks[r.ID] {
			alertedSet[tid] = true
		}

		perRegion[r.ID] = map[string]any{
			"current_dwelling":    len(f.currentDwelling[r.ID]),
			"current_dwell_times": currentDwells,
			"total_completed":     len(dwellList),
			"avg_dwell_seconds":   avg,
			"max_dwell_seconds":   mx,
			"min_dwell_seconds":   mn,
		}
		allDwells = append(allDwells, dwellList...)
	}

	overallAvg, overallMax := 0.0, 0.0
	if len(allDwells) > 0 {
		sum := 0.0
		overallMax = allDwells[0]
		for _, d := range allDwells {
			sum += d
			if d > overallMax {
				overallMax = d
			}
		}
		overallAvg = sum / float64(len(allDwells))
	}

	return map[string]any{
		"regions":                  perRegion,
		"inside_track_ids":         sortedIDs(insideSet),
		"alerted_track_ids":        sortedIDs(alertedSet),
		"overall_avg_dwell_seconds": overallAvg,
		"overall_max_dwell_seconds": overallMax,
		"total_dwells_recorded":    len(allDwells),
		"alerts_count":             f.alertsCount,
	}
}

// Reset implements Feature.
func (f *DwellTimeFeature) Reset() {
	f.entryFrame = make(map[string]map[int]int)
	f.currentDwelling = make(map[string]map[int]bool)
	f.alertedTracks = make(map[string]map[int]bool)
	f.dwellTimes = make(map[string][]float64)
	f.alertsCount = 0
	f.frameCount = 0

	for _, r := range f.regions {
		f.entryFrame[r.ID] = make(map[int]int)
		f.currentDwelling[r.ID] = make(map[int]bool)
		f.alertedTracks[r.ID] = make(map[int]bool)
	}
}
