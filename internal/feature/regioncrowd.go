package feature

import "github.com/hafizalfariz/yoi-engine-go/internal/geometry"

// RegionZone is a configured, immutable polygon evaluated for occupancy.
type RegionZone struct {
	ID      string
	Polygon []geometry.Point
}

// RegionCrowdParams are the feature's tunables.
type RegionCrowdParams struct {
	Centroid          geometry.CentroidMode
	AlertThreshold    int
	WarningThreshold  int
	CriticalThreshold int
	CooldownSeconds   float64
	FPS               float64
}

// DefaultRegionCrowdParams mirrors the source's hard-coded fallbacks.
func DefaultRegionCrowdParams() RegionCrowdParams {
	return RegionCrowdParams{
		Centroid:          geometry.MidCentre,
		AlertThreshold:    10,
		WarningThreshold:  10,
		CriticalThreshold: 11,
		CooldownSeconds:   5,
		FPS:               30,
	}
}

// RegionCrowdFeature counts and classifies occupancy within configured
// polygons.
type RegionCrowdFeature struct {
	regions []RegionZone
	params  RegionCrowdParams

	currentCounts  map[string]int
	maxCounts      map[string]int
	lastAlertFrame map[string]int
	everAlerted    map[string]bool
	tracksInRegion map[string]map[int]bool
	alertsCount    int
}

// NewRegionCrowdFeature constructs the feature for the given regions and params.
func NewRegionCrowdFeature(regions []RegionZone, params RegionCrowdParams) *RegionCrowdFeature {
	f := &RegionCrowdFeature{regions: regions, params: params}
	f.Reset()
	return f
}

func (f *RegionCrowdFeature) cooldownFrames() float64 {
	return f.params.CooldownSeconds * f.params.FPS
}

// Update implements Feature.
func (f *RegionCrowdFeature) Update(frameIdx int, dets []TrackedDetection) FeatureResult {
	var alerts []Alert

	for _, r := range f.regions {
		f.currentCounts[r.ID] = 0
		f.tracksInRegion[r.ID] = make(map[int]bool)
	}

	for _, det := range dets {
		pt := det.BBox.Centroid(f.params.Centroid)

		for _, r := range f.regions {
			if len(r.Polygon) < 3 || !geometry.PointInPolygon(pt, r.Polygon) {
				continue
			}

			f.currentCounts[r.ID]++
			f.tracksInRegion[r.ID][det.TrackID] = true

			if f.currentCounts[r.ID] > f.maxCounts[r.ID] {
				f.maxCounts[r.ID] = f.currentCounts[r.ID]
			}

			cooledDown := !f.everAlerted[r.ID] || float64(frameIdx-f.lastAlertFrame[r.ID]) >= f.cooldownFrames()
			if f.currentCounts[r.ID] >= f.params.AlertThreshold && cooledDown {
				alerts = append(alerts, Alert{
					Kind:       AlertRegionCrowd,
					ZoneID:     r.ID,
					FrameIndex: frameIdx,
					Count:      f.currentCounts[r.ID],
					Threshold:  f.params.AlertThreshold,
				})
				f.lastAlertFrame[r.ID] = frameIdx
				f.everAlerted[r.ID] = true
				f.alertsCount++
			}
		}
	}

	return FeatureResult{
		FeatureType: "region_crowd",
		Metrics:     f.metrics(),
		Alerts:      alerts,
	}
}

func (f *RegionCrowdFeature) metrics() map[string]any {
	perRegion := make(map[string]any, len(f.regions))
	totalCurrent, totalMax := 0, 0
	insideSet := make(map[int]bool)

	for _, r := range f.regions {
		current := f.currentCounts[r.ID]
		status := "normal"
		switch {
		case current >= f.params.CriticalThreshold:
			status = "critical"
		case current >= f.params.WarningThreshold:
			status = "warning"
		}
		perRegion[r.ID] = map[string]any{
			"current_count":  current,
			"max_count":      f.maxCounts[r.ID],
			"active_tracks":  len(f.tracksInRegion[r.ID]),
			"status":         status,
		}
		totalCurrent += current
		totalMax += f.maxCounts[r.ID]
		for tid := range f.tracksInRegion[r.ID] {
			insideSet[tid] = true
		}
	}

	inside := sortedIDs(insideSet)

	return map[string]any{
		"total_current":     totalCurrent,
		"total_max":         totalMax,
		"warning_threshold": f.params.WarningThreshold,
		"critical_threshold": f.params.CriticalThreshold,
		"inside_track_ids":  inside,
		"per_region":        perRegion,
		"alerts_count":      f.alertsCount,
	}
}

// Reset implements Feature.
func (f *RegionCrowdFeature) Reset() {
	f.currentCounts = make(map[string]int)
	f.maxCounts = make(map[string]int)
	f.lastAlertFrame = make(map[string]int)
	f.everAlerted = make(map[string]bool)
	f.tracksInRegion = make(map[string]map[int]bool)
	f.alertsCount = 0
}
