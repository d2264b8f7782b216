package engine

import (
	"fmt"

	"github.com/hafizalfariz/yoi-engine-go/internal/config"
	"github.com/hafizalfariz/yoi-engine-go/internal/feature"
	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
	"github.com/hafizalfariz/yoi-engine-go/internal/tracker"
)

// buildFeature translates a validated config.Config into exactly one
// concrete Feature handle, constructed once at startup, per spec.md §9's
// "tagged-variant feature handle" design note: the source picks the
// feature by name and this is the one place config fields become feature
// state. fps is the frame source's reported rate, needed to convert the
// region-crowd/dwell-time second-denominated tunables into frame counts.
func buildFeature(cfg *config.Config, fps float64) (feature.Feature, error) {
	switch cfg.Feature.Type {
	case config.FeatureLineCross:
		lines := make([]feature.LineZone, len(cfg.Geometry.Lines))
		for i, l := range cfg.Geometry.Lines {
			lines[i] = feature.LineZone{
				ID:            l.ID,
				Start:         l.Start(),
				End:           l.End(),
				Orientation:   l.Orientation,
				Direction:     l.Direction,
				Bidirectional: l.Bidirectional,
			}
		}
		params := feature.DefaultLineCrossParams()
		if p := cfg.Feature.LineCross; p != nil {
			params = feature.LineCrossParams{
				Centroid:         orDefaultCentroid(p.Centroid),
				LostThreshold:    orDefaultInt(p.LostThreshold, params.LostThreshold),
				AllowRecounting:  p.AllowRecounting,
				MaxPositionJump:  orDefaultFloat(p.MaxPositionJump, params.MaxPositionJump),
				InWarningThresh:  orDefaultInt(p.InWarningThresh, params.InWarningThresh),
				OutWarningThresh: orDefaultInt(p.OutWarningThresh, params.OutWarningThresh),
			}
		}
		return feature.NewLineCrossFeature(lines, params), nil

	case config.FeatureRegionCrowd:
		regions := buildRegionZones(cfg.Geometry.Regions)
		params := feature.DefaultRegionCrowdParams()
		params.FPS = fps
		if p := cfg.Feature.RegionCrowd; p != nil {
			params = feature.RegionCrowdParams{
				Centroid:          orDefaultCentroid(p.Centroid),
				AlertThreshold:    orDefaultInt(p.AlertThreshold, params.AlertThreshold),
				WarningThreshold:  orDefaultInt(p.WarningThreshold, params.WarningThreshold),
				CriticalThreshold: orDefaultInt(p.CriticalThreshold, params.CriticalThreshold),
				CooldownSeconds:   orDefaultFloat(p.CooldownSeconds, params.CooldownSeconds),
				FPS:               fps,
			}
		}
		return feature.NewRegionCrowdFeature(regions, params), nil

	case config.FeatureDwellTime:
		regions := buildRegionZones(cfg.Geometry.Regions)
		params := feature.DefaultDwellTimeParams()
		params.FPS = fps
		if p := cfg.Feature.DwellTime; p != nil {
			params = feature.DwellTimeParams{
				Centroid:              orDefaultCentroid(p.Centroid),
				FPS:                   fps,
				MinDwellSeconds:       orDefaultFloat(p.MinDwellSeconds, params.MinDwellSeconds),
				AlertThresholdSeconds: orDefaultFloat(p.AlertThresholdSeconds, params.AlertThresholdSeconds),
			}
		}
		return feature.NewDwellTimeFeature(regions, params), nil

	default:
		return nil, fmt.Errorf("engine: unknown feature type %q", cfg.Feature.Type)
	}
}

func buildRegionZones(regions []config.RegionZone) []feature.RegionZone {
	out := make([]feature.RegionZone, len(regions))
	for i, r := range regions {
		out[i] = feature.RegionZone{ID: r.ID, Polygon: r.Polygon()}
	}
	return out
}

func orDefaultCentroid(v geometry.CentroidMode) geometry.CentroidMode {
	if v == "" {
		return geometry.MidCentre
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// buildTrackerConfig translates the tracking section of cfg, applying any
// environment-knob overrides, into a tracker.Config.
func buildTrackerConfig(cfg *config.Config, overrides EnvOverrides) tracker.Config {
	tc := tracker.DefaultConfig()
	tc.ImplByteTrack = cfg.Tracking.TrackerImpl != "centroid"
	tc.MaxLostFrames = orDefaultInt(cfg.Tracking.MaxLostFrames, tc.MaxLostFrames)
	tc.MaxDistance = orDefaultFloat(cfg.Tracking.MaxDistance, tc.MaxDistance)
	tc.HighThresh = orDefaultFloat(cfg.Tracking.HighThresh, tc.HighThresh)
	tc.LowThresh = orDefaultFloat(cfg.Tracking.LowThresh, tc.LowThresh)
	tc.NewTrackThresh = orDefaultFloat(cfg.Tracking.NewTrackThresh, tc.NewTrackThresh)
	tc.MatchThresh = orDefaultFloat(cfg.Tracking.MatchThresh, tc.MatchThresh)
	tc.TrackBuffer = orDefaultInt(cfg.Tracking.TrackBuffer, tc.TrackBuffer)
	tc.FuseScore = cfg.Tracking.FuseScore
	tc.ReIDEnabled = cfg.Tracking.ReIDEnabled
	tc.ReIDSimilarity = orDefaultFloat(cfg.Tracking.ReIDSimilarity, tc.ReIDSimilarity)
	tc.ReIDMomentum = orDefaultFloat(cfg.Tracking.ReIDMomentum, tc.ReIDMomentum)

	if overrides.ReIDEnabled != nil {
		tc.ReIDEnabled = *overrides.ReIDEnabled
	}
	if overrides.ReIDSimilarityThresh != nil {
		tc.ReIDSimilarity = *overrides.ReIDSimilarityThresh
	}
	if overrides.ReIDMomentum != nil {
		tc.ReIDMomentum = *overrides.ReIDMomentum
	}
	return tc
}
