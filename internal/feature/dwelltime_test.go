package feature

import (
	"math"
	"testing"
)

func TestDwellTimeAlertAndCompletedSample(t *testing.T) {
	params := DwellTimeParams{
		FPS:                   30,
		AlertThresholdSeconds: 10,
		MinDwellSeconds:       5,
	}
	f := NewDwellTimeFeature([]RegionZone{testTriangle()}, params)

	var lastAlertFrame int
	var exitResult FeatureResult
	for frame := 1; frame <= 500; frame++ {
		if frame < 100 {
			f.Update(frame, nil)
			continue
		}
		if frame >= 500 {
			// The track exits at frame 500: no longer present.
			exitResult = f.Update(frame, nil)
			continue
		}
		result := f.Update(frame, []TrackedDetection{ptDet(1, 0.5, 0.4)})
		for _, a := range result.Alerts {
			lastAlertFrame = frame
			if math.Abs(a.DwellSeconds-10.0) > 1e-9 {
				t.Fatalf("frame %d: expected dwell_time_seconds ~= 10.0, got %v", frame, a.DwellSeconds)
			}
		}
	}

	if lastAlertFrame != 400 {
		t.Fatalf("expected dwell_time_alert at frame 400 (100+300), got %d", lastAlertFrame)
	}

	metrics := exitResult.Metrics["regions"].(map[string]any)["plaza"].(map[string]any)
	if metrics["total_completed"] != 1 {
		t.Fatalf("expected one completed dwell sample, got %v", metrics["total_completed"])
	}
	maxDwell := metrics["max_dwell_seconds"].(float64)
	if math.Abs(maxDwell-13.333333333333334) > 1e-6 {
		t.Fatalf("expected completed dwell ~= 13.33s, got %v", maxDwell)
	}
}

func TestDwellTimeResetReturnsToBaseline(t *testing.T) {
	f := NewDwellTimeFeature([]RegionZone{testTriangle()}, DefaultDwellTimeParams())
	f.Update(1, []TrackedDetection{ptDet(1, 0.5, 0.4)})
	f.Reset()

	m := f.metrics()
	if m["total_dwells_recorded"] != 0 || m["alerts_count"] != 0 {
		t.Fatalf("expected all-zero baseline after Reset, got %+v", m)
	}
}
