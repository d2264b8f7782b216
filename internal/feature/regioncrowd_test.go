package feature

import (
	"testing"

	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

func testTriangle() RegionZone {
	return RegionZone{
		ID: "plaza",
		Polygon: []geometry.Point{
			{X: 0.1, Y: 0.1},
			{X: 0.9, Y: 0.1},
			{X: 0.5, Y: 0.9},
		},
	}
}

func TestRegionCrowdCooldown(t *testing.T) {
	params := RegionCrowdParams{
		WarningThreshold:  3,
		CriticalThreshold: 6,
		AlertThreshold:    3,
		CooldownSeconds:   5,
		FPS:               30,
		Centroid:          geometry.MidCentre,
	}
	f := NewRegionCrowdFeature([]RegionZone{testTriangle()}, params)

	dets := []TrackedDetection{
		ptDet(1, 0.45, 0.4),
		ptDet(2, 0.5, 0.4),
		ptDet(3, 0.55, 0.4),
		ptDet(4, 0.5, 0.3),
	}

	alertFrames := []int{}
	var last FeatureResult
	for frame := 1; frame <= 300; frame++ {
		last = f.Update(frame, dets)
		if len(last.Alerts) > 0 {
			alertFrames = append(alertFrames, frame)
		}
		region := last.Metrics["per_region"].(map[string]any)["plaza"].(map[string]any)
		if region["status"] != "warning" {
			t.Fatalf("frame %d: expected status warning throughout, got %v", frame, region["status"])
		}
	}

	if len(alertFrames) == 0 {
		t.Fatal("expected at least one alert")
	}
	if alertFrames[0] != 1 {
		t.Fatalf("expected first alert on frame 1 (the first frame count reaches threshold), got %d", alertFrames[0])
	}
	if len(alertFrames) > 1 && alertFrames[1] < 1+150 {
		t.Fatalf("expected the next alert no earlier than frame 151, got %d", alertFrames[1])
	}
}

func TestRegionCrowdMaxCountMonotonic(t *testing.T) {
	f := NewRegionCrowdFeature([]RegionZone{testTriangle()}, DefaultRegionCrowdParams())

	f.Update(1, []TrackedDetection{ptDet(1, 0.5, 0.4), ptDet(2, 0.5, 0.3)})
	r1 := f.metrics()["per_region"].(map[string]any)["plaza"].(map[string]any)
	if r1["max_count"] != 2 {
		t.Fatalf("expected max_count=2, got %v", r1["max_count"])
	}

	f.Update(2, []TrackedDetection{ptDet(1, 0.5, 0.4)})
	r2 := f.metrics()["per_region"].(map[string]any)["plaza"].(map[string]any)
	if r2["max_count"] != 2 {
		t.Fatalf("max_count must not decrease, got %v", r2["max_count"])
	}
}
