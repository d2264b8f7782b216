package feature

import (
	"testing"

	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

func ptDet(id int, x, y float64) TrackedDetection {
	return TrackedDetection{TrackID: id, BBox: geometry.BBox{X1: x, Y1: y, X2: x, Y2: y}}
}

func testLine() LineZone {
	return LineZone{
		ID:          "gate",
		Start:       geometry.Point{X: 0.30, Y: 0.31},
		End:         geometry.Point{X: 0.71, Y: 0.30},
		Orientation: geometry.Horizontal,
		Direction:   geometry.Downward,
	}
}

func TestLineCrossSingleDownwardCrossing(t *testing.T) {
	params := DefaultLineCrossParams()
	params.InWarningThresh = 1
	f := NewLineCrossFeature([]LineZone{testLine()}, params)

	centroids := []geometry.Point{
		{X: 0.5, Y: 0.10},
		{X: 0.5, Y: 0.20},
		{X: 0.5, Y: 0.29},
		{X: 0.5, Y: 0.33},
		{X: 0.5, Y: 0.40},
	}

	var lastResult FeatureResult
	for i, c := range centroids {
		lastResult = f.Update(i+1, []TrackedDetection{ptDet(1, c.X, c.Y)})
		if i+1 == 4 {
			if len(lastResult.Alerts) != 1 || lastResult.Alerts[0].Kind != AlertLineCrossingIn {
				t.Fatalf("expected one line_crossing_in alert at frame 4, got %+v", lastResult.Alerts)
			}
		}
	}

	m := lastResult.Metrics
	if m["total_in"] != 1 || m["total_out"] != 0 {
		t.Fatalf("expected total_in=1 total_out=0, got %v %v", m["total_in"], m["total_out"])
	}

	// Wander back and forth across the line without any position jump:
	// recounting is disabled, so neither direction adds to the totals.
	wander := []float64{0.45, 0.30, 0.10, 0.25, 0.40}
	for i, y := range wander {
		lastResult = f.Update(5+i+1, []TrackedDetection{ptDet(1, 0.5, y)})
	}
	if lastResult.Metrics["total_in"] != 1 || lastResult.Metrics["total_out"] != 0 {
		t.Fatalf("expected recount suppressed, got total_in=%v total_out=%v",
			lastResult.Metrics["total_in"], lastResult.Metrics["total_out"])
	}
}

func TestLineCrossGhostJumpResets(t *testing.T) {
	params := DefaultLineCrossParams()
	params.InWarningThresh = 1
	params.MaxPositionJump = 0.25
	f := NewLineCrossFeature([]LineZone{testLine()}, params)

	r1 := f.Update(1, []TrackedDetection{ptDet(1, 0.5, 0.10)})
	if len(r1.Alerts) != 0 {
		t.Fatalf("no crossing expected at frame 1")
	}

	// Step within max_position_jump that also crosses the line: counts.
	r2 := f.Update(2, []TrackedDetection{ptDet(1, 0.5, 0.33)})
	if len(r2.Alerts) != 1 || r2.Alerts[0].Kind != AlertLineCrossingIn {
		t.Fatalf("expected one line_crossing_in at frame 2, got %+v", r2.Alerts)
	}

	// Jump of 0.47 exceeds max_position_jump: history resets, not counted as
	// a second crossing even though it would otherwise cross the line.
	r3 := f.Update(3, []TrackedDetection{ptDet(1, 0.5, 0.80)})
	if len(r3.Alerts) != 0 {
		t.Fatalf("ghost jump must not register as a crossing, got %+v", r3.Alerts)
	}
	if r3.Metrics["total_in"] != 1 {
		t.Fatalf("total_in must remain 1 after the ghost jump, got %v", r3.Metrics["total_in"])
	}

	// Frame 4's point is itself a 0.70 jump from frame 3's, so history resets
	// again and the point becomes a fresh reference with no crossing test.
	r4 := f.Update(4, []TrackedDetection{ptDet(1, 0.5, 0.10)})
	if len(r4.Alerts) != 0 {
		t.Fatalf("no crossing expected immediately after a reset baseline, got %+v", r4.Alerts)
	}

	// The track was cleared from the "already counted" set by the jump: a
	// subsequent legitimate crossing counts again.
	r5 := f.Update(5, []TrackedDetection{ptDet(1, 0.5, 0.33)})
	if r5.Metrics["total_in"] != 2 {
		t.Fatalf("expected a second legitimate crossing to count, got total_in=%v", r5.Metrics["total_in"])
	}
}

func TestLineCrossResetReturnsToBaseline(t *testing.T) {
	f := NewLineCrossFeature([]LineZone{testLine()}, DefaultLineCrossParams())
	f.Update(1, []TrackedDetection{ptDet(1, 0.5, 0.10)})
	f.Update(2, []TrackedDetection{ptDet(1, 0.5, 0.33)})

	f.Reset()
	m := f.metrics()
	if m["total_in"] != 0 || m["total_out"] != 0 || m["active_tracks"] != 0 || m["alerts_count"] != 0 {
		t.Fatalf("expected all-zero baseline after Reset, got %+v", m)
	}
}
