package annotate

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/config"
	"github.com/hafizalfariz/yoi-engine-go/internal/feature"
	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
	"github.com/hafizalfariz/yoi-engine-go/internal/testutil"
)

func blackFrame(w, h int) gocv.Mat {
	return gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
}

func TestApplyAlerts_StickyUntilNewAlert(t *testing.T) {
	a := New()
	a.ApplyAlerts([]feature.Alert{{Kind: feature.AlertLineCrossingIn, TrackID: 5}})
	if a.sticky[5] != StateIn {
		t.Fatalf("expected track 5 sticky state 'in', got %q", a.sticky[5])
	}

	// A frame with no new alerts for track 5 must not revert its state.
	a.ApplyAlerts(nil)
	if a.sticky[5] != StateIn {
		t.Fatalf("sticky state reverted without a new alert: got %q", a.sticky[5])
	}

	a.ApplyAlerts([]feature.Alert{{Kind: feature.AlertDwellTime, TrackID: 5}})
	if a.sticky[5] != StateDwellAlert {
		t.Fatalf("expected sticky state to update to dwell_alert, got %q", a.sticky[5])
	}
}

func TestGC_DropsInactiveTracks(t *testing.T) {
	a := New()
	a.ApplyAlerts([]feature.Alert{{Kind: feature.AlertLineCrossingOut, TrackID: 1}})
	a.GC(map[int]bool{2: true})
	if _, ok := a.sticky[1]; ok {
		t.Fatalf("expected track 1 to be garbage collected")
	}
}

func TestDrawTracks_ChangesPixels(t *testing.T) {
	frame := blackFrame(200, 200)
	defer frame.Close()
	before := frame.Clone()
	defer before.Close()

	a := New()
	a.DrawTracks(&frame, []Track{{ID: 1, ClassName: "person", BBox: image.Rect(20, 20, 80, 140)}})

	similarity := testutil.ImageSimilarity(&before, &frame, 0)
	if similarity >= 1.0 {
		t.Fatalf("expected DrawTracks to modify pixels, similarity = %v", similarity)
	}
}

func TestDrawLines_Denormalizes(t *testing.T) {
	frame := blackFrame(200, 100)
	defer frame.Close()
	before := frame.Clone()
	defer before.Close()

	a := New()
	lines := []config.LineZone{{
		ID:     "l1",
		Coords: []config.CoordPoint{{X: 0.1, Y: 0.5}, {X: 0.9, Y: 0.5}},
	}}
	a.DrawLines(&frame, lines, 200, 100)

	similarity := testutil.ImageSimilarity(&before, &frame, 0)
	if similarity >= 1.0 {
		t.Fatalf("expected DrawLines to modify pixels, similarity = %v", similarity)
	}
}

func TestMetricsHUDLines_SortedAndIncludesFPS(t *testing.T) {
	lines := MetricsHUDLines(29.97, map[string]any{
		"total_in":  3,
		"total_out": 1,
		"per_line":  map[string]any{"l1": 1},
	})
	if len(lines) != 3 {
		t.Fatalf("expected 3 HUD lines (fps + 2 scalar metrics), got %d: %v", len(lines), lines)
	}
	if lines[0] != "fps: 30.0" {
		t.Fatalf("expected rounded fps line first, got %q", lines[0])
	}
}

func TestDenorm_MapsUnitSquareToPixels(t *testing.T) {
	p := denorm(geometry.Point{X: 0.5, Y: 0.25}, 400, 200)
	if p.X != 200 || p.Y != 50 {
		t.Fatalf("denorm(0.5,0.25; 400x200) = %v, want (200,50)", p)
	}
}
