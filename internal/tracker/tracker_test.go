package tracker

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
	"github.com/hafizalfariz/yoi-engine-go/internal/reid"
)

func solidFrame(w, h int, c color) gocv.Mat {
	frame := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, image.Rect(0, 0, w, h), gocv.NewScalar(c.B, c.G, c.R, 0), -1)
	return frame
}

type color struct{ B, G, R float64 }

func det(x1, y1, x2, y2 float64, conf float64) detect.Detection {
	return detect.Detection{
		ClassName:  "person",
		Confidence: conf,
		BBox:       detect.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
	}
}

func TestByteTrackBasicAssociation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImplByteTrack = true
	tr := New(cfg, reid.NewExtractor())

	frame := solidFrame(200, 200, color{100, 100, 100})
	defer frame.Close()

	tracks := tr.Update(1, []detect.Detection{det(10, 10, 50, 50, 0.9)}, frame)
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track after frame 1, got %d", len(tracks))
	}
	id := tracks[0].ID

	// Same object, slightly moved: should keep the same id via IoU match.
	tracks = tr.Update(2, []detect.Detection{det(12, 12, 52, 52, 0.9)}, frame)
	if len(tracks) != 1 || tracks[0].ID != id {
		t.Fatalf("expected track id %d to persist, got %+v", id, tracks)
	}
}

func TestByteTrackAgesOutLostTracks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLostFrames = 2
	cfg.TrackBuffer = 1
	tr := New(cfg, nil)

	frame := solidFrame(200, 200, color{100, 100, 100})
	defer frame.Close()

	tr.Update(1, []detect.Detection{det(10, 10, 50, 50, 0.9)}, frame)
	for f := 2; f <= 6; f++ {
		tr.Update(f, nil, frame)
	}
	if active := tr.Active(); len(active) != 0 {
		t.Fatalf("expected track to age out, still active: %+v", active)
	}
}

func TestCentroidAssociator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImplByteTrack = false
	cfg.MaxDistance = 5.0 // pixel-space distance at the tracker boundary
	tr := New(cfg, reid.NewExtractor())

	frame := solidFrame(100, 100, color{50, 50, 50})
	defer frame.Close()

	tracks := tr.Update(1, []detect.Detection{det(1, 1, 11, 11, 0.9)}, frame)
	id := tracks[0].ID

	tracks = tr.Update(2, []detect.Detection{det(2, 2, 12, 12, 0.9)}, frame)
	if tracks[0].ID != id {
		t.Fatalf("expected centroid associator to keep id %d, got %d", id, tracks[0].ID)
	}
}

func TestReIDIdentityRecovery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImplByteTrack = true
	cfg.ReIDEnabled = true
	cfg.ReIDSimilarity = 0.85
	cfg.MaxLostFrames = 30
	tr := New(cfg, reid.NewExtractor())

	redFrame := solidFrame(200, 200, color{20, 20, 220})
	defer redFrame.Close()
	blueFrame := solidFrame(200, 200, color{220, 20, 20})
	defer blueFrame.Close()

	// Observed for a while with a distinctive (red) appearance.
	var tracks []*Track
	for f := 1; f <= 30; f++ {
		tracks = tr.Update(f, []detect.Detection{det(50, 50, 100, 100, 0.9)}, redFrame)
	}
	originalID := tracks[0].ID

	// Absent long enough to exceed max_lost_frames: age without detections.
	for f := 31; f <= 70; f++ {
		tr.Update(f, nil, redFrame)
	}

	// Returns with the same (red) appearance at a different location: Re-ID
	// should reattach the original id rather than allocate a new one.
	tracks = tr.Update(71, []detect.Detection{det(10, 10, 60, 60, 0.9)}, redFrame)
	if len(tracks) != 1 || tracks[0].ID != originalID {
		t.Fatalf("expected Re-ID to recover id %d, got %+v", originalID, tracks)
	}

	// A visually dissimilar (blue) detection returning after a comparable
	// gap must NOT reuse the same dormant identity.
	for f := 72; f <= 110; f++ {
		tr.Update(f, nil, redFrame)
	}
	tracks = tr.Update(111, []detect.Detection{det(150, 150, 190, 190, 0.9)}, blueFrame)
	if len(tracks) != 1 || tracks[0].ID == originalID {
		t.Fatalf("expected a fresh id for a dissimilar appearance, got %+v", tracks)
	}
}
