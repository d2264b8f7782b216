package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/config"
	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

// fakeSource is a minimal FrameSource test double producing a fixed number
// of blank frames, then reporting exhaustion, with a countable Rewind.
type fakeSource struct {
	w, h    int
	frames  int
	idx     int
	rewinds int
}

func (f *fakeSource) ReadFrame(dst *gocv.Mat) bool {
	if f.idx >= f.frames {
		return false
	}
	if dst.Empty() {
		*dst = gocv.NewMatWithSize(f.h, f.w, gocv.MatTypeCV8UC3)
	}
	f.idx++
	return true
}

func (f *fakeSource) FPS() float64     { return 30 }
func (f *fakeSource) Size() (int, int) { return f.w, f.h }
func (f *fakeSource) Rewind() error    { f.idx = 0; f.rewinds++; return nil }
func (f *fakeSource) Close() error     { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Name: "test-cfg",
		Feature: config.FeatureConfig{Type: config.FeatureLineCross},
		Geometry: config.GeometryConfig{
			Lines: []config.LineZone{{
				ID:          "l1",
				Coords:      []config.CoordPoint{{X: 0.3, Y: 0.3}, {X: 0.7, Y: 0.3}},
				Orientation: geometry.Horizontal,
				Direction:   geometry.Downward,
			}},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingAdapter cancels ctx the moment it has been invoked stopAt times,
// letting a test deterministically exercise graceful mid-stream shutdown
// (spec.md §8 scenario 6) without racing on wall-clock timers.
type countingAdapter struct {
	calls  int
	stopAt int
	cancel context.CancelFunc
}

func (a *countingAdapter) Infer(ctx context.Context, frame gocv.Mat) ([]detect.Detection, error) {
	a.calls++
	if a.calls == a.stopAt {
		a.cancel()
	}
	return nil, nil
}

func TestPipeline_GracefulShutdownMidStream(t *testing.T) {
	src := &fakeSource{w: 100, h: 100, frames: 10000}
	ctx, cancel := context.WithCancel(context.Background())
	det := &countingAdapter{stopAt: 50}
	det.cancel = cancel

	p, err := New(Options{
		Config:   testConfig(),
		Detector: det,
		Source:   src,
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if det.calls != 50 {
		t.Errorf("detector invocations = %d, want 50", det.calls)
	}
	if got := p.Stats().FramesProcessed; got != 50 {
		t.Errorf("FramesProcessed = %d, want 50", got)
	}
}

func TestPipeline_LoopFileInputRewindsOnEOF(t *testing.T) {
	src := &fakeSource{w: 64, h: 64, frames: 5}
	ctx, cancel := context.WithCancel(context.Background())
	det := &countingAdapter{stopAt: 12}
	det.cancel = cancel

	loop := true
	p, err := New(Options{
		Config:    testConfig(),
		Detector:  det,
		Source:    src,
		Logger:    discardLogger(),
		Overrides: EnvOverrides{LoopFileInput: &loop},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if src.rewinds < 1 {
		t.Errorf("expected at least one rewind past EOF, got %d", src.rewinds)
	}
	if got := p.Stats().FramesProcessed; got != 12 {
		t.Errorf("FramesProcessed = %d, want 12", got)
	}
}

func TestPipeline_NoLoopStopsAtEOF(t *testing.T) {
	src := &fakeSource{w: 64, h: 64, frames: 5}
	det := &detect.StubAdapter{}

	p, err := New(Options{
		Config:   testConfig(),
		Detector: det,
		Source:   src,
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := p.Stats().FramesProcessed; got != 5 {
		t.Errorf("FramesProcessed = %d, want 5", got)
	}
	if src.rewinds != 0 {
		t.Errorf("expected no rewinds without loop-file-input, got %d", src.rewinds)
	}
}
