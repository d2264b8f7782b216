// Package engine drives the per-frame loop described in spec.md §4.5: pull
// a frame, run detection and tracking, evaluate the configured feature,
// compose an annotated frame, dispatch alerts to the event sink, and hand
// the frame to the configured output sinks. One Pipeline owns one input
// source end to end, the way the teacher's Video.Frames() loop in
// video.go drives a single capture from open to close.
package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/hafizalfariz/yoi-engine-go/internal/annotate"
	"github.com/hafizalfariz/yoi-engine-go/internal/config"
	"github.com/hafizalfariz/yoi-engine-go/internal/detect"
	"github.com/hafizalfariz/yoi-engine-go/internal/feature"
	"github.com/hafizalfariz/yoi-engine-go/internal/reid"
	"github.com/hafizalfariz/yoi-engine-go/internal/rtsp"
	"github.com/hafizalfariz/yoi-engine-go/internal/sink"
	"github.com/hafizalfariz/yoi-engine-go/internal/tracker"
	"github.com/hafizalfariz/yoi-engine-go/internal/videoio"
)

// Options gathers a Pipeline's collaborators. Detector and Source are
// required; VideoWriter, Broadcaster, and Logger are optional.
type Options struct {
	Config      *config.Config
	Detector    detect.Adapter
	Source      videoio.FrameSource
	Sink        *sink.Sink
	VideoWriter *videoio.Writer
	Broadcaster *rtsp.Broadcaster
	Logger      *slog.Logger
	SourceName  string
	Overrides   EnvOverrides
}

// Pipeline is one configured source's end-to-end run: frame source →
// detector → tracker → feature → {annotated frame, event sink}.
type Pipeline struct {
	cfg    *config.Config
	source videoio.FrameSource
	det    detect.Adapter
	tr     *tracker.Tracker
	feat   feature.Feature
	ann    *annotate.Annotator
	evt    *sink.Sink
	writer *videoio.Writer
	bcast  *rtsp.Broadcaster
	logger *slog.Logger

	sourceName string
	overrides  EnvOverrides

	frameW, frameH int
	fps            float64

	lastDetections []detect.Detection
	smoothed       map[int]image.Rectangle

	now func() time.Time

	stats frameStats
}

type frameStats struct {
	count    int
	alerts   int
	totalDur time.Duration
	fastest  time.Duration
	slowest  time.Duration
}

// Stats is the benchmark/reporting snapshot a caller (cmd/yoi-engine) logs
// once a pipeline finishes, adapted from the teacher's viam-module DoCommand("benchmark")
// pattern into a plain accessor.
type Stats struct {
	FramesProcessed int
	AlertsEmitted   int
	AverageFrame    time.Duration
	FastestFrame    time.Duration
	SlowestFrame    time.Duration
}

// New constructs a Pipeline, translating opts.Config into a concrete
// feature handle and tracker, per the engine's sole responsibility for
// config-to-feature-state translation (see build.go).
func New(opts Options) (*Pipeline, error) {
	w, h := opts.Source.Size()
	fps := opts.Source.FPS()

	feat, err := buildFeature(opts.Config, fps)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	tc := buildTrackerConfig(opts.Config, opts.Overrides)
	var extractor *reid.Extractor
	if tc.ReIDEnabled {
		extractor = reid.NewExtractor()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if n := inferEveryN(opts.Config, opts.Overrides); n > 1 {
		logger.Warn("performance mode: tracker will receive stale detections on skipped frames",
			"infer_every_n_frames", n)
	}

	return &Pipeline{
		cfg:        opts.Config,
		source:     opts.Source,
		det:        opts.Detector,
		tr:         tracker.New(tc, extractor),
		feat:       feat,
		ann:        annotate.New(),
		evt:        opts.Sink,
		writer:     opts.VideoWriter,
		bcast:      opts.Broadcaster,
		logger:     logger,
		sourceName: opts.SourceName,
		overrides:  opts.Overrides,
		frameW:     w,
		frameH:     h,
		fps:        fps,
		smoothed:   make(map[int]image.Rectangle),
		now:        time.Now,
	}, nil
}

func inferEveryN(cfg *config.Config, overrides EnvOverrides) int {
	n := 1
	if overrides.InferEveryNFrames != nil && *overrides.InferEveryNFrames >= 1 {
		n = *overrides.InferEveryNFrames
	}
	return n
}

// Run drives the per-frame loop until the source is exhausted, ctx is
// canceled, or an optional maximum wall-clock runtime elapses. Cleanup
// (flush the video writer, stop the RTSP broadcaster, release the frame
// source) always runs before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.cleanup()

	if p.bcast != nil {
		p.bcast.Start()
	}

	inferN := inferEveryN(p.cfg, p.overrides)
	loopFile := p.overrides.LoopFileInput != nil && *p.overrides.LoopFileInput

	maxRuntime := 0.0
	if p.overrides.MaxInferenceSeconds != nil {
		maxRuntime = *p.overrides.MaxInferenceSeconds
	}
	start := p.now()

	frame := gocv.NewMat()
	defer frame.Close()

	frameIdx := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping: context canceled", "frame", frameIdx)
			return nil
		default:
		}

		if maxRuntime > 0 && p.now().Sub(start).Seconds() >= maxRuntime {
			p.logger.Info("pipeline stopping: max wall-clock runtime reached", "frame", frameIdx)
			return nil
		}

		if ok := p.source.ReadFrame(&frame); !ok {
			if loopFile {
				if err := p.source.Rewind(); err != nil {
					p.logger.Warn("loop-file-input rewind failed; stopping", "error", err)
					return nil
				}
				continue
			}
			p.logger.Info("pipeline stopping: frame source exhausted", "frame", frameIdx)
			return nil
		}

		frameIdx++
		p.processFrameSafely(ctx, frameIdx, frame, inferN)
	}
}

// processFrameSafely wraps one iteration's body in a recover() so a panic
// in detection, tracking, or feature evaluation never escapes the loop,
// matching spec.md §7's "no exceptions escape the per-frame loop body".
func (p *Pipeline) processFrameSafely(ctx context.Context, frameIdx int, frame gocv.Mat, inferN int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered panic processing frame", "frame", frameIdx, "panic", r)
		}
	}()

	started := p.now()
	p.processFrame(ctx, frameIdx, frame, inferN)
	elapsed := p.now().Sub(started)
	p.recordFrameDuration(elapsed)
}

func (p *Pipeline) recordFrameDuration(d time.Duration) {
	p.stats.count++
	p.stats.totalDur += d
	if p.stats.count == 1 || d < p.stats.fastest {
		p.stats.fastest = d
	}
	if d > p.stats.slowest {
		p.stats.slowest = d
	}
}

func (p *Pipeline) processFrame(ctx context.Context, frameIdx int, frame gocv.Mat, inferN int) {
	if frameIdx == 1 || frameIdx%inferN == 0 {
		dets, err := p.det.Infer(ctx, frame)
		if err != nil {
			p.logger.Warn("detector inference failed; reusing last detections", "frame", frameIdx, "error", err)
		} else {
			p.lastDetections = dets
		}
	}

	tracks := p.tr.Update(frameIdx, p.lastDetections, frame)

	tracked := make([]feature.TrackedDetection, len(tracks))
	for i, t := range tracks {
		tracked[i] = feature.TrackedDetection{
			TrackID: t.ID,
			BBox:    t.LastBBox.Normalize(p.frameW, p.frameH),
		}
	}

	result := p.feat.Update(frameIdx, tracked)
	p.ann.ApplyAlerts(result.Alerts)

	annotated := frame.Clone()
	defer annotated.Close()
	p.drawAnnotations(&annotated, tracks, result)

	for _, alert := range result.Alerts {
		p.dispatchAlert(frameIdx, frame, annotated, tracks, alert, result.Metrics)
	}

	if p.writer != nil {
		if err := p.writer.Write(annotated); err != nil {
			p.logger.Warn("video writer failed for frame", "frame", frameIdx, "error", err)
		}
	}
	if p.bcast != nil {
		p.bcast.Push(annotated, p.now())
	}

	activeTracks := p.tr.Active()
	active := make(map[int]bool, len(activeTracks))
	for _, t := range activeTracks {
		active[t.ID] = true
	}
	p.ann.GC(active)
}

func (p *Pipeline) drawAnnotations(frame *gocv.Mat, tracks []*tracker.Track, result feature.FeatureResult) {
	p.ann.DrawLines(frame, p.cfg.Geometry.Lines, p.frameW, p.frameH)
	p.ann.DrawRegions(frame, p.cfg.Geometry.Regions, regionStatusFromMetrics(result.Metrics), p.frameW, p.frameH)

	smoothing := p.overrides.BBoxSmoothing != nil && *p.overrides.BBoxSmoothing
	atracks := make([]annotate.Track, len(tracks))
	for i, t := range tracks {
		r := pixelRect(t.LastBBox)
		if smoothing {
			r = p.smoothRect(t.ID, r)
		}
		atracks[i] = annotate.Track{ID: t.ID, ClassName: t.ClassName, BBox: r}
	}
	p.ann.DrawTracks(frame, atracks)
	p.ann.DrawHUD(frame, annotate.MetricsHUDLines(p.currentFPS(), result.Metrics))
}

// smoothRect applies a fixed-momentum EMA to a track's drawn box so a
// jittery detector doesn't produce a visibly jittery annotation; it is
// purely cosmetic and never feeds back into geometry or feature decisions.
func (p *Pipeline) smoothRect(id int, r image.Rectangle) image.Rectangle {
	const alpha = 0.5
	prev, ok := p.smoothed[id]
	if !ok {
		p.smoothed[id] = r
		return r
	}
	blended := image.Rect(
		lerp(prev.Min.X, r.Min.X, alpha),
		lerp(prev.Min.Y, r.Min.Y, alpha),
		lerp(prev.Max.X, r.Max.X, alpha),
		lerp(prev.Max.Y, r.Max.Y, alpha),
	)
	p.smoothed[id] = blended
	return blended
}

func lerp(a, b int, alpha float64) int {
	return int(float64(a) + (float64(b)-float64(a))*alpha)
}

func pixelRect(b detect.BBox) image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// regionStatusFromMetrics extracts the per-region warning/critical/normal
// classification a region-crowd FeatureResult reports; other feature types
// report no per-region status, so regions are drawn in their neutral color.
func regionStatusFromMetrics(metrics map[string]any) map[string]annotate.RegionStatus {
	out := map[string]annotate.RegionStatus{}
	perRegion, ok := metrics["per_region"].(map[string]any)
	if !ok {
		return out
	}
	for id, v := range perRegion {
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		status, _ := fields["status"].(string)
		switch status {
		case "warning":
			out[id] = annotate.StatusWarning
		case "critical":
			out[id] = annotate.StatusCritical
		default:
			out[id] = annotate.StatusNormal
		}
	}
	return out
}

func (p *Pipeline) currentFPS() float64 {
	if p.stats.count == 0 {
		return p.fps
	}
	avg := p.stats.totalDur / time.Duration(p.stats.count)
	if avg <= 0 {
		return p.fps
	}
	return 1.0 / avg.Seconds()
}

// dispatchAlert crops the unannotated frame to the alert's track bbox
// (falling back to the full annotated frame when the track is unknown or
// the crop is degenerate) and forwards it to the event sink, per
// spec.md §4.6.
func (p *Pipeline) dispatchAlert(frameIdx int, raw, annotated gocv.Mat, tracks []*tracker.Track, alert feature.Alert, metrics map[string]any) {
	if p.evt == nil {
		return
	}

	crop := p.cropForAlert(raw, annotated, tracks, alert.TrackID)
	defer crop.Close()

	timestamp := p.now().UTC().Format(time.RFC3339)
	meta := sink.EventMeta{
		TrackID:    alert.TrackID,
		ZoneID:     alert.ZoneID,
		SourceName: p.sourceName,
		CCTVID:     p.cfg.Name,
	}

	alertMetrics := map[string]any{
		"count":             alert.Count,
		"threshold":         alert.Threshold,
		"dwell_seconds":     alert.DwellSeconds,
		"threshold_seconds": alert.ThresholdSeconds,
		"feature_metrics":   metrics,
	}

	if err := p.evt.WriteEvent(crop, p.featureName(), string(alert.Kind), frameIdx, timestamp, meta, alertMetrics); err != nil {
		p.logger.Warn("event sink write failed", "frame", frameIdx, "alert", alert.Kind, "error", err)
		return
	}
	p.stats.alerts++
}

func (p *Pipeline) cropForAlert(raw, annotated gocv.Mat, tracks []*tracker.Track, trackID int) gocv.Mat {
	for _, t := range tracks {
		if t.ID != trackID {
			continue
		}
		rect := clampRect(pixelRect(t.LastBBox), raw.Cols(), raw.Rows())
		if rect.Dx() <= 0 || rect.Dy() <= 0 {
			break
		}
		return raw.Region(rect).Clone()
	}
	return annotated.Clone()
}

func clampRect(r image.Rectangle, w, h int) image.Rectangle {
	bounds := image.Rect(0, 0, w, h)
	return r.Intersect(bounds)
}

func (p *Pipeline) featureName() string {
	return string(p.cfg.Feature.Type)
}

// Stats returns the cumulative per-frame processing-duration summary,
// suitable for a periodic performance log.
func (p *Pipeline) Stats() Stats {
	avg := time.Duration(0)
	if p.stats.count > 0 {
		avg = p.stats.totalDur / time.Duration(p.stats.count)
	}
	return Stats{
		FramesProcessed: p.stats.count,
		AlertsEmitted:   p.stats.alerts,
		AverageFrame:    avg,
		FastestFrame:    p.stats.fastest,
		SlowestFrame:    p.stats.slowest,
	}
}

func (p *Pipeline) cleanup() {
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn("video writer close failed", "error", err)
		}
	}
	if p.bcast != nil {
		p.bcast.Stop()
	}
	if err := p.source.Close(); err != nil {
		p.logger.Warn("frame source close failed", "error", err)
	}
}
