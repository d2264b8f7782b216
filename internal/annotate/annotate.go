// Package annotate composes the annotated frame the engine orchestrator
// hands to its output sinks: configured zones, tracked bounding boxes
// colored by sticky alert state, and a HUD of counters and current FPS.
// Built on the teacher's drawing.Drawer/drawing.Palette primitives.
package annotate

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	yoicolor "github.com/hafizalfariz/yoi-engine-go/color"
	"github.com/hafizalfariz/yoi-engine-go/drawing"
	"github.com/hafizalfariz/yoi-engine-go/internal/config"
	"github.com/hafizalfariz/yoi-engine-go/internal/feature"
	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

// TrackState is the sticky per-track visual classification, driven by the
// most recent alert the track participated in. Per spec.md §9's design
// note, the source never transitions a track back to neutral without a new
// alert; this rewrite preserves that rather than introducing an implicit
// decay.
type TrackState string

const (
	StateNeutral    TrackState = ""
	StateIn         TrackState = "in"
	StateOut        TrackState = "out"
	StateDwellAlert TrackState = "dwell_alert"
)

var (
	colorIn         = yoicolor.Color{B: 0, G: 200, R: 0}   // green
	colorOut        = yoicolor.Color{B: 0, G: 0, R: 220}   // red
	colorDwellAlert = yoicolor.Color{B: 0, G: 0, R: 255}   // bright red
	colorZoneLine   = yoicolor.Color{B: 255, G: 255, R: 0} // cyan
	colorWarning    = yoicolor.Color{B: 0, G: 191, R: 255} // amber
	colorCritical   = yoicolor.Color{B: 0, G: 0, R: 255}   // red
	colorNormalZone = yoicolor.White
	colorHUD        = yoicolor.White
)

// Track is the minimal, pixel-space view of a tracked identity the
// annotator needs: an id for sticky-state lookup and color hashing, a
// class label, and the current pixel bbox.
type Track struct {
	ID        int
	ClassName string
	BBox      image.Rectangle
}

// Annotator draws zones, tracked boxes, and HUD text onto frames and
// tracks the sticky per-track visual state described in spec.md §9.
type Annotator struct {
	drawer  *drawing.Drawer
	palette *drawing.Palette
	sticky  map[int]TrackState
}

// New returns an Annotator with a fresh (empty) sticky-state table.
func New() *Annotator {
	return &Annotator{
		drawer:  drawing.NewDrawer(),
		palette: drawing.NewPalette(nil),
		sticky:  make(map[int]TrackState),
	}
}

// ApplyAlerts updates the sticky state for every track referenced by an
// alert in alerts, per spec.md §4.5 step 8 and step 6's color mapping:
// "in" = green, "out" = red, "dwell_alert" = bright red.
func (a *Annotator) ApplyAlerts(alerts []feature.Alert) {
	for _, al := range alerts {
		switch al.Kind {
		case feature.AlertLineCrossingIn:
			a.sticky[al.TrackID] = StateIn
		case feature.AlertLineCrossingOut:
			a.sticky[al.TrackID] = StateOut
		case feature.AlertDwellTime:
			a.sticky[al.TrackID] = StateDwellAlert
		}
	}
}

// GC drops sticky state for any track id not present in active, per the
// engine design note: "garbage-collected each frame by intersecting with
// the active track set — explicit, not implicit-via-language-lifetime."
func (a *Annotator) GC(active map[int]bool) {
	for id := range a.sticky {
		if !active[id] {
			delete(a.sticky, id)
		}
	}
}

// trackColor resolves the box/label color for a track: its sticky alert
// state if any, otherwise a deterministic per-id palette color.
func (a *Annotator) trackColor(id int) yoicolor.Color {
	switch a.sticky[id] {
	case StateIn:
		return colorIn
	case StateOut:
		return colorOut
	case StateDwellAlert:
		return colorDwellAlert
	default:
		return a.palette.ChooseColor(id)
	}
}

// DrawTracks draws one labeled bounding box per track, colored by its
// sticky alert state (or a stable per-id palette color if neutral).
func (a *Annotator) DrawTracks(frame *gocv.Mat, tracks []Track) {
	for _, t := range tracks {
		c := a.trackColor(t.ID)
		a.drawer.Rectangle(frame, t.BBox.Min, t.BBox.Max, c, 2)
		label := fmt.Sprintf("#%d %s", t.ID, t.ClassName)
		textAnchor := image.Point{X: t.BBox.Min.X, Y: t.BBox.Min.Y - 6}
		a.drawer.Text(frame, label, textAnchor, 0, c, 0, true, yoicolor.Black, 1)
	}
}

// DrawLines draws configured line zones, denormalizing their endpoints to
// the frame's pixel dimensions.
func (a *Annotator) DrawLines(frame *gocv.Mat, lines []config.LineZone, w, h int) {
	for _, l := range lines {
		start := denorm(l.Start(), w, h)
		end := denorm(l.End(), w, h)
		a.drawer.Line(frame, start, end, colorZoneLine, 2)
		label := image.Point{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2}
		a.drawer.Text(frame, l.ID, label, 0, colorZoneLine, 0, true, yoicolor.Black, 1)
	}
}

// RegionStatus is the per-region occupancy classification used to tint a
// drawn polygon (spec.md §4.3's warning/critical status bands).
type RegionStatus string

const (
	StatusNormal   RegionStatus = "normal"
	StatusWarning  RegionStatus = "warning"
	StatusCritical RegionStatus = "critical"
)

// DrawRegions draws configured region polygons, tinted by their current
// occupancy status (amber for warning, red for critical, white otherwise).
func (a *Annotator) DrawRegions(frame *gocv.Mat, regions []config.RegionZone, status map[string]RegionStatus, w, h int) {
	for _, r := range regions {
		c := colorNormalZone
		switch status[r.ID] {
		case StatusWarning:
			c = colorWarning
		case StatusCritical:
			c = colorCritical
		}
		poly := r.Polygon()
		for i := range poly {
			start := denorm(poly[i], w, h)
			end := denorm(poly[(i+1)%len(poly)], w, h)
			a.drawer.Line(frame, start, end, c, 2)
		}
		if len(poly) > 0 {
			anchor := denorm(poly[0], w, h)
			label := r.Name
			if label == "" {
				label = r.ID
			}
			a.drawer.Text(frame, label, anchor, 0, c, 0, true, yoicolor.Black, 1)
		}
	}
}

// DrawHUD writes a stack of status lines (counters, current FPS) in the
// frame's top-left corner.
func (a *Annotator) DrawHUD(frame *gocv.Mat, lines []string) {
	for i, line := range lines {
		pos := image.Point{X: 10, Y: 24 + i*22}
		a.drawer.Text(frame, line, pos, 0, colorHUD, 0, true, yoicolor.Black, 1)
	}
}

// MetricsHUDLines renders the stable subset of a feature's metrics map into
// human-readable HUD lines plus the current FPS, sorted for deterministic
// output ordering across runs.
func MetricsHUDLines(fps float64, metrics map[string]any) []string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		switch k {
		case "per_line", "per_region", "inside_track_ids", "alerted_track_ids":
			continue // nested/detailed fields; not shown in the HUD summary
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys)+1)
	lines = append(lines, fmt.Sprintf("fps: %.1f", fps))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, metrics[k]))
	}
	return lines
}

func denorm(p geometry.Point, w, h int) image.Point {
	return image.Point{X: int(p.X * float64(w)), Y: int(p.Y * float64(h))}
}
