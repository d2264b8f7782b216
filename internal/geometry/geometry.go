// Package geometry implements the point-based primitives shared by the
// line-cross and region-crowd features: segment intersection, line-normal
// direction, and point-in-polygon classification.
package geometry

import "math"

// Point is a normalized [0,1]^2 coordinate.
type Point struct {
	X, Y float64
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	d := p.Sub(q)
	return math.Hypot(d.X, d.Y)
}

func ccw(a, b, c Point) bool {
	return (c.Y-a.Y)*(b.X-a.X) > (b.Y-a.Y)*(c.X-a.X)
}

// SegmentsIntersect reports whether segment p1-p2 strictly crosses segment
// p3-p4, using the CCW orientation test. Collinear/touching configurations
// return false (strict inequality, per the boundary convention documented
// in the geometry tests).
func SegmentsIntersect(p1, p2, p3, p4 Point) bool {
	return ccw(p1, p3, p4) != ccw(p2, p3, p4) && ccw(p1, p2, p3) != ccw(p1, p2, p4)
}

// Orientation is the declared axis a line is predominantly aligned with.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
	Diagonal   Orientation = "diagonal"
)

// Direction is the declared "inward" direction of a line.
type Direction string

const (
	Upward    Direction = "upward"
	Downward  Direction = "downward"
	Leftward  Direction = "leftward"
	Rightward Direction = "rightward"
)

// CrossingSign classifies a line crossing as In or Out relative to the
// line's declared inward direction.
type CrossingSign int

const (
	NoCross CrossingSign = iota
	CrossIn
	CrossOut
)

// LineCrossingDirection determines the direction of a trajectory segment
// (prev -> curr) that has already been confirmed (by SegmentsIntersect) to
// cross the line lineStart-lineEnd. The line's normal is the line vector
// rotated 90 degrees; orientation/direction select which sign of the dot
// product between the motion vector and that normal means "in".
func LineCrossingDirection(prev, curr, lineStart, lineEnd Point, orientation Orientation, direction Direction) CrossingSign {
	lineVec := lineEnd.Sub(lineStart)
	normal := Point{X: -lineVec.Y, Y: lineVec.X}
	motion := curr.Sub(prev)

	dot := motion.X*normal.X + motion.Y*normal.Y

	var inIsPositive bool
	switch orientation {
	case Vertical:
		switch direction {
		case Leftward:
			inIsPositive = false
		default: // rightward, or unspecified vertical/horizontal motion
			inIsPositive = true
		}
	default: // horizontal, diagonal
		switch direction {
		case Upward:
			inIsPositive = false
		default: // downward, leftward, rightward
			inIsPositive = true
		}
	}

	if (dot > 0) == inIsPositive {
		return CrossIn
	}
	return CrossOut
}

// PointInPolygon reports whether pt lies inside the polygon using the
// even-odd ray-casting rule. Vertices on an edge are classified by
// whichever side the ray-casting arithmetic happens to place them on; by
// convention here, a point exactly on the polygon's upper edge (as tested
// by the half-open `y1 <= y.Y < y2` condition below) is treated as outside.
func PointInPolygon(pt Point, polygon []Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := polygon[i], polygon[j]
		if (pi.Y > pt.Y) != (pj.Y > pt.Y) {
			xIntersect := (pj.X-pi.X)*(pt.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if pt.X < xIntersect {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// CentroidMode selects which point on a bounding box is used as the
// reference point for geometric tests.
type CentroidMode string

const (
	Head      CentroidMode = "head"
	Bottom    CentroidMode = "bottom"
	MidCentre CentroidMode = "mid_centre"
)

// BBox is a normalized axis-aligned bounding box (x1,y1,x2,y2), x1<=x2, y1<=y2.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Centroid returns the reference point of the box for the given mode.
func (b BBox) Centroid(mode CentroidMode) Point {
	cx := (b.X1 + b.X2) / 2
	switch mode {
	case Head:
		return Point{cx, b.Y1}
	case Bottom:
		return Point{cx, b.Y2}
	default:
		return Point{cx, (b.Y1 + b.Y2) / 2}
	}
}
