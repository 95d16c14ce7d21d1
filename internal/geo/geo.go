// Package geo provides the stateless planar geometry used by the path model,
// the program generators and the simulator: angle normalization, line
// intersection, quadratic Bézier evaluation and field-path smoothing.
// All coordinates are field-relative meters unless noted otherwise.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Epsilon is the tolerance under which two points are considered coincident
// and two direction vectors parallel.
const Epsilon = 1e-6

// ErrDegeneratePolyline is returned when a polyline has too few distinct
// points to form a LineString.
var ErrDegeneratePolyline = errors.New("polyline must have at least 2 distinct points")

// NormalizeAngleDeg reduces an angle in degrees to the interval (-180, 180].
// All heading comparisons go through this so direction-of-turn tie-breaks
// always take the signed shortest path.
func NormalizeAngleDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}

// LineIntersection returns the intersection of the parametric lines
// p0 + t*d0 and p1 + s*d1. The second return is false when the direction
// vectors are parallel within tolerance.
func LineIntersection(p0, d0, p1, d1 geom.XY) (geom.XY, bool) {
	denom := d0.Cross(d1)
	if math.Abs(denom) < Epsilon {
		return geom.XY{}, false
	}
	t := p1.Sub(p0).Cross(d1) / denom
	return p0.Add(d0.Scale(t)), true
}

// DefaultArcControl synthesizes the control point used for an arc segment
// that has no explicit one: the segment midpoint offset perpendicular to the
// segment direction by 30% of the segment length. When the endpoints
// coincide no perpendicular is defined and the midpoint is returned alone.
// The result depends only on the two inputs, so recomputing it for unchanged
// endpoints yields an identical point.
func DefaultArcControl(prev, end geom.XY) geom.XY {
	seg := end.Sub(prev)
	mid := prev.Midpoint(end)
	if seg.Length() < Epsilon {
		return mid
	}
	// Perpendicular of seg scaled by 0.3 has magnitude 0.3*|seg|.
	return mid.Add(geom.XY{X: -seg.Y, Y: seg.X}.Scale(0.3))
}

// BezierPoint evaluates the quadratic Bézier with endpoints p0, p1 and
// control point c at parameter t in [0,1].
func BezierPoint(t float64, p0, c, p1 geom.XY) geom.XY {
	u := 1 - t
	return p0.Scale(u * u).Add(c.Scale(2 * u * t)).Add(p1.Scale(t * t))
}

// BezierTangentDeg returns the direction of the curve's first derivative at
// parameter t, in degrees. A vanishing derivative yields 0.
func BezierTangentDeg(t float64, p0, c, p1 geom.XY) float64 {
	d := c.Sub(p0).Scale(2 * (1 - t)).Add(p1.Sub(c).Scale(2 * t))
	if d.Length() < Epsilon {
		return 0
	}
	return NormalizeAngleDeg(math.Atan2(d.Y, d.X) * 180 / math.Pi)
}

// bezierLengthSteps is the number of equal parameter steps used to
// approximate curve length by chord summation.
const bezierLengthSteps = 10

// BezierLength approximates the length of the quadratic Bézier by sampling
// it at equal parameter steps and summing chord lengths. The same
// approximation is used by program generation and by the simulator so both
// agree on arc distances.
func BezierLength(p0, c, p1 geom.XY) float64 {
	var total float64
	prev := p0
	for i := 1; i <= bezierLengthSteps; i++ {
		t := float64(i) / bezierLengthSteps
		pt := BezierPoint(t, p0, c, p1)
		total += pt.Sub(prev).Length()
		prev = pt
	}
	return total
}

// smoothingPasses is the fixed number of corner-cutting iterations applied
// to field trajectories.
const smoothingPasses = 2

// SmoothFieldPath applies two passes of Chaikin corner cutting to the given
// polyline: each point pair is replaced by its 1/4 and 3/4 interpolants with
// the endpoints preserved. Consecutive points closer than Epsilon are
// collapsed after each pass. The result is used both for field-mode preview
// and as the literal motion path in field-mode simulation.
func SmoothFieldPath(points []geom.XY) []geom.XY {
	out := collapseDuplicates(points)
	if len(out) < 3 {
		return out
	}
	for pass := 0; pass < smoothingPasses; pass++ {
		cut := make([]geom.XY, 0, len(out)*2)
		cut = append(cut, out[0])
		for i := 0; i < len(out)-1; i++ {
			p, q := out[i], out[i+1]
			cut = append(cut, lerp(p, q, 0.25), lerp(p, q, 0.75))
		}
		cut = append(cut, out[len(out)-1])
		out = collapseDuplicates(cut)
	}
	return out
}

// PathLineString converts a polyline into a simplefeatures LineString for
// storage and export.
func PathLineString(points []geom.XY) (geom.LineString, error) {
	pts := collapseDuplicates(points)
	if len(pts) < 2 {
		return geom.LineString{}, ErrDegeneratePolyline
	}
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("error building line string: %w", err)
	}
	return ls, nil
}

func lerp(a, b geom.XY, t float64) geom.XY {
	return a.Add(b.Sub(a).Scale(t))
}

func collapseDuplicates(points []geom.XY) []geom.XY {
	out := make([]geom.XY, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && p.Sub(out[len(out)-1]).Length() < Epsilon {
			continue
		}
		out = append(out, p)
	}
	return out
}
