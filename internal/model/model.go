// Package model defines the trajectory data types shared by the session,
// the program codecs and the simulator. Geometry is field-relative meters
// and radians; program texts use centimeters and negated degrees.
package model

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Kind discriminates waypoint variants.
type Kind string

const (
	KindDrive  Kind = "drive"
	KindStrafe Kind = "strafe"
	KindArc    Kind = "arc"
	KindAction Kind = "action"
)

// Valid reports whether k is one of the known waypoint kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDrive, KindStrafe, KindArc, KindAction:
		return true
	}
	return false
}

// Pose is a planar position in meters with a heading in radians.
// Program texts carry the negated heading in degrees; ProgramAngleDeg
// performs that conversion.
type Pose struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	H float64 `json:"h"`
}

// Point returns the position component of the pose.
func (p Pose) Point() geom.XY {
	return geom.XY{X: p.X, Y: p.Y}
}

// ProgramAngleDeg returns the pose heading in the generated-program angle
// convention: negated and converted to degrees.
func (p Pose) ProgramAngleDeg() float64 {
	return -p.H * 180 / math.Pi
}

// PoseFromProgramAngle builds a pose from program-text units: centimeters
// are not assumed here, only the angle convention is applied.
func PoseFromProgramAngle(x, y, angleDeg float64) Pose {
	return Pose{X: x, Y: y, H: -angleDeg * math.Pi / 180}
}

// Waypoint is an ordered path stop. The fields beyond Pose and Kind are
// variant-specific: Speed applies to the motion kinds, Control only to arc
// (nil meaning it must be re-derived from the segment endpoints), MarkerID
// only to action.
type Waypoint struct {
	Pose
	Kind     Kind     `json:"kind"`
	Speed    float64  `json:"speed,omitempty"`
	Control  *geom.XY `json:"control,omitempty"`
	MarkerID uint     `json:"markerId,omitempty"`
}

// IsAction reports whether the waypoint triggers a marker invocation instead
// of describing motion.
func (w Waypoint) IsAction() bool {
	return w.Kind == KindAction
}

// Clone returns a deep copy; the arc control point is never aliased.
func (w Waypoint) Clone() Waypoint {
	c := w
	if w.Control != nil {
		ctrl := *w.Control
		c.Control = &ctrl
	}
	return c
}

// Marker is a named point of interest independent of the route. IDs are
// assigned monotonically by the session and are never reused within it.
type Marker struct {
	ID   uint    `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Name string  `json:"name"`
	Args string  `json:"args,omitempty"`
}

// Point returns the marker position.
func (m Marker) Point() geom.XY {
	return geom.XY{X: m.X, Y: m.Y}
}

// Path is the start pose plus the ordered waypoint sequence. The start is
// always present and never an action; non-action waypoints define the
// geometric route while action waypoints are interleaved and contribute no
// segment.
type Path struct {
	Start     Pose       `json:"start"`
	Waypoints []Waypoint `json:"waypoints"`
}

// Clone returns a deep copy of the path.
func (p Path) Clone() Path {
	c := Path{Start: p.Start}
	if p.Waypoints != nil {
		c.Waypoints = make([]Waypoint, len(p.Waypoints))
		for i, w := range p.Waypoints {
			c.Waypoints[i] = w.Clone()
		}
	}
	return c
}

// RealWaypoints returns the non-action waypoints in order.
func (p Path) RealWaypoints() []Waypoint {
	out := make([]Waypoint, 0, len(p.Waypoints))
	for _, w := range p.Waypoints {
		if !w.IsAction() {
			out = append(out, w)
		}
	}
	return out
}

// RealPoints returns the start position followed by every non-action
// waypoint position.
func (p Path) RealPoints() []geom.XY {
	out := make([]geom.XY, 0, len(p.Waypoints)+1)
	out = append(out, p.Start.Point())
	for _, w := range p.Waypoints {
		if !w.IsAction() {
			out = append(out, w.Point())
		}
	}
	return out
}
