package codegen

import (
	"fmt"
	"math"
	"strings"

	"github.com/fieldpath/planner/internal/geo"
	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/session"
)

// zeroSegment is the distance under which a segment is treated as an
// in-place heading snap rather than a move.
const zeroSegment = 1e-6

// headingSnapRad is the heading magnitude under which a zero-length segment
// emits no turn at all.
const headingSnapRad = 1e-4

// extraTurnToleranceDeg is the difference between a waypoint's explicit
// heading and the segment bearing above which an extra turn command follows
// a non-arc segment.
const extraTurnToleranceDeg = 1.0

// RobotOriented serializes the full waypoint sequence as a relative command
// program: turnPID/drivePID/strafePID lines, multi-line arcTo commands with
// (parameter, headingDegrees) samples, and bare action invocations. The
// program always starts by orienting to the start heading.
func (g *Generator) RobotOriented(s *session.Session) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "turnPID(%s);\n", formatAngle(s.Path.Start.ProgramAngleDeg()))

	prev := s.Path.Start
	for i, wp := range s.Path.Waypoints {
		if wp.IsAction() {
			g.writeAction(&sb, s, wp)
			continue
		}

		dx := wp.X - prev.X
		dy := wp.Y - prev.Y
		dist := math.Hypot(dx, dy)
		bearing := math.Atan2(dy, dx) * 180 / math.Pi

		if dist < zeroSegment {
			// In-place heading snap; no drive command.
			if math.Abs(wp.H) > headingSnapRad {
				fmt.Fprintf(&sb, "turnPID(%s);\n", formatAngle(wp.ProgramAngleDeg()))
			}
			prev = wp.Pose
			continue
		}

		switch wp.Kind {
		case model.KindDrive:
			fmt.Fprintf(&sb, "turnPID(%s);\n", formatAngle(bearing))
			fmt.Fprintf(&sb, "drivePID(%s, %s);\n", formatDistance(dist), formatAngle(bearing))
		case model.KindStrafe:
			fmt.Fprintf(&sb, "strafePID(%s, %s);\n", formatDistance(dist), formatAngle(bearing))
		case model.KindArc:
			g.writeArc(&sb, s, i, prev, wp)
		}

		if wp.Kind != model.KindArc {
			if math.Abs(geo.NormalizeAngleDeg(wp.ProgramAngleDeg()-bearing)) > extraTurnToleranceDeg {
				fmt.Fprintf(&sb, "turnPID(%s);\n", formatAngle(wp.ProgramAngleDeg()))
			}
		}

		prev = wp.Pose
	}

	g.logger.Debug("Generated robot-oriented program", "waypoints", len(s.Path.Waypoints))

	return sb.String()
}

// writeArc emits an arcTo command: total curve length, segment speed, and
// the heading samples from the Bézier tangent, bracketed by an explicit
// robot-relative 0 at t=0 and the negated target heading at t=1.
func (g *Generator) writeArc(sb *strings.Builder, s *session.Session, index int, prev model.Pose, wp model.Waypoint) {
	ctrl := s.ControlFor(index)
	length := geo.BezierLength(prev.Point(), ctrl, wp.Point())

	fmt.Fprintf(sb, "arcTo(%s, %s) {\n", formatDistance(length), formatDistance(wp.Speed))
	fmt.Fprintf(sb, "    (0.00, 0);\n")
	for i := 1; i <= g.arcSamples; i++ {
		t := float64(i) / float64(g.arcSamples+1)
		heading := geo.BezierTangentDeg(t, prev.Point(), ctrl, wp.Point())
		fmt.Fprintf(sb, "    (%.2f, %s);\n", t, formatAngle(heading))
	}
	fmt.Fprintf(sb, "    (1.00, %s);\n", formatAngle(wp.ProgramAngleDeg()))
	sb.WriteString("}\n")
}

func (g *Generator) writeAction(sb *strings.Builder, s *session.Session, wp model.Waypoint) {
	m, ok := s.Marker(wp.MarkerID)
	if !ok {
		g.logger.Warn("Action waypoint references unknown marker", "markerId", wp.MarkerID)
		return
	}
	fmt.Fprintf(sb, "%s(%s);\n", m.Name, m.Args)
}
