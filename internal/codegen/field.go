package codegen

import (
	"fmt"
	"math"
	"strings"

	"github.com/fieldpath/planner/internal/session"
)

// FieldOriented serializes the start pose and every non-action waypoint as
// an absolute pose list in centimeters and negated degrees. Action
// waypoints contribute percentage markers: the fraction of real waypoints
// reached by the time the action fires, paired with the marker name. The
// marker accessor block is always emitted, empty list included.
func (g *Generator) FieldOriented(s *session.Session) string {
	var sb strings.Builder

	sb.WriteString("public static Pose2d[] trajectory = new Pose2d[] {\n")
	writePose(&sb, s.Path.Start.X, s.Path.Start.Y, s.Path.Start.ProgramAngleDeg())
	for _, wp := range s.Path.Waypoints {
		if wp.IsAction() {
			continue
		}
		writePose(&sb, wp.X, wp.Y, wp.ProgramAngleDeg())
	}
	sb.WriteString("};\n\n")

	totalReal := len(s.Path.RealWaypoints())

	sb.WriteString("public static EventMarker[] getMarkers() {\n")
	sb.WriteString("    return new EventMarker[] {\n")
	realSeen := 0
	for _, wp := range s.Path.Waypoints {
		if !wp.IsAction() {
			realSeen++
			continue
		}
		m, ok := s.Marker(wp.MarkerID)
		if !ok {
			g.logger.Warn("Action waypoint references unknown marker", "markerId", wp.MarkerID)
			continue
		}
		pct := 0.0
		if totalReal > 0 {
			pct = math.Round(float64(realSeen)/float64(totalReal)*1000) / 10
		}
		fmt.Fprintf(&sb, "        new EventMarker(%.1f, %q),\n", pct, m.Name)
	}
	sb.WriteString("    };\n")
	sb.WriteString("}\n")

	g.logger.Debug("Generated field-oriented program",
		"poses", totalReal+1, "markers", len(s.Markers))

	return sb.String()
}

func writePose(sb *strings.Builder, x, y, angleDeg float64) {
	fmt.Fprintf(sb, "    new Pose2d(%s, %s, Rotation2d.fromDegrees(%s)),\n",
		formatCm(x), formatCm(y), formatDegInt(angleDeg))
}
