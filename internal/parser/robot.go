package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/session"
)

var (
	reTurn = regexp.MustCompile(
		`^turnPID\(\s*(-?\d+(?:\.\d+)?)\s*\)\s*;?\s*$`)
	reMove = regexp.MustCompile(
		`^(drivePID|strafePID)\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)\s*;?\s*$`)
	reArcOpen = regexp.MustCompile(
		`^arcTo\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)\s*\{\s*$`)
	reArcSample = regexp.MustCompile(
		`^\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)\s*;?\s*$`)
	reAction = regexp.MustCompile(
		`^([A-Za-z_][A-Za-z0-9_]*)\(\s*(.*?)\s*\)\s*;?\s*$`)
)

// decodeRobot replays a robot-oriented command sequence against a running
// cursor. The cursor starts at the prior session's start pose with a
// running heading of 0°: turn commands update the heading only, drive and
// strafe commands advance the cursor along their bearing, and arc blocks
// advance it first-order along the arc's start heading by the stated
// length. Unrecognized bare name(args) lines become marker actions.
func (p *Parser) decodeRobot(text string, prior *session.Session) (*session.Session, error) {
	s := session.Restore(model.Path{Start: prior.Path.Start}, nil)

	cursorX := prior.Path.Start.X
	cursorY := prior.Path.Start.Y
	headingDeg := 0.0
	usable := 0

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "//") || line == "}" || line == "};" {
			continue
		}

		if m := reTurn.FindStringSubmatch(line); m != nil {
			deg, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing turn angle on line %d: %w", i+1, err)
			}
			headingDeg = deg
			usable++
			continue
		}

		if m := reMove.FindStringSubmatch(line); m != nil {
			dist, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing distance on line %d: %w", i+1, err)
			}
			bearing, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				return nil, fmt.Errorf("error parsing bearing on line %d: %w", i+1, err)
			}
			cursorX += dist * math.Cos(bearing*math.Pi/180)
			cursorY += dist * math.Sin(bearing*math.Pi/180)
			headingDeg = bearing
			kind := model.KindDrive
			if m[1] == "strafePID" {
				kind = model.KindStrafe
			}
			s.AddWaypoint(model.PoseFromProgramAngle(cursorX, cursorY, bearing), kind, DefaultSpeed)
			usable++
			continue
		}

		if m := reArcOpen.FindStringSubmatch(line); m != nil {
			consumed, err := p.decodeArcBlock(s, m, lines[i+1:], &cursorX, &cursorY, &headingDeg)
			if err != nil {
				return nil, fmt.Errorf("error in arc command starting line %d: %w", i+1, err)
			}
			i += consumed
			usable++
			continue
		}

		if m := reAction.FindStringSubmatch(line); m != nil && !isCommandName(m[1]) {
			id := s.AddOrReuseMarker(
				model.Pose{X: cursorX, Y: cursorY}.Point(), m[1], m[2], markerProximityMeters)
			s.AddAction(id)
			usable++
			continue
		}

		p.logger.Warn("Skipping unrecognized program line", "line", i+1, "text", line)
	}

	s.ClearHistory()
	if usable == 0 || len(s.Path.Waypoints) == 0 {
		return s, ErrNoWaypoints
	}

	p.logger.Debug("Decoded robot-oriented program",
		"waypoints", len(s.Path.Waypoints), "markers", len(s.Markers))

	return s, nil
}

// isCommandName reports whether name is a reserved motion-command keyword.
// A command line that reached the action branch is malformed, not an action
// invocation, and must not register a marker under the command's name.
func isCommandName(name string) bool {
	for _, kw := range robotKeywords {
		if name+"(" == kw {
			return true
		}
	}
	return false
}

// decodeArcBlock scans the body of a multi-line arc command for
// (parameter, headingDegrees) samples, up to and including the closing
// brace. The first and last samples give the arc's start and end heading;
// the end position is a first-order advance along the start heading by the
// stated length, not a curve-accurate integration. Returns the number of
// body lines consumed so the outer scan resumes after the block.
func (p *Parser) decodeArcBlock(s *session.Session, open []string, body []string, cursorX, cursorY, headingDeg *float64) (int, error) {
	length, err := strconv.ParseFloat(open[1], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing arc length: %w", err)
	}
	speed, err := strconv.ParseFloat(open[2], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing arc speed: %w", err)
	}

	var samples []float64
	consumed := 0
	closed := false
	for _, raw := range body {
		consumed++
		line := strings.TrimSpace(raw)
		if line == "}" || line == "};" {
			closed = true
			break
		}
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if m := reArcSample.FindStringSubmatch(line); m != nil {
			h, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return consumed, fmt.Errorf("error parsing arc sample heading: %w", err)
			}
			samples = append(samples, h)
		}
	}
	if !closed {
		return consumed, fmt.Errorf("arc command body is missing its closing brace")
	}
	if len(samples) < 2 {
		return consumed, fmt.Errorf("arc command needs at least start and end heading samples, got %d", len(samples))
	}

	startHeading := samples[0]
	endHeading := samples[len(samples)-1]

	*cursorX += length * math.Cos(startHeading*math.Pi/180)
	*cursorY += length * math.Sin(startHeading*math.Pi/180)
	*headingDeg = endHeading

	s.AddWaypoint(model.PoseFromProgramAngle(*cursorX, *cursorY, endHeading), model.KindArc, speed)

	return consumed, nil
}
