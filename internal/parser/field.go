package parser

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/session"
)

var (
	rePoseLiteral = regexp.MustCompile(
		`new\s+Pose2d\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*,\s*Rotation2d\.fromDegrees\(\s*(-?\d+(?:\.\d+)?)\s*\)\s*\)`)
	reEventMarker = regexp.MustCompile(
		`new\s+EventMarker\(\s*(-?\d+(?:\.\d+)?)\s*,\s*"([^"]*)"\s*\)`)
)

// decodeField extracts every pose literal from field-oriented text. The
// first pose becomes the start (centimeters back to meters, heading negated
// to radians) and every subsequent pose a drive waypoint. When the text
// yields no poses beyond the first, or the decoded start is exactly the
// origin identity, the prior start pose is preserved instead of being
// overwritten with a degenerate origin; origin-relative robot-oriented text
// decoded earlier would otherwise lose its start. Percentage markers are
// re-attached as action waypoints at the corresponding route position.
func (p *Parser) decodeField(text string, prior *session.Session) (*session.Session, error) {
	matches := rePoseLiteral.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		p.logger.Warn("Field-oriented text contained no pose literals")
		return session.New(), ErrNoWaypoints
	}

	poses := make([]model.Pose, 0, len(matches))
	for _, m := range matches {
		x, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing pose x: %w", err)
		}
		y, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing pose y: %w", err)
		}
		deg, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing pose angle: %w", err)
		}
		poses = append(poses, model.PoseFromProgramAngle(x/100, y/100, deg))
	}

	start := poses[0]
	if len(poses) == 1 || (start.X == 0 && start.Y == 0 && start.H == 0) {
		start = prior.Path.Start
	}

	s := session.Restore(model.Path{Start: start}, nil)
	for _, pose := range poses[1:] {
		s.AddWaypoint(pose, model.KindDrive, DefaultSpeed)
	}
	if len(s.Path.Waypoints) == 0 {
		return s, ErrNoWaypoints
	}

	p.attachFieldMarkers(s, text)
	s.ClearHistory()

	p.logger.Debug("Decoded field-oriented program",
		"waypoints", len(s.Path.Waypoints), "markers", len(s.Markers))

	return s, nil
}

type fieldMarker struct {
	afterReal int
	name      string
}

// attachFieldMarkers converts percentage markers back into action
// waypoints: a marker at pct fires after round(pct/100 * totalReal) real
// waypoints.
func (p *Parser) attachFieldMarkers(s *session.Session, text string) {
	matches := reEventMarker.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return
	}
	totalReal := len(s.Path.RealWaypoints())

	pending := make([]fieldMarker, 0, len(matches))
	for _, m := range matches {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			p.logger.Warn("Skipping marker with invalid percentage", "raw", m[1])
			continue
		}
		after := int(math.Round(pct / 100 * float64(totalReal)))
		if after < 1 {
			after = 1
		}
		if after > totalReal {
			after = totalReal
		}
		pending = append(pending, fieldMarker{afterReal: after, name: m[2]})
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].afterReal < pending[j].afterReal
	})

	real := s.Path.RealWaypoints()
	rebuilt := make([]model.Waypoint, 0, len(real)+len(pending))
	next := 0
	for i, wp := range real {
		rebuilt = append(rebuilt, wp)
		for next < len(pending) && pending[next].afterReal == i+1 {
			id := s.AddOrReuseMarker(wp.Point(), pending[next].name, "", markerProximityMeters)
			rebuilt = append(rebuilt, model.Waypoint{
				Pose:     model.Pose{X: wp.X, Y: wp.Y},
				Kind:     model.KindAction,
				MarkerID: id,
			})
			next++
		}
	}
	s.Path.Waypoints = rebuilt
}
