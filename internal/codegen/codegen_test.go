package codegen

import (
	"log/slog"
	"math"
	"strings"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/session"
)

func newTestGenerator() *Generator {
	return New(slog.New(slog.DiscardHandler), DefaultArcSampleCount)
}

func singleDriveSession() *session.Session {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 1, Y: 0, H: 0}, model.KindDrive, 1)
	return s
}

func TestFieldOrientedSingleDrive(t *testing.T) {
	text := newTestGenerator().FieldOriented(singleDriveSession())

	lines := strings.Split(text, "\n")
	require.Greater(t, len(lines), 2)
	assert.Contains(t, lines[1], "new Pose2d(0.0, 0.0, Rotation2d.fromDegrees(0))")
	assert.Contains(t, lines[2], "new Pose2d(100.0, 0.0, Rotation2d.fromDegrees(0))")
}

func TestFieldOrientedMarkerAccessorAlwaysEmitted(t *testing.T) {
	text := newTestGenerator().FieldOriented(singleDriveSession())
	assert.Contains(t, text, "getMarkers()")
	assert.Contains(t, text, "new EventMarker[] {")
	assert.NotContains(t, text, "new EventMarker(")
}

func TestFieldOrientedMarkerPercentage(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 1, Y: 0}, model.KindDrive, 1)
	id := s.AddOrReuseMarker(geom.XY{X: 1, Y: 0}, "intake", "", 0.1)
	s.AddAction(id)
	s.AddWaypoint(model.Pose{X: 2, Y: 0}, model.KindDrive, 1)

	text := newTestGenerator().FieldOriented(s)
	assert.Contains(t, text, `new EventMarker(50.0, "intake")`)
}

func TestFieldOrientedNegatesHeading(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 1, Y: 1, H: math.Pi / 2}, model.KindDrive, 1)

	text := newTestGenerator().FieldOriented(s)
	assert.Contains(t, text, "new Pose2d(100.0, 100.0, Rotation2d.fromDegrees(-90))")
}

func TestRobotOrientedSingleDrive(t *testing.T) {
	text := newTestGenerator().RobotOriented(singleDriveSession())

	assert.Contains(t, text, "turnPID(0);")
	assert.Contains(t, text, "drivePID(1.00, 0);")
}

func TestRobotOrientedStrafe(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 0, Y: 2, H: -math.Pi / 2}, model.KindStrafe, 1)

	text := newTestGenerator().RobotOriented(s)
	assert.Contains(t, text, "strafePID(2.00, 90);")
	// A strafe emits no separate turn-to-bearing command.
	assert.NotContains(t, text, "turnPID(90);")
}

func TestRobotOrientedExtraHeadingTurn(t *testing.T) {
	s := session.New()
	// Bearing is 0 but the waypoint's explicit heading maps to -45 in
	// program angles, so an extra turn follows the drive.
	s.AddWaypoint(model.Pose{X: 1, Y: 0, H: math.Pi / 4}, model.KindDrive, 1)

	text := newTestGenerator().RobotOriented(s)
	assert.Contains(t, text, "drivePID(1.00, 0);")
	assert.Contains(t, text, "turnPID(-45);")
}

func TestRobotOrientedZeroLengthSegment(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 0, Y: 0, H: math.Pi / 2}, model.KindDrive, 1)

	text := newTestGenerator().RobotOriented(s)
	assert.NotContains(t, text, "drivePID(")
	assert.Contains(t, text, "turnPID(-90);")
}

func TestRobotOrientedZeroLengthZeroHeading(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 0, Y: 0, H: 0}, model.KindDrive, 1)

	text := newTestGenerator().RobotOriented(s)
	// Only the initial orientation command remains.
	assert.Equal(t, "turnPID(0);\n", text)
}

func TestRobotOrientedArc(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 1, Y: 1, H: -math.Pi / 2}, model.KindArc, 0.8)

	text := newTestGenerator().RobotOriented(s)
	require.Contains(t, text, "arcTo(")
	assert.Contains(t, text, "0.80) {")
	assert.Contains(t, text, "(0.00, 0);")
	assert.Contains(t, text, "(1.00, 90);")

	sampleCount := strings.Count(text, "    (")
	assert.Equal(t, DefaultArcSampleCount+2, sampleCount,
		"interior samples plus the two bracketing samples")
}

func TestRobotOrientedArcSampleCount(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 1, Y: 1}, model.KindArc, 0.5)

	gen := New(slog.New(slog.DiscardHandler), 8)
	text := gen.RobotOriented(s)
	assert.Equal(t, 10, strings.Count(text, "    ("))
}

func TestRobotOrientedActions(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.Pose{X: 1, Y: 0}, model.KindDrive, 1)
	intake := s.AddOrReuseMarker(geom.XY{X: 1, Y: 0}, "intake", "", 0.1)
	s.AddAction(intake)
	shoot := s.AddOrReuseMarker(geom.XY{X: 1, Y: 0}, "shoot", "2, true", 0.1)
	s.AddAction(shoot)

	text := newTestGenerator().RobotOriented(s)
	assert.Contains(t, text, "intake();")
	assert.Contains(t, text, "shoot(2, true);")
}

func TestRobotOrientedStartsWithStartHeading(t *testing.T) {
	s := session.New()
	s.SetStart(model.Pose{X: 0, Y: 0, H: -math.Pi / 3})
	s.AddWaypoint(model.Pose{X: 1, Y: 0, H: 0}, model.KindDrive, 1)

	text := newTestGenerator().RobotOriented(s)
	assert.True(t, strings.HasPrefix(text, "turnPID(60);"),
		"program must begin by orienting to the start heading, got %q", text)
}

func TestFormatAngle(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{-0.04, "0"},
		{90, "90"},
		{-45.04, "-45"},
		{12.34, "12.3"},
		{-179.96, "-180"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAngle(tt.in), "in=%v", tt.in)
	}
}
