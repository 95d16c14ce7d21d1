package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/session"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

func newTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	r, err := NewRunner(testLogger{}, cfg)
	require.NoError(t, err)
	return r
}

// runToCompletion steps until done with a hard cap so a broken state
// machine fails the test instead of hanging it.
func runToCompletion(t *testing.T, r *Runner) {
	t.Helper()
	for i := 0; i < 1_000_000; i++ {
		if r.Step(DefaultStepSeconds) {
			return
		}
	}
	t.Fatal("simulation did not complete")
}

func TestRunnerCompletesDrivePath(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.PoseFromProgramAngle(1, 0, 0), model.KindDrive, 1)
	s.AddWaypoint(model.PoseFromProgramAngle(1, 1, 90), model.KindDrive, 1)

	r := newTestRunner(t, Config{})
	require.True(t, r.Start(s, false))

	runToCompletion(t, r)

	assert.False(t, r.Running())
	assert.Equal(t, PhaseDone, r.CurrentPhase())
	pose := r.Pose()
	assert.InDelta(t, 1, pose.X, 1e-9)
	assert.InDelta(t, 1, pose.Y, 1e-9)
	assert.Equal(t, 2, r.Visits(PhaseDrive))
	assert.GreaterOrEqual(t, r.Visits(PhaseTurn), 1)
	assert.Greater(t, r.Trace().Len(), 0)
	assert.Greater(t, r.Elapsed(), 0.0)
}

func TestRunnerWaypointTurn(t *testing.T) {
	s := session.New()
	// Travel bearing 0 but the waypoint holds a 90° program angle, so the
	// runner rotates in place after arriving.
	s.AddWaypoint(model.PoseFromProgramAngle(1, 0, 90), model.KindDrive, 1)

	r := newTestRunner(t, Config{})
	require.True(t, r.Start(s, false))
	runToCompletion(t, r)

	assert.Equal(t, 1, r.Visits(PhaseWpTurn))
	assert.InDelta(t, -math.Pi/2, r.Pose().H, 1e-9)
}

func TestRunnerStrafeSnapsHeading(t *testing.T) {
	s := session.New()
	s.SetStart(model.Pose{H: 10 * math.Pi / 180})
	s.AddWaypoint(model.Pose{X: 0, Y: 1}, model.KindStrafe, 1)

	r := newTestRunner(t, Config{})
	require.True(t, r.Start(s, false))
	runToCompletion(t, r)

	// 10° snaps to the nearest 90° multiple, which is 0.
	assert.InDelta(t, 0, r.Pose().H, 1e-9)
	assert.Equal(t, 1, r.Visits(PhaseStrafe))
	assert.Equal(t, 0, r.Visits(PhaseTurn))
	assert.InDelta(t, 1, r.Pose().Y, 1e-9)
}

func TestRunnerArcHeadingSlew(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.PoseFromProgramAngle(2, 0, -90), model.KindArc, 1)

	r := newTestRunner(t, Config{})
	require.True(t, r.Start(s, false))

	sawIntermediate := false
	for i := 0; i < 1_000_000; i++ {
		if r.Step(DefaultStepSeconds) {
			break
		}
		h := r.Pose().H * 180 / math.Pi
		if h > 5 && h < 85 {
			sawIntermediate = true
		}
	}

	assert.False(t, r.Running())
	// The heading slews through intermediate values toward the end sample
	// rather than jumping.
	assert.True(t, sawIntermediate)
	assert.InDelta(t, math.Pi/2, r.Pose().H, 1e-9)
	assert.InDelta(t, 2, r.Pose().X, 1e-9)
	assert.Equal(t, 1, r.Visits(PhaseArc))
	assert.Equal(t, 0, r.Visits(PhaseWpTurn))
}

func TestRunnerCancel(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.PoseFromProgramAngle(100, 0, 0), model.KindDrive, 1)

	r := newTestRunner(t, Config{})
	require.True(t, r.Start(s, false))
	require.False(t, r.Step(DefaultStepSeconds))

	r.Cancel()
	assert.False(t, r.Running())
	assert.True(t, r.Step(DefaultStepSeconds))
	assert.NotEqual(t, PhaseDone, r.CurrentPhase())
}

func TestRunnerStartWhileRunning(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.PoseFromProgramAngle(100, 0, 0), model.KindDrive, 1)

	r := newTestRunner(t, Config{})
	require.True(t, r.Start(s, false))
	assert.False(t, r.Start(s, false))

	r.Cancel()
	assert.True(t, r.Start(s, false))
}

func TestRunnerStartNothingToTravel(t *testing.T) {
	r := newTestRunner(t, Config{})
	assert.False(t, r.Start(session.New(), false))
	assert.False(t, r.Running())

	// Actions alone give the phase machine no segments either.
	s := session.New()
	s.AddWaypoint(model.PoseFromProgramAngle(1, 0, 0), model.KindDrive, 1)
	id := s.AddOrReuseMarker(s.Path.Waypoints[0].Point(), "fire", "", 0.05)
	s.AddAction(id)
	onlyAction := session.Restore(model.Path{Waypoints: []model.Waypoint{s.Path.Waypoints[1]}}, s.Markers)
	assert.False(t, r.Start(onlyAction, false))
}

func TestRunnerFieldMode(t *testing.T) {
	s := session.New()
	s.AddWaypoint(model.PoseFromProgramAngle(1, 0, 0), model.KindDrive, 1)
	s.AddWaypoint(model.PoseFromProgramAngle(1, 1, 0), model.KindDrive, 1)
	s.AddWaypoint(model.PoseFromProgramAngle(2, 1, 0), model.KindDrive, 1)

	r := newTestRunner(t, Config{})
	require.True(t, r.Start(s, true))
	assert.Equal(t, PhaseField, r.CurrentPhase())

	runToCompletion(t, r)

	pose := r.Pose()
	assert.InDelta(t, 2, pose.X, 1e-9)
	assert.InDelta(t, 1, pose.Y, 1e-9)
	assert.Equal(t, 1, r.Visits(PhaseField))
	assert.Equal(t, 0, r.Visits(PhaseTurn))
}

func TestRunnerFieldModeNeedsTwoPoints(t *testing.T) {
	r := newTestRunner(t, Config{})
	assert.False(t, r.Start(session.New(), true))
	assert.False(t, r.Running())
}

func TestRunnerSpeedMultiplier(t *testing.T) {
	path := func() *session.Session {
		s := session.New()
		s.AddWaypoint(model.PoseFromProgramAngle(4, 0, 0), model.KindDrive, 1)
		return s
	}

	slow := newTestRunner(t, Config{SpeedMultiplier: 1})
	require.True(t, slow.Start(path(), false))
	runToCompletion(t, slow)

	fast := newTestRunner(t, Config{SpeedMultiplier: 4})
	require.True(t, fast.Start(path(), false))
	runToCompletion(t, fast)

	assert.Less(t, fast.Elapsed(), slow.Elapsed())
}

func TestRunnerStepWhenIdle(t *testing.T) {
	r := newTestRunner(t, Config{})
	assert.True(t, r.Step(DefaultStepSeconds))
	assert.Equal(t, 0.0, r.Elapsed())
}
