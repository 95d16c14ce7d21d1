package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/session"
)

func sampleSession() *session.Session {
	s := session.New()
	s.SetStart(model.Pose{X: 0.5, Y: 0.5})
	s.AddWaypoint(model.PoseFromProgramAngle(1.5, 0.5, 0), model.KindDrive, 1)
	s.AddWaypoint(model.PoseFromProgramAngle(1.5, 1.5, 90), model.KindArc, 0.75)
	id := s.AddOrReuseMarker(s.Path.Waypoints[1].Point(), "deploy", "", 0.05)
	s.AddAction(id)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New()
	orig := sampleSession()
	require.NoError(t, st.SaveTrajectory("auto1", orig))

	loaded, err := st.LoadTrajectory("auto1")
	require.NoError(t, err)

	assert.Equal(t, orig.Path, loaded.Path)
	assert.Equal(t, orig.Markers, loaded.Markers)
}

func TestLoadMissing(t *testing.T) {
	st := New()
	_, err := st.LoadTrajectory("nothere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveReplaces(t *testing.T) {
	st := New()
	require.NoError(t, st.SaveTrajectory("auto1", sampleSession()))

	replacement := session.New()
	replacement.AddWaypoint(model.PoseFromProgramAngle(9, 9, 0), model.KindDrive, 1)
	require.NoError(t, st.SaveTrajectory("auto1", replacement))

	loaded, err := st.LoadTrajectory("auto1")
	require.NoError(t, err)
	require.Len(t, loaded.Path.Waypoints, 1)
	assert.InDelta(t, 9, loaded.Path.Waypoints[0].X, 1e-9)
}

func TestSaveIsDetachedFromSession(t *testing.T) {
	st := New()
	s := sampleSession()
	require.NoError(t, st.SaveTrajectory("auto1", s))

	// Mutating the live session must not leak into the stored copy.
	s.MoveWaypoint(0, model.Pose{X: 42}, true)

	loaded, err := st.LoadTrajectory("auto1")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, loaded.Path.Waypoints[0].X, 1e-9)
}

func TestListSorted(t *testing.T) {
	st := New()
	names, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, st.SaveTrajectory("beta", sampleSession()))
	require.NoError(t, st.SaveTrajectory("alpha", sampleSession()))

	names, err = st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	assert.NoError(t, st.Close())
}
