// Package session owns the mutable planning state: the path, the marker
// registry and the selection, with every structural mutation funneled
// through methods that snapshot into the bounded undo history first.
// There are no package globals; a Session is passed explicitly to the
// components that need it.
package session

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/fieldpath/planner/internal/geo"
	"github.com/fieldpath/planner/internal/model"
)

// Session is the single source of truth for one trajectory under edit.
type Session struct {
	Path      model.Path
	Markers   []model.Marker
	Selection *int

	history      History
	nextMarkerID uint
}

// New creates an empty session: a zero start pose and no waypoints.
func New() *Session {
	return &Session{nextMarkerID: 1}
}

// Restore builds a session around already-materialized path data, e.g. from
// storage or the decoder. History starts empty and nothing is selected.
// Marker ID allocation resumes past the highest restored ID.
func Restore(path model.Path, markers []model.Marker) *Session {
	s := &Session{
		Path:         path.Clone(),
		Markers:      cloneMarkers(markers),
		nextMarkerID: 1,
	}
	for _, m := range s.Markers {
		if m.ID >= s.nextMarkerID {
			s.nextMarkerID = m.ID + 1
		}
	}
	return s
}

// Marker returns the marker with the given ID.
func (s *Session) Marker(id uint) (model.Marker, bool) {
	for _, m := range s.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return model.Marker{}, false
}

// AddWaypoint appends a motion waypoint. Action waypoints go through
// AddAction instead.
func (s *Session) AddWaypoint(pose model.Pose, kind model.Kind, speed float64) {
	if kind == model.KindAction || !kind.Valid() {
		return
	}
	s.Snapshot()
	s.Path.Waypoints = append(s.Path.Waypoints, model.Waypoint{
		Pose:  pose,
		Kind:  kind,
		Speed: speed,
	})
}

// AddAction inserts an action waypoint referencing the given marker. Its
// pose is copied from the marker at insertion time and never re-synced.
// Actions are always inserted immediately after the last non-action
// waypoint so they never split two geometry segments apart.
func (s *Session) AddAction(markerID uint) {
	m, ok := s.Marker(markerID)
	if !ok {
		return
	}
	s.Snapshot()
	wp := model.Waypoint{
		Pose:     model.Pose{X: m.X, Y: m.Y},
		Kind:     model.KindAction,
		MarkerID: markerID,
	}
	s.Path.Waypoints = append(s.Path.Waypoints[:s.actionInsertIndex()],
		append([]model.Waypoint{wp}, s.Path.Waypoints[s.actionInsertIndex():]...)...)
}

// actionInsertIndex is the position just after the last non-action waypoint.
func (s *Session) actionInsertIndex() int {
	for i := len(s.Path.Waypoints) - 1; i >= 0; i-- {
		if !s.Path.Waypoints[i].IsAction() {
			return i + 1
		}
	}
	return 0
}

// MoveWaypoint relocates a waypoint. Any cached arc control point on the
// moved waypoint, and on an arc waypoint whose segment starts at it, is
// cleared so it gets recomputed from the new endpoints. Interactive drags
// snapshot once before the drag begins and pass snapshot=false for the
// intermediate moves.
func (s *Session) MoveWaypoint(index int, pose model.Pose, snapshot bool) {
	if index < 0 || index >= len(s.Path.Waypoints) {
		return
	}
	if snapshot {
		s.Snapshot()
	}
	wp := &s.Path.Waypoints[index]
	wp.Pose = pose
	wp.Control = nil
	if next := s.nextRealIndex(index); next >= 0 && s.Path.Waypoints[next].Kind == model.KindArc {
		s.Path.Waypoints[next].Control = nil
	}
}

func (s *Session) nextRealIndex(index int) int {
	for i := index + 1; i < len(s.Path.Waypoints); i++ {
		if !s.Path.Waypoints[i].IsAction() {
			return i
		}
	}
	return -1
}

// RetypeWaypoint changes a waypoint's motion kind. Leaving arc drops the
// control point; entering arc leaves it nil pending recomputation. Action
// waypoints cannot be retyped and nothing can become an action.
func (s *Session) RetypeWaypoint(index int, kind model.Kind) {
	if index < 0 || index >= len(s.Path.Waypoints) {
		return
	}
	if kind == model.KindAction || !kind.Valid() || s.Path.Waypoints[index].IsAction() {
		return
	}
	s.Snapshot()
	wp := &s.Path.Waypoints[index]
	wp.Kind = kind
	wp.Control = nil
}

// DeleteWaypoint removes a waypoint. The selection is cleared when it
// referenced the removed index and shifted when it pointed past it. The
// marker referenced by a deleted action persists.
func (s *Session) DeleteWaypoint(index int) {
	if index < 0 || index >= len(s.Path.Waypoints) {
		return
	}
	s.Snapshot()
	s.Path.Waypoints = append(s.Path.Waypoints[:index], s.Path.Waypoints[index+1:]...)
	if s.Selection != nil {
		switch {
		case *s.Selection == index:
			s.Selection = nil
		case *s.Selection > index:
			sel := *s.Selection - 1
			s.Selection = &sel
		}
	}
}

// SetStart replaces the start pose. A following arc segment starts at the
// start pose, so its cached control point is invalidated.
func (s *Session) SetStart(pose model.Pose) {
	s.Snapshot()
	s.Path.Start = pose
	if next := s.nextRealIndex(-1); next >= 0 && s.Path.Waypoints[next].Kind == model.KindArc {
		s.Path.Waypoints[next].Control = nil
	}
}

// Select sets the selection to a valid index, or clears it.
func (s *Session) Select(index int) {
	if index < 0 || index >= len(s.Path.Waypoints) {
		s.Selection = nil
		return
	}
	s.Selection = &index
}

// AddOrReuseMarker returns the ID of an existing marker with the same name
// within the proximity tolerance, or registers a new one with the next
// monotonic ID.
func (s *Session) AddOrReuseMarker(point geom.XY, name, args string, tolMeters float64) uint {
	for _, m := range s.Markers {
		if m.Name == name && m.Point().Sub(point).Length() <= tolMeters {
			return m.ID
		}
	}
	s.Snapshot()
	m := model.Marker{
		ID:   s.nextMarkerID,
		X:    point.X,
		Y:    point.Y,
		Name: name,
		Args: args,
	}
	s.nextMarkerID++
	s.Markers = append(s.Markers, m)
	return m.ID
}

// Snapshot pushes a deep copy of the current state onto the undo history.
func (s *Session) Snapshot() {
	s.history.Push(snapshot{
		path:      s.Path.Clone(),
		markers:   cloneMarkers(s.Markers),
		selection: cloneSelection(s.Selection),
	})
}

// Undo replaces the current state wholesale with the most recent snapshot.
// A no-op when the history is empty. Marker ID allocation is not rewound;
// IDs stay unique for the life of the session.
func (s *Session) Undo() {
	snap, ok := s.history.Pop()
	if !ok {
		return
	}
	s.Path = snap.path
	s.Markers = snap.markers
	s.Selection = snap.selection
}

// HistoryLen returns the number of undo entries currently held.
func (s *Session) HistoryLen() int {
	return s.history.Len()
}

// ClearHistory drops all undo entries. Builders that assemble a session
// through the mutation API call this before handing it over, so the first
// undo the user sees never exposes a half-built path.
func (s *Session) ClearHistory() {
	s.history = History{}
}

// ControlFor resolves the effective arc control point for the waypoint at
// index: the explicit one when present, otherwise the deterministic default
// derived from the previous real point and this one.
func (s *Session) ControlFor(index int) geom.XY {
	wp := s.Path.Waypoints[index]
	if wp.Control != nil {
		return *wp.Control
	}
	prev := s.Path.Start.Point()
	for i := index - 1; i >= 0; i-- {
		if !s.Path.Waypoints[i].IsAction() {
			prev = s.Path.Waypoints[i].Point()
			break
		}
	}
	return geo.DefaultArcControl(prev, wp.Point())
}

func cloneMarkers(markers []model.Marker) []model.Marker {
	if markers == nil {
		return nil
	}
	out := make([]model.Marker, len(markers))
	copy(out, markers)
	return out
}

func cloneSelection(sel *int) *int {
	if sel == nil {
		return nil
	}
	v := *sel
	return &v
}
