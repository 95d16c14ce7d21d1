// Package sim replays a session as a time-stepped motion trace. The runner
// is a phase state machine driven by an external clock: given the current
// state and an elapsed-time increment, Step computes the next state and
// whether the run is complete. The runner never owns a scheduling
// primitive; cancellation is cooperative via a shared running flag observed
// before each increment.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	geom "github.com/peterstace/simplefeatures/geom"
	"go.opentelemetry.io/otel/metric"

	"github.com/fieldpath/planner/internal/geo"
	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/queue"
	"github.com/fieldpath/planner/internal/session"
)

// Logger is the minimal logging interface the runner needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Phase is a simulator sub-state representing one kind of in-progress
// motion.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseTurn   Phase = "turn"
	PhaseDrive  Phase = "drive"
	PhaseStrafe Phase = "strafe"
	PhaseArc    Phase = "arc"
	PhaseWpTurn Phase = "wpTurn"
	PhaseField  Phase = "field"
	PhaseDone   Phase = "done"
)

const (
	// DefaultStepSeconds is the nominal time increment the host applies.
	DefaultStepSeconds = 0.016
	// linearRate is the nominal translation speed in length units per
	// second before the user multiplier.
	linearRate = 0.8
	// angularRateDeg is the nominal rotation speed in degrees per second
	// before the user multiplier.
	angularRateDeg = 120.0
	// headingSnapDeg is the remaining error at which a turn snaps exactly
	// to its target.
	headingSnapDeg = 0.5
	// wpTurnToleranceDeg is the difference between the arriving waypoint's
	// heading and the segment bearing above which a wpTurn phase follows
	// the motion phase.
	wpTurnToleranceDeg = 1.0
)

// Config tunes the runner.
type Config struct {
	// SpeedMultiplier scales both the linear and angular rates. Values
	// <= 0 fall back to 1.
	SpeedMultiplier float64
}

// TracePoint is one sample of the produced pose trace.
type TracePoint struct {
	Pose    model.Pose `json:"pose"`
	Elapsed float64    `json:"elapsed"`
	Phase   Phase      `json:"phase"`
}

type segment struct {
	kind             model.Kind
	from, to         geom.XY
	control          geom.XY
	length           float64
	bearingDeg       float64
	targetHeadingDeg float64
}

// Runner advances a synthetic robot pose through a session. A single run is
// in progress at a time; Start while a run is active is ignored.
type Runner struct {
	logger Logger
	cfg    Config

	running atomic.Bool

	runsStarted   metric.Int64Counter
	runsCompleted metric.Int64Counter
	stepsApplied  metric.Int64Counter

	segments    []segment
	segIndex    int
	phase       Phase
	position    geom.XY
	headingDeg  float64
	turnTarget  float64
	arcStartDeg float64
	progress    float64
	elapsed     float64

	fieldPts []geom.XY
	fieldIdx int

	visits map[Phase]int
	trace  *queue.Queue[TracePoint]
}

// NewRunner creates a runner. Metrics use the global OTel meter and are
// no-ops unless a provider is installed.
func NewRunner(logger Logger, cfg Config) (*Runner, error) {
	if cfg.SpeedMultiplier <= 0 {
		cfg.SpeedMultiplier = 1
	}
	r := &Runner{
		logger: logger,
		cfg:    cfg,
		phase:  PhaseIdle,
		trace:  queue.New[TracePoint](),
		visits: make(map[Phase]int),
	}

	m := meter()
	var err error
	r.runsStarted, err = m.Int64Counter(
		"sim.runs.started",
		metric.WithDescription("Total simulation runs started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}
	r.runsCompleted, err = m.Int64Counter(
		"sim.runs.completed",
		metric.WithDescription("Total simulation runs completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completed runs counter: %w", err)
	}
	r.stepsApplied, err = m.Int64Counter(
		"sim.steps.applied",
		metric.WithDescription("Total time increments applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	return r, nil
}

// Start begins a run over the session. In field mode the runner walks the
// pre-smoothed polyline directly with no discrete per-waypoint turn phases;
// otherwise it executes the per-segment phase machine. Returns false when a
// run is already active or the path has nothing to travel.
func (r *Runner) Start(s *session.Session, fieldMode bool) bool {
	if !r.running.CompareAndSwap(false, true) {
		return false
	}

	r.segments = nil
	r.fieldPts = nil
	r.fieldIdx = 0
	r.segIndex = 0
	r.progress = 0
	r.elapsed = 0
	r.visits = make(map[Phase]int)
	r.trace = queue.New[TracePoint]()
	r.position = s.Path.Start.Point()
	r.headingDeg = s.Path.Start.H * 180 / math.Pi

	if fieldMode {
		r.fieldPts = geo.SmoothFieldPath(s.Path.RealPoints())
		if len(r.fieldPts) < 2 {
			r.running.Store(false)
			return false
		}
		r.phase = PhaseField
		r.visits[PhaseField]++
	} else {
		r.buildSegments(s)
		if len(r.segments) == 0 {
			r.running.Store(false)
			return false
		}
		r.enterSegment()
	}

	r.runsStarted.Add(context.Background(), 1)
	r.logger.Info("Simulation run started",
		"fieldMode", fieldMode, "segments", len(r.segments),
		"speedMultiplier", r.cfg.SpeedMultiplier)
	return true
}

func (r *Runner) buildSegments(s *session.Session) {
	prev := s.Path.Start.Point()
	for i, wp := range s.Path.Waypoints {
		if wp.IsAction() {
			continue
		}
		seg := segment{
			kind:             wp.Kind,
			from:             prev,
			to:               wp.Point(),
			targetHeadingDeg: wp.H * 180 / math.Pi,
		}
		d := seg.to.Sub(seg.from)
		if d.Length() >= geo.Epsilon {
			seg.bearingDeg = math.Atan2(d.Y, d.X) * 180 / math.Pi
		}
		if wp.Kind == model.KindArc {
			seg.control = s.ControlFor(i)
			seg.length = geo.BezierLength(seg.from, seg.control, seg.to)
		} else {
			seg.length = d.Length()
		}
		r.segments = append(r.segments, seg)
		prev = seg.to
	}
}

// Cancel requests a cooperative stop; it is observed before the next time
// increment is applied and the run stops without finishing the remaining
// segments.
func (r *Runner) Cancel() {
	if r.running.CompareAndSwap(true, false) {
		r.logger.Info("Simulation run cancelled", "elapsed", r.elapsed)
	}
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Pose returns the current simulated pose.
func (r *Runner) Pose() model.Pose {
	return model.Pose{X: r.position.X, Y: r.position.Y, H: r.headingDeg * math.Pi / 180}
}

// CurrentPhase returns the phase the runner is in.
func (r *Runner) CurrentPhase() Phase {
	return r.phase
}

// Elapsed returns the simulated time applied so far, in seconds.
func (r *Runner) Elapsed() float64 {
	return r.elapsed
}

// Visits returns how many times a phase has been entered during the
// current or most recent run.
func (r *Runner) Visits(phase Phase) int {
	return r.visits[phase]
}

// Trace returns the buffer of pose samples produced by the run.
func (r *Runner) Trace() *queue.Queue[TracePoint] {
	return r.trace
}

// Step applies one elapsed-time increment and reports whether the run is
// complete. It is the only advancement entry point; the host schedules the
// calls.
func (r *Runner) Step(dt float64) bool {
	if !r.running.Load() {
		return true
	}
	r.stepsApplied.Add(context.Background(), 1)
	r.elapsed += dt

	var done bool
	if r.fieldPts != nil {
		done = r.stepField(dt)
	} else {
		done = r.stepSegment(dt)
	}

	r.trace.Push(TracePoint{Pose: r.Pose(), Elapsed: r.elapsed, Phase: r.phase})
	return done
}

func (r *Runner) stepSegment(dt float64) bool {
	seg := r.segments[r.segIndex]
	switch r.phase {
	case PhaseTurn:
		if r.rotateToward(r.turnTarget, dt) {
			r.enterMotion(seg)
		}
	case PhaseDrive, PhaseStrafe:
		frac := r.advance(seg, dt)
		r.position = seg.from.Add(seg.to.Sub(seg.from).Scale(frac))
		if frac >= 1 {
			r.position = seg.to
			return r.arrive(seg)
		}
	case PhaseArc:
		frac := r.advance(seg, dt)
		r.position = geo.BezierPoint(frac, seg.from, seg.control, seg.to)
		// Linear heading slew between the arc's start and end headings,
		// not the curve tangent.
		r.headingDeg = geo.NormalizeAngleDeg(
			r.arcStartDeg + geo.NormalizeAngleDeg(seg.targetHeadingDeg-r.arcStartDeg)*frac)
		if frac >= 1 {
			r.position = seg.to
			r.headingDeg = geo.NormalizeAngleDeg(seg.targetHeadingDeg)
			return r.arrive(seg)
		}
	case PhaseWpTurn:
		if r.rotateToward(geo.NormalizeAngleDeg(seg.targetHeadingDeg), dt) {
			return r.nextSegment()
		}
	}
	return false
}

// advance moves the linear progress along the current segment and returns
// the completed fraction, clamped to 1. Zero-length segments complete
// immediately.
func (r *Runner) advance(seg segment, dt float64) float64 {
	r.progress += linearRate * r.cfg.SpeedMultiplier * dt
	if seg.length < geo.Epsilon {
		return 1
	}
	frac := r.progress / seg.length
	if frac > 1 {
		frac = 1
	}
	return frac
}

// rotateToward turns at the fixed angular rate along the shortest signed
// path, snapping exactly to the target when the remaining error is within
// tolerance. Returns true once the target heading is held.
func (r *Runner) rotateToward(targetDeg float64, dt float64) bool {
	delta := geo.NormalizeAngleDeg(targetDeg - r.headingDeg)
	maxStep := angularRateDeg * r.cfg.SpeedMultiplier * dt
	if math.Abs(delta) <= headingSnapDeg || math.Abs(delta) <= maxStep {
		r.headingDeg = geo.NormalizeAngleDeg(targetDeg)
		return true
	}
	r.headingDeg = geo.NormalizeAngleDeg(r.headingDeg + math.Copysign(maxStep, delta))
	return false
}

// enterSegment sets up the phase for the segment at segIndex. Drive
// segments rotate to face the travel direction first; strafe snaps the
// chassis to the nearest 90° multiple without reorienting to the travel
// direction; arc begins slewing from the current heading.
func (r *Runner) enterSegment() {
	seg := r.segments[r.segIndex]
	r.progress = 0
	switch seg.kind {
	case model.KindDrive:
		r.phase = PhaseTurn
		r.visits[PhaseTurn]++
		r.turnTarget = geo.NormalizeAngleDeg(-seg.bearingDeg)
	default:
		r.enterMotion(seg)
	}
}

func (r *Runner) enterMotion(seg segment) {
	switch seg.kind {
	case model.KindDrive:
		r.phase = PhaseDrive
	case model.KindStrafe:
		r.headingDeg = geo.NormalizeAngleDeg(math.Round(r.headingDeg/90) * 90)
		r.phase = PhaseStrafe
	case model.KindArc:
		r.arcStartDeg = r.headingDeg
		r.phase = PhaseArc
	}
	r.visits[r.phase]++
}

// arrive decides the transition out of a completed motion phase: wpTurn
// when the waypoint carries a non-zero explicit heading distinct from the
// segment bearing, otherwise straight on to the next segment.
func (r *Runner) arrive(seg segment) bool {
	if seg.kind != model.KindArc && seg.targetHeadingDeg != 0 &&
		math.Abs(geo.NormalizeAngleDeg(seg.targetHeadingDeg+seg.bearingDeg)) > wpTurnToleranceDeg {
		r.phase = PhaseWpTurn
		r.visits[PhaseWpTurn]++
		return false
	}
	return r.nextSegment()
}

func (r *Runner) nextSegment() bool {
	r.segIndex++
	if r.segIndex >= len(r.segments) {
		return r.finish()
	}
	r.enterSegment()
	return false
}

func (r *Runner) finish() bool {
	r.phase = PhaseDone
	r.running.Store(false)
	r.runsCompleted.Add(context.Background(), 1)
	r.logger.Info("Simulation run complete",
		"elapsed", r.elapsed, "samples", r.trace.Len())
	return true
}

// stepField walks the smoothed polyline at the linear rate with the heading
// set to the instantaneous direction of travel.
func (r *Runner) stepField(dt float64) bool {
	move := linearRate * r.cfg.SpeedMultiplier * dt
	for move > 0 {
		next := r.fieldPts[r.fieldIdx+1]
		d := next.Sub(r.position)
		dist := d.Length()
		if dist >= geo.Epsilon {
			r.headingDeg = math.Atan2(d.Y, d.X) * 180 / math.Pi
		}
		if dist > move {
			r.position = r.position.Add(d.Scale(move / dist))
			return false
		}
		r.position = next
		move -= dist
		r.fieldIdx++
		if r.fieldIdx >= len(r.fieldPts)-1 {
			return r.finish()
		}
	}
	return false
}
