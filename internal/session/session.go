// Package session drives one user's traversal of a roadmap: proposal,
// draft editing, generation, and step-by-step quiz completion. Illegal
// transitions are unrepresentable: every operation checks the phase and
// rejects calls that do not belong to it.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/kmori/trailmap/internal/api"
	"github.com/kmori/trailmap/internal/gate"
	"github.com/kmori/trailmap/internal/progress"
	"github.com/kmori/trailmap/internal/roadmap"
)

// Phase is the session's position in the roadmap lifecycle.
type Phase int

const (
	PhaseDrafting       Phase = iota // collecting goal/stack/level
	PhaseProposed                    // draft received, untouched
	PhaseEditing                     // draft mutated by the user
	PhaseGenerating                  // roadmap generation in flight
	PhaseRoadmapReady                // roadmap held, no step open
	PhaseStepInProgress              // answering a step's quizzes
	PhaseStepCompleted               // step finished, score recorded
	PhaseAllCompleted                // every step has a recorded score
	PhaseUnauthorized                // credential rejected; session is dead
)

func (p Phase) String() string {
	switch p {
	case PhaseDrafting:
		return "drafting"
	case PhaseProposed:
		return "proposed"
	case PhaseEditing:
		return "editing"
	case PhaseGenerating:
		return "generating"
	case PhaseRoadmapReady:
		return "roadmap-ready"
	case PhaseStepInProgress:
		return "step-in-progress"
	case PhaseStepCompleted:
		return "step-completed"
	case PhaseAllCompleted:
		return "all-completed"
	case PhaseUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

var (
	// ErrBusy rejects a conflicting call while a network operation is
	// outstanding. The triggering action should stay disabled until the
	// pending operation resolves.
	ErrBusy = errors.New("an operation is already in flight")

	// ErrBadPhase rejects an operation that is not legal in the current
	// phase (e.g. editing before proposing).
	ErrBadPhase = errors.New("operation not allowed in current phase")

	// ErrEmptyGoal is the validation failure for a blank goal.
	ErrEmptyGoal = errors.New("goal must not be empty")

	// ErrBadLevel is the validation failure for an unknown level.
	ErrBadLevel = errors.New("unknown level")

	// ErrNotSubmitted rejects advancing past a quiz item that has not
	// been answered yet.
	ErrNotSubmitted = errors.New("current quiz item not submitted")

	// ErrAlreadySubmitted rejects changing an answer after submission;
	// submission is one-way.
	ErrAlreadySubmitted = errors.New("quiz item already submitted")
)

// Backend is the generation surface the session drives. Satisfied by
// *api.Client and by the offline generator, so the session cannot tell a
// remote service from a local model.
type Backend interface {
	ProposePlan(ctx context.Context, req api.ProposeRequest) (*roadmap.ProposedPlan, error)
	GenerateRoadmap(ctx context.Context, req api.GenerateRoadmapRequest) (*roadmap.Project, error)
	GenerateStepQuiz(ctx context.Context, req api.GenerateStepQuizRequest) ([]roadmap.Quiz, error)
}

// StepFetcher is an optional Backend extension for services that store
// step quiz sets server-side. Checked before generating lazily.
type StepFetcher interface {
	Step(ctx context.Context, projectID int64, stepIndex int) (*roadmap.Step, error)
}

// Config carries session-scoped settings. Replaces the global state the
// web client kept in browser storage.
type Config struct {
	// Plan is the user's subscription tier, read-only for gating.
	Plan roadmap.Plan
}

// stepRun is the traversal state of one open step.
type stepRun struct {
	step      *roadmap.Step
	quizIndex int
	correct   int
	submitted []bool
	answers   []int
}

// Session is the per-user state machine. One project, one user, one
// logical thread of control; network calls are the only suspension points.
type Session struct {
	id      string
	cfg     Config
	backend Backend
	gate    *gate.Gate
	tracker *progress.Tracker

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	busy  bool
	phase Phase

	goal  string
	stack string
	level roadmap.Level

	plan    *roadmap.ProposedPlan
	project *roadmap.Project
	run     *stepRun
}

// New creates a Session in PhaseDrafting.
func New(backend Backend, g *gate.Gate, tracker *progress.Tracker, cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Plan == "" {
		cfg.Plan = roadmap.PlanFree
	}
	return &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		backend: backend,
		gate:    g,
		tracker: tracker,
		ctx:     ctx,
		cancel:  cancel,
		phase:   PhaseDrafting,
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Context returns the session-lifetime context. Operations started with
// it stop when the session is closed.
func (s *Session) Context() context.Context { return s.ctx }

// Close tears the session down. In-flight polling started from the
// session context stops; no timers outlive the session.
func (s *Session) Close() {
	s.cancel()
}

// Invalidate forces the hard logged-out transition from outside a
// session operation. The API client's logout hook calls it when any
// request sees a 401, so a rejected credential during resume or polling
// lands in the same terminal phase as one seen mid-operation. The
// session context is cancelled: in-flight polling stops.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.busy = false
	s.phase = PhaseUnauthorized
	s.mu.Unlock()
	s.cancel()
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Plan returns the current draft, or nil before proposal.
func (s *Session) Plan() *roadmap.ProposedPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Project returns the generated roadmap, or nil before generation.
func (s *Session) Project() *roadmap.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Progress exposes the session's score tracker.
func (s *Session) Progress() *progress.Tracker { return s.tracker }

// PlanTier returns the access plan the session was opened with.
func (s *Session) PlanTier() roadmap.Plan { return s.cfg.Plan }

// Accessible reports whether the gate admits the step without opening
// it. The roadmap view uses it to mark locked steps.
func (s *Session) Accessible(stepIndex int) (bool, error) {
	return s.gate.Accessible(stepIndex, s.cfg.Plan)
}

// begin acquires the single-operation slot, verifying the phase is one of
// allowed. Conflicting concurrent submissions are rejected, not queued.
func (s *Session) begin(allowed ...Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	if !phaseIn(s.phase, allowed) {
		return ErrBadPhase
	}
	s.busy = true
	return nil
}

// end releases the operation slot and moves to the given phase.
func (s *Session) end(next Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.phase = next
}

// fail releases the operation slot, keeping the given phase unless the
// credential was rejected, which forces the one hard transition the
// session ever makes.
func (s *Session) fail(keep Phase, err error) {
	if isUnauthorized(err) {
		keep = PhaseUnauthorized
	}
	s.end(keep)
}

func phaseIn(p Phase, set []Phase) bool {
	for _, a := range set {
		if p == a {
			return true
		}
	}
	return false
}
