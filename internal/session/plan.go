package session

import (
	"context"
	"errors"
	"strings"

	"github.com/kmori/trailmap/internal/api"
	"github.com/kmori/trailmap/internal/roadmap"
)

func isUnauthorized(err error) bool {
	return errors.Is(err, api.ErrUnauthorized)
}

// Propose validates the goal and asks the backend to draft a plan.
// Drafting → Proposed. The session stays in Drafting on failure.
func (s *Session) Propose(ctx context.Context, goal, stack string, level roadmap.Level) error {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return ErrEmptyGoal
	}
	if !level.Valid() {
		return ErrBadLevel
	}
	if err := s.begin(PhaseDrafting); err != nil {
		return err
	}

	plan, err := s.backend.ProposePlan(ctx, api.ProposeRequest{
		Goal:  goal,
		Stack: strings.TrimSpace(stack),
		Level: level,
	})
	if err != nil {
		s.fail(PhaseDrafting, err)
		return err
	}

	s.mu.Lock()
	s.goal = goal
	s.stack = plan.Stack
	s.level = level
	s.plan = plan
	s.mu.Unlock()

	s.end(PhaseProposed)
	return nil
}

// EditStack replaces the draft's stack text. Proposed/Editing only.
func (s *Session) EditStack(stack string) error {
	return s.edit(func(p *roadmap.ProposedPlan) error {
		p.SetStack(stack)
		return nil
	})
}

// RetitleStep renames a draft step.
func (s *Session) RetitleStep(index int, title string) error {
	return s.edit(func(p *roadmap.ProposedPlan) error {
		return p.Retitle(index, title)
	})
}

// AddStep appends a draft step, bounded at roadmap.MaxPlanSteps.
func (s *Session) AddStep(title string) error {
	return s.edit(func(p *roadmap.ProposedPlan) error {
		return p.AddStep(title)
	})
}

// RemoveStep deletes a draft step and renumbers the rest. The draft never
// shrinks below one step.
func (s *Session) RemoveStep(index int) error {
	return s.edit(func(p *roadmap.ProposedPlan) error {
		return p.RemoveStep(index)
	})
}

// edit applies a draft mutation. Bounds violations are reported to the
// caller and never leave the session; the phase moves to Editing only
// when the mutation succeeded.
func (s *Session) edit(fn func(*roadmap.ProposedPlan) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	if s.phase != PhaseProposed && s.phase != PhaseEditing {
		return ErrBadPhase
	}
	if err := fn(s.plan); err != nil {
		return err
	}
	s.phase = PhaseEditing
	return nil
}

// Discard throws the draft away and returns to Drafting.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	if s.phase != PhaseProposed && s.phase != PhaseEditing {
		return ErrBadPhase
	}
	s.plan = nil
	s.phase = PhaseDrafting
	return nil
}

// Generate turns the edited draft into a full roadmap via the backend,
// transparently waiting out a queued job. Proposed/Editing → Generating →
// RoadmapReady; on failure the session returns to Editing so the user can
// retry or keep adjusting the draft.
func (s *Session) Generate(ctx context.Context) error {
	if err := s.begin(PhaseProposed, PhaseEditing); err != nil {
		return err
	}
	s.mu.Lock()
	s.phase = PhaseGenerating
	req := api.GenerateRoadmapRequest{
		Goal:      s.goal,
		Stack:     s.plan.Stack,
		Level:     s.level,
		PlanSteps: append([]roadmap.PlanStep(nil), s.plan.Steps...),
	}
	s.mu.Unlock()

	project, err := s.backend.GenerateRoadmap(ctx, req)
	if err != nil {
		s.fail(PhaseEditing, err)
		return err
	}

	s.adoptProject(project)
	s.end(PhaseRoadmapReady)
	return nil
}

// Resume loads an existing project (fetched by the caller) instead of
// drafting a new one, reconciling local progress from the backend
// payload. Drafting → RoadmapReady.
func (s *Session) Resume(project *roadmap.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	if s.phase != PhaseDrafting {
		return ErrBadPhase
	}
	s.goal = project.Goal
	s.stack = project.Stack
	s.level = project.Level
	s.project = project
	s.tracker.Reconcile(project.Steps)
	s.phase = PhaseRoadmapReady
	return nil
}

func (s *Session) adoptProject(project *roadmap.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.Goal == "" {
		project.Goal = s.goal
	}
	if project.Stack == "" {
		project.Stack = s.stack
	}
	if project.Level == "" {
		project.Level = s.level
	}
	s.project = project
	s.tracker.Reconcile(project.Steps)
}
