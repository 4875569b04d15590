package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/kmori/trailmap/internal/api"
	"github.com/kmori/trailmap/internal/progress"
	"github.com/kmori/trailmap/internal/roadmap"
)

// EnterOutcome reports how an EnterStep attempt resolved.
type EnterOutcome int

const (
	// Entered means the step is open and its quizzes are loaded.
	Entered EnterOutcome = iota
	// Locked means the gate denied access: the session exposes a paywall
	// state and fetched no quiz data.
	Locked
)

// AnswerResult is the local scoring of one submitted quiz item.
type AnswerResult struct {
	Correct      bool
	CorrectIndex int
	Explanation  string
	StepDone     bool
	// Score is set when this submission completed the step.
	Score *roadmap.Score
	// PersistErr is set when the step completed but the score save
	// failed; the score is retained and RetryPersist can flush it.
	PersistErr error
}

// EnterStep opens step i for traversal. RoadmapReady/StepCompleted (and a
// revisit from StepInProgress via the roadmap screen) → StepInProgress.
//
// The gate is consulted first: a denial is an outcome, not an error, and
// no quiz data is fetched for a locked step. If the step's quizzes are
// absent they are fetched from the backend or generated lazily, which may
// itself ride a queued job.
func (s *Session) EnterStep(ctx context.Context, index int) (EnterOutcome, error) {
	s.mu.Lock()
	project := s.project
	s.mu.Unlock()
	if project == nil {
		return 0, ErrBadPhase
	}
	step := project.StepByIndex(index)
	if step == nil {
		return 0, roadmap.ErrNoSuchStep
	}

	ok, err := s.gate.Accessible(index, s.cfg.Plan)
	if err != nil {
		return 0, err
	}
	if !ok {
		return Locked, nil
	}

	if err := s.begin(PhaseRoadmapReady, PhaseStepInProgress, PhaseStepCompleted, PhaseAllCompleted); err != nil {
		return 0, err
	}
	prev := s.Phase()

	if len(step.Quizzes) == 0 {
		if err := s.loadQuizzes(ctx, step); err != nil {
			s.fail(prev, err)
			return 0, err
		}
	}

	s.mu.Lock()
	s.run = &stepRun{
		step:      step,
		submitted: make([]bool, len(step.Quizzes)),
		answers:   make([]int, len(step.Quizzes)),
	}
	s.mu.Unlock()
	s.end(PhaseStepInProgress)
	return Entered, nil
}

// loadQuizzes fills step.Quizzes, preferring the stored server copy over
// a fresh generation.
func (s *Session) loadQuizzes(ctx context.Context, step *roadmap.Step) error {
	if fetcher, ok := s.backend.(StepFetcher); ok && s.project.ID != 0 {
		fetched, err := fetcher.Step(ctx, s.project.ID, step.Index)
		if err != nil {
			return err
		}
		if fetched.Description != "" {
			step.Description = fetched.Description
		}
		if len(fetched.Quizzes) > 0 {
			step.Quizzes = fetched.Quizzes
			return nil
		}
	}

	quizzes, err := s.backend.GenerateStepQuiz(ctx, api.GenerateStepQuizRequest{
		Goal:       s.project.Goal,
		Stack:      s.project.Stack,
		Level:      s.project.Level,
		StepNumber: step.Index,
		StepTitle:  step.Title,
		StepDesc:   step.Description,
	})
	if err != nil {
		return err
	}
	if len(quizzes) == 0 {
		return fmt.Errorf("step %d: generation returned no quizzes", step.Index)
	}
	step.Quizzes = quizzes
	return nil
}

// CurrentStep returns the open step, or nil.
func (s *Session) CurrentStep() *roadmap.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return nil
	}
	return s.run.step
}

// CurrentQuiz returns the active quiz item and its zero-based position.
func (s *Session) CurrentQuiz() (*roadmap.Quiz, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil || s.run.quizIndex >= len(s.run.step.Quizzes) {
		return nil, 0
	}
	return &s.run.step.Quizzes[s.run.quizIndex], s.run.quizIndex
}

// SubmitAnswer records the answer for the current quiz item and scores it
// locally. Submission is one-way: a second submit for the same item is
// rejected. Submitting the final item tallies the step and records the
// score through the tracker; a failed save still completes the step, with
// the score queued for retry.
func (s *Session) SubmitAnswer(ctx context.Context, option int) (*AnswerResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.phase != PhaseStepInProgress || s.run == nil {
		s.mu.Unlock()
		return nil, ErrBadPhase
	}
	run := s.run
	quiz := &run.step.Quizzes[run.quizIndex]
	if option < 0 || option >= len(quiz.Options) {
		s.mu.Unlock()
		return nil, fmt.Errorf("option %d out of range", option)
	}
	if run.submitted[run.quizIndex] {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}

	run.submitted[run.quizIndex] = true
	run.answers[run.quizIndex] = option
	correct := option == quiz.AnswerIndex
	if correct {
		run.correct++
	}
	last := run.quizIndex == len(run.step.Quizzes)-1

	res := &AnswerResult{
		Correct:      correct,
		CorrectIndex: quiz.AnswerIndex,
		Explanation:  quiz.Explanation,
		StepDone:     last,
	}
	if !last {
		s.mu.Unlock()
		return res, nil
	}

	// Final item: tally and persist before the completion screen can be
	// left behind.
	s.busy = true
	correctTotal := run.correct
	total := len(run.step.Quizzes)
	stepIndex := run.step.Index
	s.mu.Unlock()

	score, err := s.tracker.RecordScore(ctx, stepIndex, correctTotal, total)
	if err != nil && (isUnauthorized(err) || !isPersistence(err)) {
		// A rejected credential is never a retryable save: the 401 hard
		// path wins over the persistence-retry path.
		s.fail(PhaseStepInProgress, err)
		return nil, err
	}
	res.Score = &score
	res.PersistErr = err

	s.mu.Lock()
	run.step.Score = &score
	s.mu.Unlock()
	s.end(PhaseStepCompleted)
	return res, nil
}

func isPersistence(err error) bool {
	var perr *progress.PersistenceError
	return errors.As(err, &perr)
}

// NextQuiz moves to the next quiz item. Items are answered strictly in
// order: the current item must have been submitted first.
func (s *Session) NextQuiz() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseStepInProgress || s.run == nil {
		return ErrBadPhase
	}
	run := s.run
	if !run.submitted[run.quizIndex] {
		return ErrNotSubmitted
	}
	if run.quizIndex >= len(run.step.Quizzes)-1 {
		return ErrBadPhase
	}
	run.quizIndex++
	return nil
}

// AdvanceStep leaves a completed step: into step i+1 when one exists,
// otherwise AllStepsCompleted. Advancing is blocked while the just-earned
// score is neither persisted nor queued for retry — RecordScore
// guarantees one of the two, so this only re-checks the invariant.
func (s *Session) AdvanceStep(ctx context.Context) (EnterOutcome, error) {
	s.mu.Lock()
	if s.phase != PhaseStepCompleted || s.run == nil {
		s.mu.Unlock()
		return 0, ErrBadPhase
	}
	next := s.run.step.Index + 1
	total := len(s.project.Steps)
	s.mu.Unlock()

	if next > total {
		s.mu.Lock()
		s.run = nil
		s.phase = PhaseAllCompleted
		s.mu.Unlock()
		return Entered, nil
	}
	return s.EnterStep(ctx, next)
}

// RetryPersist re-attempts any score saves that failed earlier.
func (s *Session) RetryPersist(ctx context.Context) error {
	return s.tracker.RetryPending(ctx)
}
