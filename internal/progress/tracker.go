// Package progress owns the per-project mapping from step index to
// completion score. The backend is the system of record; the tracker is a
// session-scoped cache seeded from the roadmap payload at start.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kmori/trailmap/internal/roadmap"
)

// ScoreStore persists a step score durably. In production this is the
// backend's score-save endpoint; tests inject fakes.
type ScoreStore interface {
	SaveScore(ctx context.Context, stepIndex int, score roadmap.Score) error
}

// ErrInvalidResult is returned for malformed record calls (bad step index
// or counts). These never happen through normal quiz traversal.
var ErrInvalidResult = errors.New("invalid score result")

// PersistenceError indicates the score save failed. The in-memory record
// is retained, so the caller can retry without losing the user's result.
type PersistenceError struct {
	StepIndex int
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist score for step %d: %v", e.StepIndex, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Tracker maps step index to the recorded Score for one project. Owned by
// a single session; plain sequential access, no locking.
type Tracker struct {
	store   ScoreStore
	scores  map[int]roadmap.Score
	pending map[int]bool // recorded locally but not yet persisted
}

// NewTracker creates an empty Tracker backed by the given store.
func NewTracker(store ScoreStore) *Tracker {
	return &Tracker{
		store:   store,
		scores:  make(map[int]roadmap.Score),
		pending: make(map[int]bool),
	}
}

// Reconcile seeds the tracker from a freshly fetched roadmap, replacing
// any local state. Called at session start.
func (t *Tracker) Reconcile(steps []roadmap.Step) {
	t.scores = make(map[int]roadmap.Score)
	t.pending = make(map[int]bool)
	for _, s := range steps {
		if s.Score != nil {
			t.scores[s.Index] = *s.Score
		}
	}
}

// RecordScore computes the percentage, stores the score keyed by step
// index, and persists it. A retake overwrites the prior record. If
// persistence fails the in-memory record is kept, the step is marked
// pending, and the call returns a PersistenceError.
func (t *Tracker) RecordScore(ctx context.Context, stepIndex, correct, total int) (roadmap.Score, error) {
	if stepIndex < 1 || total <= 0 || correct < 0 || correct > total {
		return roadmap.Score{}, ErrInvalidResult
	}

	score := roadmap.Score{
		Correct:    correct,
		Total:      total,
		Percentage: int(math.Round(100 * float64(correct) / float64(total))),
	}
	t.scores[stepIndex] = score

	if err := t.store.SaveScore(ctx, stepIndex, score); err != nil {
		t.pending[stepIndex] = true
		return score, &PersistenceError{StepIndex: stepIndex, Err: err}
	}
	delete(t.pending, stepIndex)
	return score, nil
}

// Score returns the recorded score for a step, if any.
func (t *Tracker) Score(stepIndex int) (roadmap.Score, bool) {
	s, ok := t.scores[stepIndex]
	return s, ok
}

// Completed returns the number of steps with a recorded score.
func (t *Tracker) Completed() int {
	return len(t.scores)
}

// CompletionRatio returns completed steps over totalSteps, in [0, 1].
func (t *Tracker) CompletionRatio(totalSteps int) float64 {
	if totalSteps <= 0 {
		return 0
	}
	return float64(len(t.scores)) / float64(totalSteps)
}

// HasPending reports whether any recorded score still awaits persistence.
func (t *Tracker) HasPending() bool {
	return len(t.pending) > 0
}

// RetryPending re-attempts persistence for every pending score. Stops at
// the first failure so the caller can surface one retryable error.
func (t *Tracker) RetryPending(ctx context.Context) error {
	for idx := range t.pending {
		if err := t.store.SaveScore(ctx, idx, t.scores[idx]); err != nil {
			return &PersistenceError{StepIndex: idx, Err: err}
		}
		delete(t.pending, idx)
	}
	return nil
}
