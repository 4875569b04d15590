package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kmori/trailmap/internal/api"
	"github.com/kmori/trailmap/internal/gate"
	"github.com/kmori/trailmap/internal/progress"
	"github.com/kmori/trailmap/internal/roadmap"
)

// fakeBackend scripts generation results for the session under test.
type fakeBackend struct {
	plan       *roadmap.ProposedPlan
	project    *roadmap.Project
	quizzes    []roadmap.Quiz
	proposeErr error
	genErr     error
	quizErr    error

	proposeCalls int
	genCalls     int
	quizCalls    int

	block chan struct{} // when set, ProposePlan parks until closed
}

func (f *fakeBackend) ProposePlan(ctx context.Context, req api.ProposeRequest) (*roadmap.ProposedPlan, error) {
	f.proposeCalls++
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.proposeErr != nil {
		return nil, f.proposeErr
	}
	return f.plan, nil
}

func (f *fakeBackend) GenerateRoadmap(ctx context.Context, req api.GenerateRoadmapRequest) (*roadmap.Project, error) {
	f.genCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	return f.project, nil
}

func (f *fakeBackend) GenerateStepQuiz(ctx context.Context, req api.GenerateStepQuizRequest) ([]roadmap.Quiz, error) {
	f.quizCalls++
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	return f.quizzes, nil
}

type fakeScores struct {
	saved map[int]roadmap.Score
	fail  bool
	err   error // returned verbatim when set, unlike the generic fail
}

func (f *fakeScores) SaveScore(_ context.Context, stepIndex int, score roadmap.Score) error {
	if f.err != nil {
		return f.err
	}
	if f.fail {
		return errors.New("save failed")
	}
	if f.saved == nil {
		f.saved = make(map[int]roadmap.Score)
	}
	f.saved[stepIndex] = score
	return nil
}

func quizSet(n int) []roadmap.Quiz {
	qs := make([]roadmap.Quiz, n)
	for i := range qs {
		qs[i] = roadmap.Quiz{
			Question:    fmt.Sprintf("Q%d", i+1),
			Options:     []string{"a", "b", "c", "d"},
			AnswerIndex: i % roadmap.QuizOptionCount,
			Explanation: "because",
		}
	}
	return qs
}

func testProject(steps int, withQuizzes bool) *roadmap.Project {
	p := &roadmap.Project{ID: 1, Goal: "Build a todo app", Stack: "Go", Level: roadmap.LevelBeginner}
	for i := 1; i <= steps; i++ {
		st := roadmap.Step{Index: i, Title: fmt.Sprintf("Step %d", i), Description: "..."}
		if withQuizzes {
			st.Quizzes = quizSet(3)
		}
		p.Steps = append(p.Steps, st)
	}
	return p
}

func testPlan(steps int) *roadmap.ProposedPlan {
	p := &roadmap.ProposedPlan{Complexity: "Low", Stack: "Go", Reason: "simple"}
	for i := 1; i <= steps; i++ {
		p.Steps = append(p.Steps, roadmap.PlanStep{Index: i, Title: fmt.Sprintf("Step %d", i)})
	}
	return p
}

func newTestSession(b Backend, plan roadmap.Plan, scores progress.ScoreStore) *Session {
	if scores == nil {
		scores = &fakeScores{}
	}
	return New(b, gate.New(gate.DefaultConfig()), progress.NewTracker(scores), Config{Plan: plan})
}

func TestPropose_EmptyGoal(t *testing.T) {
	s := newTestSession(&fakeBackend{}, roadmap.PlanFree, nil)
	defer s.Close()

	err := s.Propose(context.Background(), "   ", "", roadmap.LevelBeginner)
	if !errors.Is(err, ErrEmptyGoal) {
		t.Fatalf("err = %v, want ErrEmptyGoal", err)
	}
	if s.Phase() != PhaseDrafting {
		t.Errorf("phase = %v, want drafting", s.Phase())
	}
}

func TestPropose_BadLevel(t *testing.T) {
	s := newTestSession(&fakeBackend{}, roadmap.PlanFree, nil)
	defer s.Close()

	if err := s.Propose(context.Background(), "Build a todo app", "", "expert"); !errors.Is(err, ErrBadLevel) {
		t.Fatalf("err = %v, want ErrBadLevel", err)
	}
}

func TestPropose_Success(t *testing.T) {
	b := &fakeBackend{plan: testPlan(4)}
	s := newTestSession(b, roadmap.PlanFree, nil)
	defer s.Close()

	if err := s.Propose(context.Background(), "Build a todo app", "", roadmap.LevelBeginner); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if s.Phase() != PhaseProposed {
		t.Errorf("phase = %v, want proposed", s.Phase())
	}
	if got := len(s.Plan().Steps); got != 4 || got > roadmap.MaxPlanSteps {
		t.Errorf("plan steps = %d", got)
	}
}

func TestEditing_Bounds(t *testing.T) {
	b := &fakeBackend{plan: testPlan(3)}
	s := newTestSession(b, roadmap.PlanFree, nil)
	defer s.Close()
	if err := s.Propose(context.Background(), "Build a todo app", "", roadmap.LevelBeginner); err != nil {
		t.Fatal(err)
	}

	// Grow to the cap, then one more must fail.
	for len(s.Plan().Steps) < roadmap.MaxPlanSteps {
		if err := s.AddStep("extra"); err != nil {
			t.Fatalf("AddStep: %v", err)
		}
	}
	if err := s.AddStep("overflow"); !errors.Is(err, roadmap.ErrStepLimit) {
		t.Errorf("err = %v, want ErrStepLimit", err)
	}

	// Shrink to one, then removal must fail.
	for len(s.Plan().Steps) > 1 {
		if err := s.RemoveStep(1); err != nil {
			t.Fatalf("RemoveStep: %v", err)
		}
	}
	if err := s.RemoveStep(1); !errors.Is(err, roadmap.ErrMinSteps) {
		t.Errorf("err = %v, want ErrMinSteps", err)
	}
	if s.Phase() != PhaseEditing {
		t.Errorf("phase = %v, want editing", s.Phase())
	}
}

func TestEditing_BeforePropose(t *testing.T) {
	s := newTestSession(&fakeBackend{}, roadmap.PlanFree, nil)
	defer s.Close()

	if err := s.AddStep("nope"); !errors.Is(err, ErrBadPhase) {
		t.Errorf("AddStep before propose = %v, want ErrBadPhase", err)
	}
}

func TestDiscard_ReturnsToDrafting(t *testing.T) {
	b := &fakeBackend{plan: testPlan(3)}
	s := newTestSession(b, roadmap.PlanFree, nil)
	defer s.Close()
	s.Propose(context.Background(), "Build a todo app", "", roadmap.LevelBeginner)

	if err := s.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if s.Phase() != PhaseDrafting || s.Plan() != nil {
		t.Errorf("phase = %v, plan = %v", s.Phase(), s.Plan())
	}
}

func TestGenerate_FailureStaysEditing(t *testing.T) {
	b := &fakeBackend{plan: testPlan(3), genErr: &api.JobFailedError{Reason: "quota"}}
	s := newTestSession(b, roadmap.PlanFree, nil)
	defer s.Close()
	s.Propose(context.Background(), "Build a todo app", "", roadmap.LevelBeginner)

	err := s.Generate(context.Background())
	var jobErr *api.JobFailedError
	if !errors.As(err, &jobErr) {
		t.Fatalf("err = %v, want JobFailedError", err)
	}
	if s.Phase() != PhaseEditing {
		t.Errorf("phase = %v, want editing (retry in place)", s.Phase())
	}

	// Retry after the backend recovers.
	b.genErr = nil
	b.project = testProject(3, true)
	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate retry: %v", err)
	}
	if s.Phase() != PhaseRoadmapReady {
		t.Errorf("phase = %v, want roadmap-ready", s.Phase())
	}
}

func TestBusyGuard_RejectsConcurrentPropose(t *testing.T) {
	b := &fakeBackend{plan: testPlan(3), block: make(chan struct{})}
	s := newTestSession(b, roadmap.PlanFree, nil)
	defer s.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.Propose(context.Background(), "Build a todo app", "", roadmap.LevelBeginner)
	}()

	// Wait for the first call to park inside the backend.
	deadline := time.After(time.Second)
	for b.proposeCalls == 0 {
		select {
		case <-deadline:
			t.Fatal("first propose never reached the backend")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := s.Propose(context.Background(), "another goal", "", roadmap.LevelBeginner); !errors.Is(err, ErrBusy) {
		t.Errorf("second propose = %v, want ErrBusy", err)
	}

	close(b.block)
	if err := <-done; err != nil {
		t.Fatalf("first propose: %v", err)
	}
	if b.proposeCalls != 1 {
		t.Errorf("backend saw %d proposals, want 1 (duplicate coalesced)", b.proposeCalls)
	}
}

func TestUnauthorized_ForcesHardTransition(t *testing.T) {
	b := &fakeBackend{proposeErr: api.ErrUnauthorized}
	s := newTestSession(b, roadmap.PlanFree, nil)
	defer s.Close()

	err := s.Propose(context.Background(), "Build a todo app", "", roadmap.LevelBeginner)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if s.Phase() != PhaseUnauthorized {
		t.Errorf("phase = %v, want unauthorized", s.Phase())
	}
	// Nothing works after the hard transition.
	if err := s.Propose(context.Background(), "again", "", roadmap.LevelBeginner); !errors.Is(err, ErrBadPhase) {
		t.Errorf("post-logout propose = %v, want ErrBadPhase", err)
	}
}

func TestInvalidate_KillsSessionFromOutside(t *testing.T) {
	b := &fakeBackend{project: testProject(2, true)}
	s := newTestSession(b, roadmap.PlanFree, nil)
	defer s.Close()
	if err := s.Resume(b.project); err != nil {
		t.Fatal(err)
	}

	// A logout hook fires outside any session operation.
	s.Invalidate()

	if s.Phase() != PhaseUnauthorized {
		t.Fatalf("phase = %v, want unauthorized", s.Phase())
	}
	select {
	case <-s.Context().Done():
	default:
		t.Error("session context still live; in-flight polling would continue")
	}
	if _, err := s.EnterStep(context.Background(), 1); !errors.Is(err, ErrBadPhase) {
		t.Errorf("EnterStep after invalidate = %v, want ErrBadPhase", err)
	}
	if err := s.Propose(context.Background(), "again", "", roadmap.LevelBeginner); !errors.Is(err, ErrBadPhase) {
		t.Errorf("Propose after invalidate = %v, want ErrBadPhase", err)
	}
}

func TestResume_ReconcilesScores(t *testing.T) {
	project := testProject(3, true)
	project.Steps[0].Score = &roadmap.Score{Correct: 2, Total: 3, Percentage: 67}
	s := newTestSession(&fakeBackend{}, roadmap.PlanFree, nil)
	defer s.Close()

	if err := s.Resume(project); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s.Phase() != PhaseRoadmapReady {
		t.Errorf("phase = %v", s.Phase())
	}
	if got, ok := s.Progress().Score(1); !ok || got.Percentage != 67 {
		t.Errorf("Score(1) = %+v, %v", got, ok)
	}
	if r := s.Progress().CompletionRatio(3); r < 0.33 || r > 0.34 {
		t.Errorf("ratio = %f", r)
	}
}
