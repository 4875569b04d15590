package session

import (
	"context"
	"errors"
	"testing"

	"github.com/kmori/trailmap/internal/api"
	"github.com/kmori/trailmap/internal/progress"
	"github.com/kmori/trailmap/internal/roadmap"
)

// readySession returns a session holding a generated roadmap.
func readySession(t *testing.T, b *fakeBackend, plan roadmap.Plan, scores progress.ScoreStore) *Session {
	t.Helper()
	s := newTestSession(b, plan, scores)
	t.Cleanup(s.Close)
	if err := s.Resume(b.project); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	return s
}

func TestEnterStep_GatedStepExposesPaywall(t *testing.T) {
	b := &fakeBackend{project: testProject(5, true)}
	s := readySession(t, b, roadmap.PlanFree, nil)

	outcome, err := s.EnterStep(context.Background(), 4)
	if err != nil {
		t.Fatalf("EnterStep: %v", err)
	}
	if outcome != Locked {
		t.Fatalf("outcome = %v, want Locked", outcome)
	}
	// No quiz data fetched and no phase change for a locked step.
	if s.Phase() != PhaseRoadmapReady {
		t.Errorf("phase = %v, want roadmap-ready", s.Phase())
	}
	if b.quizCalls != 0 {
		t.Errorf("quiz generation called %d times for a locked step", b.quizCalls)
	}
}

func TestEnterStep_ProOpensEverything(t *testing.T) {
	b := &fakeBackend{project: testProject(5, true)}
	s := readySession(t, b, roadmap.PlanPro, nil)

	outcome, err := s.EnterStep(context.Background(), 5)
	if err != nil || outcome != Entered {
		t.Fatalf("EnterStep(5) = %v, %v", outcome, err)
	}
	if s.Phase() != PhaseStepInProgress {
		t.Errorf("phase = %v", s.Phase())
	}
}

func TestEnterStep_NoSuchStep(t *testing.T) {
	b := &fakeBackend{project: testProject(3, true)}
	s := readySession(t, b, roadmap.PlanFree, nil)

	if _, err := s.EnterStep(context.Background(), 9); !errors.Is(err, roadmap.ErrNoSuchStep) {
		t.Errorf("err = %v, want ErrNoSuchStep", err)
	}
}

func TestEnterStep_LazyQuizGeneration(t *testing.T) {
	b := &fakeBackend{project: testProject(3, false), quizzes: quizSet(roadmap.QuizzesPerStep)}
	s := readySession(t, b, roadmap.PlanFree, nil)

	outcome, err := s.EnterStep(context.Background(), 1)
	if err != nil || outcome != Entered {
		t.Fatalf("EnterStep = %v, %v", outcome, err)
	}
	if b.quizCalls != 1 {
		t.Errorf("quizCalls = %d, want 1", b.quizCalls)
	}
	if got := len(s.CurrentStep().Quizzes); got != roadmap.QuizzesPerStep {
		t.Errorf("quizzes = %d", got)
	}

	// Re-entering reuses the generated set.
	if _, err := s.EnterStep(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if b.quizCalls != 1 {
		t.Errorf("quizCalls = %d after revisit, want 1", b.quizCalls)
	}
}

func TestSubmitAnswer_InOrderAndOneWay(t *testing.T) {
	b := &fakeBackend{project: testProject(2, true)}
	s := readySession(t, b, roadmap.PlanFree, nil)
	if _, err := s.EnterStep(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	// Cannot advance before submitting.
	if err := s.NextQuiz(); !errors.Is(err, ErrNotSubmitted) {
		t.Fatalf("NextQuiz before submit = %v", err)
	}

	quiz, idx := s.CurrentQuiz()
	if idx != 0 || quiz == nil {
		t.Fatalf("CurrentQuiz = %v, %d", quiz, idx)
	}

	res, err := s.SubmitAnswer(context.Background(), quiz.AnswerIndex)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.Correct || res.StepDone {
		t.Errorf("res = %+v", res)
	}

	// One-way: resubmission rejected.
	if _, err := s.SubmitAnswer(context.Background(), 0); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("resubmit = %v, want ErrAlreadySubmitted", err)
	}

	if err := s.NextQuiz(); err != nil {
		t.Fatalf("NextQuiz: %v", err)
	}
	if _, idx := s.CurrentQuiz(); idx != 1 {
		t.Errorf("quiz index = %d, want 1", idx)
	}
}

func TestSubmitAnswer_FinalItemRecordsScore(t *testing.T) {
	scores := &fakeScores{}
	b := &fakeBackend{project: testProject(2, true)}
	s := readySession(t, b, roadmap.PlanFree, scores)
	if _, err := s.EnterStep(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	// Step 1 has 3 items; answer the first two correctly, the last wrong.
	for i := 0; i < 2; i++ {
		quiz, _ := s.CurrentQuiz()
		if _, err := s.SubmitAnswer(context.Background(), quiz.AnswerIndex); err != nil {
			t.Fatal(err)
		}
		if err := s.NextQuiz(); err != nil {
			t.Fatal(err)
		}
	}
	quiz, _ := s.CurrentQuiz()
	wrong := (quiz.AnswerIndex + 1) % roadmap.QuizOptionCount
	res, err := s.SubmitAnswer(context.Background(), wrong)
	if err != nil {
		t.Fatalf("final SubmitAnswer: %v", err)
	}

	if !res.StepDone || res.Score == nil {
		t.Fatalf("res = %+v", res)
	}
	if res.Score.Correct != 2 || res.Score.Total != 3 || res.Score.Percentage != 67 {
		t.Errorf("score = %+v", res.Score)
	}
	if s.Phase() != PhaseStepCompleted {
		t.Errorf("phase = %v", s.Phase())
	}
	if scores.saved[1] != *res.Score {
		t.Errorf("persisted = %+v", scores.saved[1])
	}
}

func TestSubmitAnswer_PersistFailureQueuesRetry(t *testing.T) {
	scores := &fakeScores{fail: true}
	b := &fakeBackend{project: testProject(1, true)}
	s := readySession(t, b, roadmap.PlanFree, scores)
	if _, err := s.EnterStep(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	var res *AnswerResult
	for {
		quiz, _ := s.CurrentQuiz()
		r, err := s.SubmitAnswer(context.Background(), quiz.AnswerIndex)
		if err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
		if r.StepDone {
			res = r
			break
		}
		if err := s.NextQuiz(); err != nil {
			t.Fatal(err)
		}
	}

	var perr *progress.PersistenceError
	if !errors.As(res.PersistErr, &perr) {
		t.Fatalf("PersistErr = %v, want PersistenceError", res.PersistErr)
	}
	// Step still completes; score retained locally and queued.
	if s.Phase() != PhaseStepCompleted {
		t.Errorf("phase = %v", s.Phase())
	}
	if !s.Progress().HasPending() {
		t.Error("expected pending persistence")
	}

	scores.fail = false
	if err := s.RetryPersist(context.Background()); err != nil {
		t.Fatalf("RetryPersist: %v", err)
	}
	if scores.saved[1].Percentage != 100 {
		t.Errorf("retried save = %+v", scores.saved[1])
	}
}

func TestSubmitAnswer_UnauthorizedOnScoreSave(t *testing.T) {
	scores := &fakeScores{err: api.ErrUnauthorized}
	b := &fakeBackend{project: testProject(1, true)}
	s := readySession(t, b, roadmap.PlanFree, scores)
	if _, err := s.EnterStep(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	var err error
	for {
		quiz, _ := s.CurrentQuiz()
		var res *AnswerResult
		res, err = s.SubmitAnswer(context.Background(), quiz.AnswerIndex)
		if err != nil || res.StepDone {
			break
		}
		if e := s.NextQuiz(); e != nil {
			t.Fatal(e)
		}
	}

	// The rejected credential outranks the persistence-retry path: the
	// final submission fails outright instead of completing the step.
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("final submit = %v, want ErrUnauthorized", err)
	}
	if s.Phase() != PhaseUnauthorized {
		t.Errorf("phase = %v, want unauthorized", s.Phase())
	}
}

func TestAdvanceStep_SequentialTraversal(t *testing.T) {
	b := &fakeBackend{project: testProject(2, true)}
	s := readySession(t, b, roadmap.PlanFree, nil)

	completeStep := func() {
		t.Helper()
		for {
			quiz, _ := s.CurrentQuiz()
			res, err := s.SubmitAnswer(context.Background(), quiz.AnswerIndex)
			if err != nil {
				t.Fatal(err)
			}
			if res.StepDone {
				return
			}
			if err := s.NextQuiz(); err != nil {
				t.Fatal(err)
			}
		}
	}

	if _, err := s.EnterStep(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	completeStep()

	outcome, err := s.AdvanceStep(context.Background())
	if err != nil || outcome != Entered {
		t.Fatalf("AdvanceStep = %v, %v", outcome, err)
	}
	if s.CurrentStep().Index != 2 {
		t.Errorf("current step = %d, want 2", s.CurrentStep().Index)
	}
	completeStep()

	if _, err := s.AdvanceStep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseAllCompleted {
		t.Errorf("phase = %v, want all-completed", s.Phase())
	}
	if r := s.Progress().CompletionRatio(2); r != 1.0 {
		t.Errorf("ratio = %f", r)
	}
}

func TestRevisit_OverwritesScore(t *testing.T) {
	scores := &fakeScores{}
	b := &fakeBackend{project: testProject(1, true)}
	s := readySession(t, b, roadmap.PlanFree, scores)

	run := func(correctAnswers bool) *roadmap.Score {
		t.Helper()
		if _, err := s.EnterStep(context.Background(), 1); err != nil {
			t.Fatal(err)
		}
		for {
			quiz, _ := s.CurrentQuiz()
			answer := quiz.AnswerIndex
			if !correctAnswers {
				answer = (answer + 1) % roadmap.QuizOptionCount
			}
			res, err := s.SubmitAnswer(context.Background(), answer)
			if err != nil {
				t.Fatal(err)
			}
			if res.StepDone {
				return res.Score
			}
			if err := s.NextQuiz(); err != nil {
				t.Fatal(err)
			}
		}
	}

	first := run(false)
	if first.Percentage != 0 {
		t.Fatalf("first run = %+v", first)
	}
	second := run(true)
	if second.Percentage != 100 {
		t.Fatalf("second run = %+v", second)
	}
	if got, _ := s.Progress().Score(1); got != *second {
		t.Errorf("stored = %+v, want overwritten %+v", got, *second)
	}
}
