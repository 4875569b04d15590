package roadmap

import (
	"errors"
	"fmt"
	"testing"
)

func draftWith(n int) *ProposedPlan {
	p := &ProposedPlan{Complexity: "Medium", Stack: "Go, PostgreSQL"}
	for i := 1; i <= n; i++ {
		p.Steps = append(p.Steps, PlanStep{Index: i, Title: fmt.Sprintf("Step %d", i)})
	}
	return p
}

func assertContiguous(t *testing.T, p *ProposedPlan) {
	t.Helper()
	for i, s := range p.Steps {
		if s.Index != i+1 {
			t.Errorf("step at position %d has index %d, want %d", i, s.Index, i+1)
		}
	}
}

func TestAddStep(t *testing.T) {
	p := draftWith(3)

	if err := p.AddStep("  Deploy to production  "); err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if len(p.Steps) != 4 {
		t.Fatalf("len(Steps) = %d, want 4", len(p.Steps))
	}
	if p.Steps[3].Title != "Deploy to production" {
		t.Errorf("title = %q, want trimmed", p.Steps[3].Title)
	}
	assertContiguous(t, p)
}

func TestAddStep_AtLimit(t *testing.T) {
	p := draftWith(MaxPlanSteps)

	err := p.AddStep("one too many")
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("err = %v, want ErrStepLimit", err)
	}
	if len(p.Steps) != MaxPlanSteps {
		t.Errorf("len(Steps) = %d, want %d", len(p.Steps), MaxPlanSteps)
	}
}

func TestRemoveStep_RenumbersContiguously(t *testing.T) {
	// Removing any step from any draft size must leave indices 1..N-1.
	for n := 2; n <= MaxPlanSteps; n++ {
		for remove := 1; remove <= n; remove++ {
			p := draftWith(n)
			if err := p.RemoveStep(remove); err != nil {
				t.Fatalf("n=%d remove=%d: %v", n, remove, err)
			}
			if len(p.Steps) != n-1 {
				t.Fatalf("n=%d remove=%d: len = %d", n, remove, len(p.Steps))
			}
			assertContiguous(t, p)
		}
	}
}

func TestRemoveStep_KeepsRemainingTitles(t *testing.T) {
	p := draftWith(3)

	if err := p.RemoveStep(2); err != nil {
		t.Fatalf("RemoveStep: %v", err)
	}
	if p.Steps[0].Title != "Step 1" || p.Steps[1].Title != "Step 3" {
		t.Errorf("titles = %q, %q; want Step 1, Step 3", p.Steps[0].Title, p.Steps[1].Title)
	}
}

func TestRemoveStep_LastRemaining(t *testing.T) {
	p := draftWith(1)

	err := p.RemoveStep(1)
	if !errors.Is(err, ErrMinSteps) {
		t.Fatalf("err = %v, want ErrMinSteps", err)
	}
	if len(p.Steps) != 1 {
		t.Errorf("len(Steps) = %d, want 1", len(p.Steps))
	}
}

func TestRemoveStep_OutOfRange(t *testing.T) {
	p := draftWith(3)

	for _, idx := range []int{0, -1, 4} {
		if err := p.RemoveStep(idx); !errors.Is(err, ErrNoSuchStep) {
			t.Errorf("RemoveStep(%d) = %v, want ErrNoSuchStep", idx, err)
		}
	}
}

func TestRetitle(t *testing.T) {
	p := draftWith(2)

	if err := p.Retitle(2, "Harden authentication"); err != nil {
		t.Fatalf("Retitle: %v", err)
	}
	if p.Steps[1].Title != "Harden authentication" {
		t.Errorf("title = %q", p.Steps[1].Title)
	}
	if err := p.Retitle(5, "x"); !errors.Is(err, ErrNoSuchStep) {
		t.Errorf("Retitle(5) = %v, want ErrNoSuchStep", err)
	}
}

func TestStepByIndex(t *testing.T) {
	proj := &Project{Steps: []Step{{Index: 1, Title: "a"}, {Index: 2, Title: "b"}}}

	if s := proj.StepByIndex(2); s == nil || s.Title != "b" {
		t.Errorf("StepByIndex(2) = %+v", s)
	}
	if s := proj.StepByIndex(9); s != nil {
		t.Errorf("StepByIndex(9) = %+v, want nil", s)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobPending.Terminal() || JobRunning.Terminal() {
		t.Error("pending/processing must not be terminal")
	}
	if !JobCompleted.Terminal() || !JobFailed.Terminal() {
		t.Error("completed/failed must be terminal")
	}
}
