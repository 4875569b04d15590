package gate

import (
	"errors"
	"testing"

	"github.com/kmori/trailmap/internal/roadmap"
)

func TestAccessible_FreeTier(t *testing.T) {
	g := New(DefaultConfig())

	for i := 1; i <= 10; i++ {
		ok, err := g.Accessible(i, roadmap.PlanFree)
		if err != nil {
			t.Fatalf("Accessible(%d, free): %v", i, err)
		}
		want := i < 4
		if ok != want {
			t.Errorf("Accessible(%d, free) = %v, want %v", i, ok, want)
		}
	}
}

func TestAccessible_ProTier(t *testing.T) {
	g := New(DefaultConfig())

	for i := 1; i <= 10; i++ {
		ok, err := g.Accessible(i, roadmap.PlanPro)
		if err != nil {
			t.Fatalf("Accessible(%d, pro): %v", i, err)
		}
		if !ok {
			t.Errorf("Accessible(%d, pro) = false, want true", i)
		}
	}
}

func TestAccessible_InvalidIndex(t *testing.T) {
	g := New(DefaultConfig())

	for _, i := range []int{0, -1, -100} {
		if _, err := g.Accessible(i, roadmap.PlanPro); !errors.Is(err, ErrInvalidStep) {
			t.Errorf("Accessible(%d) err = %v, want ErrInvalidStep", i, err)
		}
	}
}

func TestAccessible_CustomThreshold(t *testing.T) {
	g := New(Config{FreeSteps: 5})

	ok, _ := g.Accessible(5, roadmap.PlanFree)
	if !ok {
		t.Error("step 5 should be free with FreeSteps=5")
	}
	ok, _ = g.Accessible(6, roadmap.PlanFree)
	if ok {
		t.Error("step 6 should be gated with FreeSteps=5")
	}
}
