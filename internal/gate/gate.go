// Package gate decides whether a roadmap step is reachable for a given
// subscription tier. Decisions are a pure function of (step index, plan);
// no I/O and no hidden state.
package gate

import (
	"errors"

	"github.com/kmori/trailmap/internal/roadmap"
)

// ErrInvalidStep is returned for step indices below 1. Step indices are
// 1-based everywhere; a zero or negative index is a programming error in
// the caller, not a user action.
var ErrInvalidStep = errors.New("step index must be >= 1")

// DefaultFreeSteps is how many leading steps the free tier can open.
const DefaultFreeSteps = 3

// Config carries the gating policy. The threshold is configuration, not
// business logic baked into callers.
type Config struct {
	// FreeSteps is the number of leading steps accessible without a pro
	// subscription. Steps with index > FreeSteps require PlanPro.
	FreeSteps int
}

// DefaultConfig returns the policy observed in production: free tier sees
// the first three steps.
func DefaultConfig() Config {
	return Config{FreeSteps: DefaultFreeSteps}
}

// Gate evaluates step accessibility under a fixed policy.
type Gate struct {
	cfg Config
}

// New creates a Gate with the given policy.
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Accessible reports whether the step at the given 1-based index is open
// for the plan. Pro opens every step; free opens indices 1..FreeSteps.
func (g *Gate) Accessible(stepIndex int, plan roadmap.Plan) (bool, error) {
	if stepIndex < 1 {
		return false, ErrInvalidStep
	}
	if plan == roadmap.PlanPro {
		return true, nil
	}
	return stepIndex <= g.cfg.FreeSteps, nil
}
