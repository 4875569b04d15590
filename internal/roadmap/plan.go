package roadmap

import (
	"errors"
	"strings"
)

// Plan-editing bounds. The proposal endpoint returns 3-7 steps; the user
// may grow the draft up to MaxPlanSteps before generating.
const (
	MaxPlanSteps = 10
	MinPlanSteps = 1
)

var (
	// ErrStepLimit is returned when adding a step to a full draft.
	ErrStepLimit = errors.New("plan already has the maximum number of steps")

	// ErrMinSteps is returned when removing the last remaining step.
	ErrMinSteps = errors.New("plan must keep at least one step")

	// ErrNoSuchStep is returned when an edit targets an index outside 1..N.
	ErrNoSuchStep = errors.New("no step with that index")
)

// PlanStep is one proposed step title in a roadmap draft.
type PlanStep struct {
	Index int    `json:"step"`
	Title string `json:"title"`
}

// ProposedPlan is the editable roadmap draft returned by the proposal
// endpoint, before the full roadmap is generated.
type ProposedPlan struct {
	Complexity string     `json:"complexity"`
	Stack      string     `json:"stack"`
	Reason     string     `json:"reason"`
	Steps      []PlanStep `json:"steps"`
}

// SetStack replaces the draft's stack description.
func (p *ProposedPlan) SetStack(stack string) {
	p.Stack = strings.TrimSpace(stack)
}

// Retitle changes the title of the step at the given 1-based index.
func (p *ProposedPlan) Retitle(index int, title string) error {
	if index < 1 || index > len(p.Steps) {
		return ErrNoSuchStep
	}
	p.Steps[index-1].Title = strings.TrimSpace(title)
	return nil
}

// AddStep appends a new step with the given title. Fails with ErrStepLimit
// once the draft holds MaxPlanSteps steps.
func (p *ProposedPlan) AddStep(title string) error {
	if len(p.Steps) >= MaxPlanSteps {
		return ErrStepLimit
	}
	p.Steps = append(p.Steps, PlanStep{
		Index: len(p.Steps) + 1,
		Title: strings.TrimSpace(title),
	})
	return nil
}

// RemoveStep deletes the step at the given 1-based index and renumbers the
// remainder so indices stay contiguous 1..N. Fails with ErrMinSteps if the
// removal would leave an empty draft.
func (p *ProposedPlan) RemoveStep(index int) error {
	if index < 1 || index > len(p.Steps) {
		return ErrNoSuchStep
	}
	if len(p.Steps) <= MinPlanSteps {
		return ErrMinSteps
	}
	p.Steps = append(p.Steps[:index-1], p.Steps[index:]...)
	p.renumber()
	return nil
}

// renumber rewrites indices to the contiguous sequence 1..N.
func (p *ProposedPlan) renumber() {
	for i := range p.Steps {
		p.Steps[i].Index = i + 1
	}
}
