package roadmap

import "time"

// Level is the learner's self-reported experience level.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Plan is the subscription tier gating step access.
// Distinct from ProposedPlan, which is the roadmap draft.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// QuizOptionCount is the fixed number of options per quiz item.
const QuizOptionCount = 4

// QuizzesPerStep is the target number of quiz items generated per step.
const QuizzesPerStep = 10

// Quiz is one multiple-choice question belonging to a step.
// Immutable once generated.
type Quiz struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// Score records the result of completing all quiz items in a step.
type Score struct {
	Correct    int `json:"score"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Step is one ordered unit of a project's roadmap. Index is 1-based,
// contiguous and unique within the roadmap. Quizzes may be generated
// lazily on first visit.
type Step struct {
	Index       int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Quizzes     []Quiz `json:"quizzes,omitempty"`
	Score       *Score `json:"score,omitempty"`
}

// Project is one user's learning-goal request with its generated roadmap.
type Project struct {
	ID         int64     `json:"id"`
	Goal       string    `json:"goal"`
	Stack      string    `json:"stack"`
	Level      Level     `json:"level"`
	Complexity string    `json:"complexity"`
	Steps      []Step    `json:"roadmap"`
	CreatedAt  time.Time `json:"created_at"`
}

// StepByIndex returns the step with the given 1-based index, or nil.
func (p *Project) StepByIndex(i int) *Step {
	for n := range p.Steps {
		if p.Steps[n].Index == i {
			return &p.Steps[n]
		}
	}
	return nil
}

// JobStatus is the lifecycle state of a backend generation job.
// Completed and Failed are terminal; a job never leaves a terminal state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "processing"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}
