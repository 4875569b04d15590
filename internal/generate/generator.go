// Package generate produces plans, roadmaps, and quizzes with a model
// provider directly, serving as the session backend when no roadmap
// service is configured. Generated projects are cached in the local
// store so quizzes survive restarts.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kmori/trailmap/internal/api"
	"github.com/kmori/trailmap/internal/llm"
	"github.com/kmori/trailmap/internal/roadmap"
	"github.com/kmori/trailmap/internal/store"
)

// Config tunes the generation calls.
type Config struct {
	MaxTokens   int
	Temperature float64
	Locale      string
}

// DefaultConfig returns generation defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   8192,
		Temperature: 0.7,
		Locale:      "en",
	}
}

// Generator drives the model provider for the three generation calls.
// With a project repo attached, roadmaps are persisted on creation and
// quizzes are cached back onto their step.
type Generator struct {
	provider llm.Provider
	projects store.ProjectRepo
	cfg      Config
}

// New creates a Generator. projects may be nil to disable caching.
func New(provider llm.Provider, projects store.ProjectRepo, cfg Config) *Generator {
	return &Generator{provider: provider, projects: projects, cfg: cfg}
}

type planOutput struct {
	Complexity string `json:"complexity"`
	Stack      string `json:"stack"`
	Reason     string `json:"reason"`
	Steps      []struct {
		Step  int    `json:"step"`
		Title string `json:"title"`
	} `json:"steps"`
}

// ProposePlan drafts a stack proposal and step titles for the goal.
func (g *Generator) ProposePlan(ctx context.Context, req api.ProposeRequest) (*roadmap.ProposedPlan, error) {
	ctx = llm.WithPurpose(ctx, "propose-plan")

	resp, err := g.provider.Complete(ctx, llm.Request{
		System:      mentorSystemPrompt,
		Prompt:      buildPlanPrompt(req.Goal, req.Stack, req.Level, g.locale(req.Locale)),
		Schema:      PlanSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("propose plan: %w", err)
	}

	var raw planOutput
	if err := json.Unmarshal(stripFences(resp.Content), &raw); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(raw.Steps) == 0 {
		return nil, fmt.Errorf("propose plan: no steps generated")
	}

	plan := &roadmap.ProposedPlan{
		Complexity: raw.Complexity,
		Stack:      raw.Stack,
		Reason:     raw.Reason,
	}
	// Renumber defensively; the session relies on contiguous 1..N.
	for i, s := range raw.Steps {
		plan.Steps = append(plan.Steps, roadmap.PlanStep{Index: i + 1, Title: s.Title})
	}
	return plan, nil
}

type roadmapOutput struct {
	Roadmap []struct {
		Step        int    `json:"step"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"roadmap"`
}

// GenerateRoadmap expands the approved plan into a full project and
// caches it.
func (g *Generator) GenerateRoadmap(ctx context.Context, req api.GenerateRoadmapRequest) (*roadmap.Project, error) {
	ctx = llm.WithPurpose(ctx, "roadmap")

	resp, err := g.provider.Complete(ctx, llm.Request{
		System:      mentorSystemPrompt,
		Prompt:      buildRoadmapPrompt(req.Goal, req.Stack, req.Level, req.PlanSteps, g.locale(req.Locale)),
		Schema:      RoadmapSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate roadmap: %w", err)
	}

	var raw roadmapOutput
	if err := json.Unmarshal(stripFences(resp.Content), &raw); err != nil {
		return nil, fmt.Errorf("parse roadmap: %w", err)
	}
	if len(raw.Roadmap) == 0 {
		return nil, fmt.Errorf("generate roadmap: no steps generated")
	}

	project := &roadmap.Project{
		Goal:      req.Goal,
		Stack:     req.Stack,
		Level:     req.Level,
		CreatedAt: time.Now(),
	}
	for i, s := range raw.Roadmap {
		project.Steps = append(project.Steps, roadmap.Step{
			Index:       i + 1,
			Title:       s.Title,
			Description: s.Description,
		})
	}

	if g.projects != nil {
		if err := g.projects.Save(ctx, project); err != nil {
			return nil, fmt.Errorf("cache roadmap: %w", err)
		}
	}
	return project, nil
}

type quizOutput struct {
	Quizzes []roadmap.Quiz `json:"quizzes"`
}

// GenerateStepQuiz produces the quiz set for one step and caches it onto
// the latest stored project when one matches.
func (g *Generator) GenerateStepQuiz(ctx context.Context, req api.GenerateStepQuizRequest) ([]roadmap.Quiz, error) {
	ctx = llm.WithPurpose(ctx, "step-quiz")

	resp, err := g.provider.Complete(ctx, llm.Request{
		System:      mentorSystemPrompt,
		Prompt:      buildQuizPrompt(req.Goal, req.Stack, req.Level, req.StepNumber, req.StepTitle, req.StepDesc, g.locale(req.Locale)),
		Schema:      QuizSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	var raw quizOutput
	if err := json.Unmarshal(stripFences(resp.Content), &raw); err != nil {
		return nil, fmt.Errorf("parse quiz: %w", err)
	}
	if len(raw.Quizzes) == 0 {
		return nil, fmt.Errorf("generate quiz: no quizzes generated")
	}
	for i, q := range raw.Quizzes {
		if len(q.Options) != roadmap.QuizOptionCount {
			return nil, fmt.Errorf("quiz %d: %d options, want %d", i+1, len(q.Options), roadmap.QuizOptionCount)
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			return nil, fmt.Errorf("quiz %d: answer index %d out of range", i+1, q.AnswerIndex)
		}
	}

	g.cacheQuizzes(ctx, req, raw.Quizzes)
	return raw.Quizzes, nil
}

// cacheQuizzes writes the quiz set back onto the cached project's step.
// Cache misses are not errors; the quizzes were already generated.
func (g *Generator) cacheQuizzes(ctx context.Context, req api.GenerateStepQuizRequest, quizzes []roadmap.Quiz) {
	if g.projects == nil {
		return
	}
	project, err := g.projects.Latest(ctx)
	if err != nil || project == nil || project.Goal != req.Goal {
		return
	}
	step := project.StepByIndex(req.StepNumber)
	if step == nil {
		return
	}
	step.Quizzes = quizzes
	g.projects.Save(ctx, project)
}

// Step serves cached steps so a revisited step reuses its stored quizzes
// instead of regenerating them.
func (g *Generator) Step(ctx context.Context, projectID int64, stepIndex int) (*roadmap.Step, error) {
	if g.projects == nil {
		return nil, fmt.Errorf("no project cache")
	}
	project, err := g.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, roadmap.ErrNoSuchStep
	}
	step := project.StepByIndex(stepIndex)
	if step == nil {
		return nil, roadmap.ErrNoSuchStep
	}
	return step, nil
}

func (g *Generator) locale(reqLocale string) string {
	if reqLocale != "" {
		return reqLocale
	}
	return g.cfg.Locale
}

// stripFences removes a markdown code fence the model may wrap around
// its JSON.
func stripFences(raw json.RawMessage) json.RawMessage {
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return json.RawMessage(strings.TrimSpace(s))
}
