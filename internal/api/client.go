// Package api is the HTTP client for the roadmap service. Generation
// endpoints may answer synchronously or with a queued-job acknowledgment;
// the client hides the difference by polling the job resource until it
// reaches a terminal state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/kmori/trailmap/internal/roadmap"
)

// Client talks to the roadmap service. Safe for sequential use by one
// session; the service assumes a single writer per project.
type Client struct {
	cfg  Config
	http *http.Client

	// onLogout runs at most once, the first time any call sees a 401.
	onLogout   func()
	logoutOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithLogoutHook registers a callback invoked when the credential is
// rejected. Fires at most once for the lifetime of the Client.
func WithLogoutHook(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client from the given Config.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProposeRequest is the plan-proposal payload.
type ProposeRequest struct {
	Goal   string        `json:"goal"`
	Stack  string        `json:"stack,omitempty"`
	Level  roadmap.Level `json:"level"`
	Locale string        `json:"locale,omitempty"`
}

// GenerateRoadmapRequest is the roadmap-generation payload, carrying the
// user-edited draft.
type GenerateRoadmapRequest struct {
	Goal      string             `json:"goal"`
	Stack     string             `json:"stack"`
	Level     roadmap.Level      `json:"level"`
	PlanSteps []roadmap.PlanStep `json:"plan_steps"`
	Locale    string             `json:"locale,omitempty"`
}

// GenerateStepQuizRequest asks for a lazily generated quiz set for one step.
type GenerateStepQuizRequest struct {
	Goal       string        `json:"goal"`
	Stack      string        `json:"stack"`
	Level      roadmap.Level `json:"level"`
	StepNumber int           `json:"step_number"`
	StepTitle  string        `json:"step_title"`
	StepDesc   string        `json:"step_desc"`
	Locale     string        `json:"locale,omitempty"`
}

// ProposePlan asks the service to draft a plan for the goal.
func (c *Client) ProposePlan(ctx context.Context, req ProposeRequest) (*roadmap.ProposedPlan, error) {
	if req.Locale == "" {
		req.Locale = c.cfg.Locale
	}
	var plan roadmap.ProposedPlan
	if err := c.submit(ctx, "propose plan", "/api/propose-plan", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// GenerateRoadmap turns an edited draft into a full roadmap.
func (c *Client) GenerateRoadmap(ctx context.Context, req GenerateRoadmapRequest) (*roadmap.Project, error) {
	if req.Locale == "" {
		req.Locale = c.cfg.Locale
	}
	var project roadmap.Project
	if err := c.submit(ctx, "generate roadmap", "/api/generate-roadmap", req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GenerateStepQuiz generates the quiz set for one step.
func (c *Client) GenerateStepQuiz(ctx context.Context, req GenerateStepQuizRequest) ([]roadmap.Quiz, error) {
	if req.Locale == "" {
		req.Locale = c.cfg.Locale
	}
	var out struct {
		Quizzes []roadmap.Quiz `json:"quizzes"`
	}
	if err := c.submit(ctx, "generate step quiz", "/api/generate-step-quiz", req, &out); err != nil {
		return nil, err
	}
	return out.Quizzes, nil
}

// LatestProject fetches the caller's most recent project with its roadmap.
func (c *Client) LatestProject(ctx context.Context) (*roadmap.Project, error) {
	var project roadmap.Project
	if err := c.get(ctx, "fetch latest project", "/api/projects/latest", &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Project fetches one project by id.
func (c *Client) Project(ctx context.Context, id int64) (*roadmap.Project, error) {
	var project roadmap.Project
	path := fmt.Sprintf("/api/projects/%d", id)
	if err := c.get(ctx, "fetch project", path, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Step fetches one step with its quiz set (which may be empty if the
// quizzes have not been generated yet).
func (c *Client) Step(ctx context.Context, projectID int64, stepIndex int) (*roadmap.Step, error) {
	var step roadmap.Step
	path := fmt.Sprintf("/api/projects/%d/steps/%d", projectID, stepIndex)
	if err := c.get(ctx, "fetch step", path, &step); err != nil {
		return nil, err
	}
	if step.Index == 0 {
		step.Index = stepIndex
	}
	return &step, nil
}

// SaveStepScore persists a completed step's score.
func (c *Client) SaveStepScore(ctx context.Context, projectID int64, stepIndex int, score roadmap.Score) error {
	path := fmt.Sprintf("/api/projects/%d/steps/%d/score", projectID, stepIndex)
	resp, err := c.do(ctx, http.MethodPost, path, score)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError("save step score", resp)
	}
	return nil
}

// DeleteProject removes a project and all of its steps.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/projects/%d", id)
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError("delete project", resp)
	}
	return nil
}

// submit POSTs a generation request. A 200 carries the final result; a
// 202 carries a job id, and the call resolves by polling that job.
func (c *Client) submit(ctx context.Context, op, path string, body, out any) error {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil

	case http.StatusAccepted:
		var ack struct {
			JobID int64 `json:"job_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("decode job ack: %w", err)}
		}
		result, err := c.PollJob(ctx, ack.JobID)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(result, out); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("decode job result: %w", err)}
		}
		return nil

	default:
		return c.statusError(op, resp)
	}
}

// get issues an authenticated GET and decodes the body into out.
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// do builds and executes one request. Every 401 resolves to
// ErrUnauthorized and fires the logout hook, whichever endpoint produced it.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.logoutOnce.Do(func() {
			if c.onLogout != nil {
				c.onLogout()
			}
		})
		return nil, ErrUnauthorized
	}

	return resp, nil
}

// statusError drains a small prefix of the body for the error message.
func (c *Client) statusError(op string, resp *http.Response) error {
	msg := ""
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024)); err == nil {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			msg = body.Error
		} else {
			msg = strings.TrimSpace(string(raw))
		}
	}
	return &StatusError{Op: op, Code: resp.StatusCode, Message: msg}
}
