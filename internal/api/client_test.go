package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmori/trailmap/internal/roadmap"
)

// testConfig returns a Config pointed at the server with a fast poll cycle.
func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Token = "test-token"
	cfg.PollInterval = time.Millisecond
	cfg.MaxPolls = 60
	return cfg
}

func TestProposePlan_Synchronous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/propose-plan", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req ProposeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Build a todo app", req.Goal)
		assert.Equal(t, roadmap.LevelBeginner, req.Level)

		json.NewEncoder(w).Encode(roadmap.ProposedPlan{
			Complexity: "Low",
			Stack:      "Go, SQLite",
			Reason:     "simple scope",
			Steps: []roadmap.PlanStep{
				{Index: 1, Title: "Environment setup"},
				{Index: 2, Title: "CRUD basics"},
				{Index: 3, Title: "Security and vulnerability measures"},
			},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	plan, err := c.ProposePlan(context.Background(), ProposeRequest{
		Goal:  "Build a todo app",
		Level: roadmap.LevelBeginner,
	})
	require.NoError(t, err)
	assert.Len(t, plan.Steps, 3)
	assert.Equal(t, "Go, SQLite", plan.Stack)
}

func TestGenerateStepQuiz_QueuedJob(t *testing.T) {
	var statusCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate-step-quiz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]int64{"job_id": 42})
	})
	mux.HandleFunc("/api/jobs/42", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&statusCalls, 1)
		job := map[string]any{"id": 42, "status": "pending"}
		if n > 3 {
			quizzes := make([]roadmap.Quiz, roadmap.QuizzesPerStep)
			for i := range quizzes {
				quizzes[i] = roadmap.Quiz{
					Question:    fmt.Sprintf("Q%d", i+1),
					Options:     []string{"a", "b", "c", "d"},
					AnswerIndex: i % 4,
					Explanation: "because",
				}
			}
			job["status"] = "completed"
			job["result"] = map[string]any{"quizzes": quizzes}
		}
		json.NewEncoder(w).Encode(job)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(testConfig(srv.URL))
	quizzes, err := c.GenerateStepQuiz(context.Background(), GenerateStepQuizRequest{
		Goal: "todo app", StepNumber: 1, StepTitle: "Setup",
	})
	require.NoError(t, err)
	assert.Len(t, quizzes, roadmap.QuizzesPerStep)

	// Three pending checks plus the completed one; nothing after.
	assert.Equal(t, int32(4), atomic.LoadInt32(&statusCalls))
}

func TestPollJob_Timeout(t *testing.T) {
	var statusCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&statusCalls, 1)
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "status": "pending"})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxPolls = 5
	c := New(cfg)

	_, err := c.PollJob(context.Background(), 7)
	require.ErrorIs(t, err, ErrJobTimedOut)
	assert.Equal(t, int32(5), atomic.LoadInt32(&statusCalls))
}

func TestPollJob_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "status": "failed", "error": "model quota exceeded",
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.PollJob(context.Background(), 7)

	var jobErr *JobFailedError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "model quota exceeded", jobErr.Reason)
}

func TestPollJob_FailedWithoutReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "status": "failed"})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.PollJob(context.Background(), 7)

	var jobErr *JobFailedError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "generation failed", jobErr.Reason)
}

func TestPollJob_UnauthorizedMidPoll(t *testing.T) {
	var statusCalls, logouts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&statusCalls, 1)
		if n == 2 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "status": "pending"})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), WithLogoutHook(func() {
		atomic.AddInt32(&logouts, 1)
	}))

	_, err := c.PollJob(context.Background(), 7)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Aborted on poll #2: no poll #3, logout fired exactly once.
	assert.Equal(t, int32(2), atomic.LoadInt32(&statusCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&logouts))
}

func TestPollJob_Cancellation(t *testing.T) {
	var statusCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&statusCalls, 1)
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "status": "pending"})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.PollInterval = time.Hour // cancellation must win over the timer
	c := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.PollJob(ctx, 7)
		done <- err
	}()

	// Let the first check land, then abandon interest.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&statusCalls) >= 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop after cancellation")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&statusCalls))
}

func TestSaveStepScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/projects/3/steps/2/score", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var score roadmap.Score
		require.NoError(t, json.NewDecoder(r.Body).Decode(&score))
		assert.Equal(t, 7, score.Correct)
		assert.Equal(t, 10, score.Total)
		assert.Equal(t, 70, score.Percentage)

		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	err := c.SaveStepScore(context.Background(), 3, 2, roadmap.Score{Correct: 7, Total: 10, Percentage: 70})
	require.NoError(t, err)
}

func TestUnauthorized_OnInitialSubmit(t *testing.T) {
	var logouts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), WithLogoutHook(func() {
		atomic.AddInt32(&logouts, 1)
	}))

	_, err := c.GenerateRoadmap(context.Background(), GenerateRoadmapRequest{Goal: "x"})
	require.ErrorIs(t, err, ErrUnauthorized)

	// Repeated 401s still fire the hook only once per client.
	_, err = c.LatestProject(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logouts))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&NetworkError{Op: "x", Err: errors.New("conn reset")}))
	assert.True(t, Retryable(&StatusError{Op: "x", Code: 502}))
	assert.False(t, Retryable(&StatusError{Op: "x", Code: 404}))
	assert.False(t, Retryable(ErrUnauthorized))
	assert.False(t, Retryable(ErrJobTimedOut))
	assert.False(t, Retryable(&JobFailedError{Reason: "boom"}))
}

func TestStatusError_UsesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Project not found"})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Project(context.Background(), 99)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Contains(t, statusErr.Message, "Project not found")
}
