package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kmori/trailmap/internal/roadmap"
)

// Job is the wire shape of the job-status resource.
type Job struct {
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Status roadmap.JobStatus `json:"status"`
	Result json.RawMessage   `json:"result"`
	Error  string            `json:"error"`
}

// PollJob checks the job resource on a fixed interval until it reaches a
// terminal state or the poll budget runs out.
//
// The loop runs on the caller's goroutine: cancelling ctx stops it between
// checks, and no timer outlives the call. A 401 on any check aborts
// immediately with ErrUnauthorized; remaining polls are not issued.
func (c *Client) PollJob(ctx context.Context, jobID int64) (json.RawMessage, error) {
	path := fmt.Sprintf("/api/jobs/%d", jobID)

	for poll := 0; poll < c.cfg.MaxPolls; poll++ {
		if poll > 0 {
			timer := time.NewTimer(c.cfg.PollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		job, err := c.fetchJob(ctx, path)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case roadmap.JobCompleted:
			return job.Result, nil
		case roadmap.JobFailed:
			reason := job.Error
			if reason == "" {
				reason = "generation failed"
			}
			return nil, &JobFailedError{Reason: reason}
		}
		// pending or processing: keep waiting.
	}

	return nil, ErrJobTimedOut
}

func (c *Client) fetchJob(ctx context.Context, path string) (*Job, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("poll job", resp)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, &NetworkError{Op: "poll job", Err: fmt.Errorf("decode job: %w", err)}
	}
	return &job, nil
}
