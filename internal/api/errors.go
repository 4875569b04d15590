package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates the bearer credential was rejected (401).
// The client's logout hook has already fired by the time a caller sees
// this error; the session must transition to its logged-out state.
var ErrUnauthorized = errors.New("credential rejected")

// ErrJobTimedOut indicates a polled job did not reach a terminal state
// within the configured poll budget.
var ErrJobTimedOut = errors.New("job timed out")

// JobFailedError indicates the backend reported a job as failed.
type JobFailedError struct {
	// Reason is the backend-supplied error message, or a generic
	// fallback when the backend sent none.
	Reason string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job failed: %s", e.Reason)
}

// NetworkError wraps a transport-level failure. Transient: callers may
// retry by re-invoking the same action.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response that is neither a 401 nor a
// job acknowledgment.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.Code)
}

// Retryable reports whether re-invoking the failed action could succeed.
// Auth failures and job terminal states are not retryable in place; the
// session handles those with hard transitions or explicit regeneration.
func Retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}
	return false
}
