package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// RateLimitError indicates the provider returned 429.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// BadOutputError indicates the model returned content that is not valid
// JSON or does not conform to the requested schema.
type BadOutputError struct {
	Content json.RawMessage
	Err     error
}

func (e *BadOutputError) Error() string {
	return fmt.Sprintf("model output rejected: %v", e.Err)
}

func (e *BadOutputError) Unwrap() error { return e.Err }

// UnavailableError indicates the provider is down or unreachable.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider unavailable: %v", e.Err)
	}
	return "provider unavailable"
}

func (e *UnavailableError) Unwrap() error { return e.Err }
