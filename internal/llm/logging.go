package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kmori/trailmap/internal/store"
)

// loggingProvider records every generation call as a store event.
type loggingProvider struct {
	inner  Provider
	events store.EventRepo
}

// WithLogging wraps a Provider with event logging.
func WithLogging(p Provider, repo store.EventRepo) Provider {
	return &loggingProvider{inner: p, events: repo}
}

func (l *loggingProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Complete(ctx, req)

	data := store.GenerationEvent{
		Provider:  l.inner.Name(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		data.Model = resp.Model
		data.InputTokens = resp.InputTokens
		data.OutputTokens = resp.OutputTokens
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	// A logging failure never fails the request.
	if logErr := l.events.AppendGeneration(ctx, data); logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to log generation event: %v\n", logErr)
	}

	return resp, err
}

func (l *loggingProvider) Name() string {
	return l.inner.Name()
}
