package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GenerationEvent captures one model generation call.
type GenerationEvent struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// GenerationStats aggregates generation events for the stats view.
type GenerationStats struct {
	Calls        int
	Failures     int
	InputTokens  int64
	OutputTokens int64
	AvgLatencyMs int64
}

// EventRepo provides append and aggregate access to generation events.
type EventRepo interface {
	AppendGeneration(ctx context.Context, data GenerationEvent) error
	GenerationStats(ctx context.Context) (*GenerationStats, error)
}

type eventRepo struct {
	db *sql.DB
}

func (r *eventRepo) AppendGeneration(ctx context.Context, data GenerationEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO generation_events
		 (provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		data.Provider, data.Model, data.Purpose,
		data.InputTokens, data.OutputTokens, data.LatencyMs,
		data.Success, data.ErrorMessage)
	if err != nil {
		return fmt.Errorf("append generation event: %w", err)
	}
	return nil
}

func (r *eventRepo) GenerationStats(ctx context.Context) (*GenerationStats, error) {
	var stats GenerationStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(CAST(AVG(latency_ms) AS INTEGER), 0)
		 FROM generation_events`).Scan(
		&stats.Calls, &stats.Failures, &stats.InputTokens, &stats.OutputTokens, &stats.AvgLatencyMs)
	if err != nil {
		return nil, fmt.Errorf("query generation stats: %w", err)
	}
	return &stats, nil
}
