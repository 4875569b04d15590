package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kmori/trailmap/internal/roadmap"
)

// ProjectRepo manages locally cached roadmap projects. Steps (including
// quizzes) are stored as a JSON document; scores live in their own table
// and are folded back in on read.
type ProjectRepo interface {
	// Save inserts a new project and assigns its ID, or replaces the
	// stored steps when the project already has one.
	Save(ctx context.Context, p *roadmap.Project) error

	// Latest returns the most recently created project, or nil.
	Latest(ctx context.Context) (*roadmap.Project, error)

	// Get returns the project with the given ID, or nil.
	Get(ctx context.Context, id int64) (*roadmap.Project, error)

	// List returns all projects newest-first, without steps.
	List(ctx context.Context) ([]ProjectSummary, error)

	// Delete removes a project and its scores.
	Delete(ctx context.Context, id int64) error
}

// ProjectSummary is a project row without its steps payload.
type ProjectSummary struct {
	ID        int64
	Goal      string
	Stack     string
	Level     roadmap.Level
	Steps     int
	CreatedAt time.Time
}

type projectRepo struct {
	db *sql.DB
}

func (r *projectRepo) Save(ctx context.Context, p *roadmap.Project) error {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	if p.ID != 0 {
		_, err := r.db.ExecContext(ctx,
			`UPDATE projects SET goal = ?, stack = ?, level = ?, complexity = ?, steps = ? WHERE id = ?`,
			p.Goal, p.Stack, string(p.Level), p.Complexity, string(steps), p.ID)
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (goal, stack, level, complexity, steps) VALUES (?, ?, ?, ?, ?)`,
		p.Goal, p.Stack, string(p.Level), p.Complexity, string(steps))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("project id: %w", err)
	}
	p.ID = id
	return nil
}

func (r *projectRepo) Latest(ctx context.Context) (*roadmap.Project, error) {
	return r.scanOne(ctx,
		`SELECT id, goal, stack, level, complexity, steps, created_at
		 FROM projects ORDER BY id DESC LIMIT 1`)
}

func (r *projectRepo) Get(ctx context.Context, id int64) (*roadmap.Project, error) {
	return r.scanOne(ctx,
		`SELECT id, goal, stack, level, complexity, steps, created_at
		 FROM projects WHERE id = ?`, id)
}

func (r *projectRepo) scanOne(ctx context.Context, query string, args ...any) (*roadmap.Project, error) {
	var (
		p         roadmap.Project
		level     string
		stepsJSON string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.Goal, &p.Stack, &level, &p.Complexity, &stepsJSON, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	p.Level = roadmap.Level(level)
	if err := json.Unmarshal([]byte(stepsJSON), &p.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := r.foldScores(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// foldScores overlays persisted scores onto the step documents.
func (r *projectRepo) foldScores(ctx context.Context, p *roadmap.Project) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT step_index, correct, total, percentage FROM scores WHERE project_id = ?`, p.ID)
	if err != nil {
		return fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx   int
			score roadmap.Score
		)
		if err := rows.Scan(&idx, &score.Correct, &score.Total, &score.Percentage); err != nil {
			return fmt.Errorf("scan score: %w", err)
		}
		if step := p.StepByIndex(idx); step != nil {
			s := score
			step.Score = &s
		}
	}
	return rows.Err()
}

func (r *projectRepo) List(ctx context.Context) ([]ProjectSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, goal, stack, level, steps, created_at FROM projects ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var (
			s         ProjectSummary
			level     string
			stepsJSON string
		)
		if err := rows.Scan(&s.ID, &s.Goal, &s.Stack, &level, &stepsJSON, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		s.Level = roadmap.Level(level)
		var steps []roadmap.Step
		if err := json.Unmarshal([]byte(stepsJSON), &steps); err == nil {
			s.Steps = len(steps)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *projectRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scores WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete scores: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}
