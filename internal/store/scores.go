package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kmori/trailmap/internal/roadmap"
)

// ScoreRepo persists step scores per project. A retake overwrites the
// previous row.
type ScoreRepo interface {
	Save(ctx context.Context, projectID int64, stepIndex int, score roadmap.Score) error
}

type scoreRepo struct {
	db *sql.DB
}

func (r *scoreRepo) Save(ctx context.Context, projectID int64, stepIndex int, score roadmap.Score) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scores (project_id, step_index, correct, total, percentage)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, step_index)
		 DO UPDATE SET correct = excluded.correct, total = excluded.total,
		               percentage = excluded.percentage, updated_at = CURRENT_TIMESTAMP`,
		projectID, stepIndex, score.Correct, score.Total, score.Percentage)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// ProjectScores binds a ScoreRepo to one project so it can serve as a
// per-session score sink.
type ProjectScores struct {
	Repo      ScoreRepo
	ProjectID int64
}

func (p ProjectScores) SaveScore(ctx context.Context, stepIndex int, score roadmap.Score) error {
	return p.Repo.Save(ctx, p.ProjectID, stepIndex, score)
}
