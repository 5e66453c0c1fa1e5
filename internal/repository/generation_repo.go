package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"echoquiz-backend/internal/models"
)

type GenerationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepo {
	return &GenerationRepo{pool: pool}
}

func (r *GenerationRepo) Record(ctx context.Context, run *models.GenerationRun) error {
	run.ID = uuid.New()

	query := `INSERT INTO generation_runs (id, session_id, attempt, status, question_count, error_kind, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		run.ID, run.SessionID, run.Attempt, run.Status, run.QuestionCount,
		run.ErrorKind, run.ErrorMessage, run.DurationMS,
	).Scan(&run.CreatedAt)
}

func (r *GenerationRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.GenerationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, session_id, attempt, status, question_count, error_kind, error_message, duration_ms, created_at
		FROM generation_runs WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.GenerationRun
	for rows.Next() {
		var run models.GenerationRun
		if err := rows.Scan(
			&run.ID, &run.SessionID, &run.Attempt, &run.Status, &run.QuestionCount,
			&run.ErrorKind, &run.ErrorMessage, &run.DurationMS, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
