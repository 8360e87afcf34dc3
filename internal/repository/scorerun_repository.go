package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pandafinder/internal/model"
)

// ScoreRunRepository records scoring passes. It runs on the pgx pool,
// which the API shares for its own short queries.
type ScoreRunRepository struct {
	DB *pgxpool.Pool
}

func (r *ScoreRunRepository) Insert(run model.ScoreRun) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := r.DB.Exec(context.Background(), `
		INSERT INTO score_runs
		(id, triggered_by, started_at, finished_at, listings_total, listings_scored, mean_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, run.Trigger, run.StartedAt, run.FinishedAt, run.ListingsTotal, run.ListingsScored, run.MeanScore)
	return id, err
}

func (r *ScoreRunRepository) Recent(limit int) ([]model.ScoreRun, error) {
	rows, err := r.DB.Query(context.Background(), `
		SELECT id::text, triggered_by, started_at, finished_at, listings_total, listings_scored, mean_score
		FROM score_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.ScoreRun
	for rows.Next() {
		var run model.ScoreRun
		if err := rows.Scan(&run.ID, &run.Trigger, &run.StartedAt, &run.FinishedAt,
			&run.ListingsTotal, &run.ListingsScored, &run.MeanScore); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
