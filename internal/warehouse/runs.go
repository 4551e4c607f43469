package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmaliar/cashback-pipeline/internal/apperrors"
	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// RunRepo keeps one bookkeeping row per pipeline execution.
type RunRepo struct {
	DB DBTX
}

const startRun = `-- name: StartRun
INSERT INTO pipeline_runs (id, started_at, status)
VALUES ($1, $2, $3)
RETURNING id, started_at, finished_at, status, error_message,
          transactions_fetched, rewards_fetched, rows_dropped, rows_published, rows_loaded, used_snapshot
`

func (r *RunRepo) StartRun(ctx context.Context) (models.PipelineRun, error) {
	rows, _ := r.DB.Query(ctx, startRun, uuid.New(), time.Now().UTC(), models.RunStatusRunning)
	run, err := pgx.CollectOneRow(rows, rowToRun)
	if err != nil {
		return run, fmt.Errorf("db error: %w", err)
	}

	return run, nil
}

const finishRun = `-- name: FinishRun
UPDATE pipeline_runs
SET finished_at = $2,
    status = $3,
    error_message = $4,
    transactions_fetched = $5,
    rewards_fetched = $6,
    rows_dropped = $7,
    rows_published = $8,
    rows_loaded = $9,
    used_snapshot = $10
WHERE id = $1 AND finished_at IS NULL
RETURNING id, started_at, finished_at, status, error_message,
          transactions_fetched, rewards_fetched, rows_dropped, rows_published, rows_loaded, used_snapshot
`

// FinishRun closes the run exactly once. A second call for the same id
// returns ErrRunAlreadyEnded.
func (r *RunRepo) FinishRun(ctx context.Context, run models.PipelineRun) (models.PipelineRun, error) {
	rows, _ := r.DB.Query(ctx, finishRun,
		run.ID,
		time.Now().UTC(),
		run.Status,
		run.Error,
		run.TransactionsFetched,
		run.RewardsFetched,
		run.RowsDropped,
		run.RowsPublished,
		run.RowsLoaded,
		run.UsedSnapshot,
	)
	saved, err := pgx.CollectOneRow(rows, rowToRun)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, getErr := r.GetRun(ctx, run.ID)
		if getErr != nil {
			return saved, apperrors.ErrRunNotFound
		}
		return saved, apperrors.ErrRunAlreadyEnded
	case err != nil:
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getRun = `-- name: GetRun
SELECT id, started_at, finished_at, status, error_message,
       transactions_fetched, rewards_fetched, rows_dropped, rows_published, rows_loaded, used_snapshot
FROM pipeline_runs
WHERE id = $1
`

func (r *RunRepo) GetRun(ctx context.Context, id uuid.UUID) (models.PipelineRun, error) {
	rows, _ := r.DB.Query(ctx, getRun, id)
	run, err := pgx.CollectOneRow(rows, rowToRun)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return run, apperrors.ErrRunNotFound
	case err != nil:
		return run, fmt.Errorf("db error: %w", err)
	}

	return run, nil
}

func rowToRun(row pgx.CollectableRow) (models.PipelineRun, error) {
	var run models.PipelineRun
	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.Error,
		&run.TransactionsFetched,
		&run.RewardsFetched,
		&run.RowsDropped,
		&run.RowsPublished,
		&run.RowsLoaded,
		&run.UsedSnapshot,
	)
	return run, err
}
