package warehouse_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmaliar/cashback-pipeline/internal/apperrors"
	"github.com/dmaliar/cashback-pipeline/internal/models"
	"github.com/dmaliar/cashback-pipeline/internal/testutil"
	"github.com/dmaliar/cashback-pipeline/internal/warehouse"
)

func TestRunRepo(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("start and finish", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &warehouse.RunRepo{DB: tx}

			run, err := repo.StartRun(t.Context())
			require.NoError(t, err)
			require.Equal(t, models.RunStatusRunning, run.Status)
			require.Nil(t, run.FinishedAt)

			run.Status = models.RunStatusSuccess
			run.RowsPublished = 12
			run.RowsLoaded = 3
			run.UsedSnapshot = true

			saved, err := repo.FinishRun(t.Context(), run)
			require.NoError(t, err)
			require.Equal(t, models.RunStatusSuccess, saved.Status)
			require.NotNil(t, saved.FinishedAt)
			require.Equal(t, 12, saved.RowsPublished)
			require.Equal(t, 3, saved.RowsLoaded)
			require.True(t, saved.UsedSnapshot)
		})
	})

	t.Run("finish twice", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &warehouse.RunRepo{DB: tx}

			run, err := repo.StartRun(t.Context())
			require.NoError(t, err)

			run.Status = models.RunStatusFailed
			run.Error = "boom"

			_, err = repo.FinishRun(t.Context(), run)
			require.NoError(t, err)

			_, err = repo.FinishRun(t.Context(), run)
			require.ErrorIs(t, err, apperrors.ErrRunAlreadyEnded)
		})
	})

	t.Run("finish unknown run", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &warehouse.RunRepo{DB: tx}

			_, err := repo.FinishRun(t.Context(), models.PipelineRun{ID: uuid.New()})
			require.ErrorIs(t, err, apperrors.ErrRunNotFound)
		})
	})

	t.Run("get run", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &warehouse.RunRepo{DB: tx}

			run, err := repo.StartRun(t.Context())
			require.NoError(t, err)

			got, err := repo.GetRun(t.Context(), run.ID)
			require.NoError(t, err)
			require.Equal(t, run.ID, got.ID)

			_, err = repo.GetRun(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrRunNotFound)
		})
	})
}
