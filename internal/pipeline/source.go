package pipeline

import (
	"context"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// Source delivers the raw record sequences a run works from. The API client
// satisfies it; tests substitute fixtures.
type Source interface {
	Transactions(ctx context.Context, limit int) ([]models.Record, error)
	Rewards(ctx context.Context) ([]models.Record, error)
}
