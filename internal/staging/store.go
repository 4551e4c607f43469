package staging

import (
	"context"
	"io"
)

// Conventional snapshot keys inside the staging area.
const (
	KeyTransactions = "staging/transactions.csv"
	KeyRewards      = "staging/rewards.csv"
)

// BlobStore is the minimal object-storage contract the pipeline needs for
// raw snapshots: whole-object put and get under a string key.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
