package plutus

import (
	"context"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// Rewards fetches the raw cashback reward records. The records keep their
// nested transaction objects, field shaping happens downstream.
func (c *Client) Rewards(ctx context.Context) ([]models.Record, error) {
	var rewards []models.Record
	if err := c.getJSON(ctx, c.cfg.APIURL+"/platform/transactions/pluton", &rewards); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched rewards", "count", len(rewards))
	return rewards, nil
}
