package plutus

import (
	"context"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

const transactionsQuery = `query transactions_view($offset: Int, $limit: Int, $from: timestamptz, $to: timestamptz, $type: String) {
  transactions_view_aggregate(
    where: {_and: [{date: {_gte: $from}}, {date: {_lte: $to}}]}
  ) {
    aggregate {
      totalCount: count
      __typename
    }
    __typename
  }
  transactions_view(
    order_by: {date: desc}
    limit: $limit
    offset: $offset
    where: {_and: [{date: {_gte: $from}}, {date: {_lte: $to}}, {type: {_eq: $type}}]}
  ) {
    id
    model
    user_id
    currency
    amount
    date
    type
    is_debit
    description
    __typename
  }
}
`

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

type transactionsResponse struct {
	Data struct {
		TransactionsView []models.Record `json:"transactions_view"`
	} `json:"data"`
}

// Transactions fetches the newest card transactions, most recent first.
func (c *Client) Transactions(ctx context.Context, limit int) ([]models.Record, error) {
	payload := graphqlRequest{
		OperationName: "transactions_view",
		Variables: map[string]any{
			"offset": 0,
			"limit":  limit,
			"from":   nil,
			"to":     nil,
		},
		Query: transactionsQuery,
	}

	var resp transactionsResponse
	if err := c.postJSON(ctx, c.cfg.GraphQLURL, payload, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched transactions", "count", len(resp.Data.TransactionsView))
	return resp.Data.TransactionsView, nil
}
