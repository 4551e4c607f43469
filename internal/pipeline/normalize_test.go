package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

func TestNormalizeTransactions(t *testing.T) {
	t.Run("renames and coerces", func(t *testing.T) {
		raw := []models.Record{
			{
				"id":          "txn-1",
				"model":       "card_transactions",
				"user_id":     "user-1",
				"currency":    "GBP",
				"amount":      float64(-2000),
				"date":        "2024-03-01T10:30:00Z",
				"type":        "PURCHASE",
				"is_debit":    true,
				"__typename":  "transactions_view",
				"description": "COFFEE SHOP",
			},
		}

		got := NormalizeTransactions(raw)

		require.Len(t, got, 1)
		require.Equal(t, "txn-1", got[0].TransactionID)
		require.Equal(t, "GBP", *got[0].Currency)
		require.Equal(t, "PURCHASE", *got[0].Type)
		require.True(t, got[0].Amount.Equal(decimalFromInt(-2000)))
		require.NotNil(t, got[0].Date)
	})

	t.Run("skips records without id", func(t *testing.T) {
		raw := []models.Record{
			{"amount": float64(100)},
			{"id": nil},
			{"id": "txn-2"},
		}

		got := NormalizeTransactions(raw)

		require.Len(t, got, 1)
		require.Equal(t, "txn-2", got[0].TransactionID)
	})

	t.Run("bad cells become nulls", func(t *testing.T) {
		raw := []models.Record{
			{"id": "txn-3", "amount": "not-a-number", "date": "yesterday"},
		}

		got := NormalizeTransactions(raw)

		require.Len(t, got, 1)
		require.Nil(t, got[0].Amount)
		require.Nil(t, got[0].Date)
	})
}

func TestNormalizeRewards(t *testing.T) {
	t.Run("drop rule", func(t *testing.T) {
		raw := []models.Record{
			// Both description paths null, not a bonus: dropped
			{"id": "r-drop", "type": "PURCHASE"},
			// Both paths null but bonus: retained
			{"id": "r-bonus", "type": models.RewardTypeRebateBonus},
			// Primary description present: retained
			{
				"id":   "r-keep",
				"type": "PURCHASE",
				"contis_transaction": map[string]any{
					"description": "SUPERMARKET",
				},
			},
		}

		rewards, dropped := NormalizeRewards(raw)

		require.Equal(t, 1, dropped)
		require.Len(t, rewards, 2)
		require.Equal(t, "r-bonus", rewards[0].RewardID)
		require.Equal(t, "r-keep", rewards[1].RewardID)
	})

	t.Run("quantity and rate are unsigned", func(t *testing.T) {
		raw := []models.Record{
			{
				"id":          "r-1",
				"type":        "PURCHASE",
				"plu_amount":  "-0.5",
				"rebate_rate": float64(-0.03),
				"contis_transaction": map[string]any{
					"description": "SHOP",
				},
			},
		}

		rewards, dropped := NormalizeRewards(raw)

		require.Zero(t, dropped)
		require.Len(t, rewards, 1)
		require.True(t, rewards[0].PluAmount.Equal(*decPtr("0.5")), "sign must be discarded")
		require.True(t, rewards[0].RebateRate.Equal(*decPtr("0.03")))
	})

	t.Run("primary description wins over fallback", func(t *testing.T) {
		raw := []models.Record{
			{
				"id":   "r-1",
				"type": "PURCHASE",
				"contis_transaction": map[string]any{
					"description": "PRIMARY",
				},
				"fiat_transaction": map[string]any{
					"card_transactions": map[string]any{
						"description": "FALLBACK",
					},
				},
			},
			{
				"id":   "r-2",
				"type": "PURCHASE",
				"fiat_transaction": map[string]any{
					"card_transactions": map[string]any{
						"description": "FALLBACK",
					},
				},
			},
		}

		rewards, dropped := NormalizeRewards(raw)

		require.Zero(t, dropped)
		require.Len(t, rewards, 2)
		require.Equal(t, "PRIMARY", *rewards[0].TransactionDescription)
		require.Equal(t, "FALLBACK", *rewards[1].TransactionDescription)
	})

	t.Run("amount fallback scales by 100", func(t *testing.T) {
		raw := []models.Record{
			{
				"id":   "r-1",
				"type": "PURCHASE",
				"contis_transaction": map[string]any{
					"description":        "SHOP",
					"transaction_amount": float64(1500),
				},
			},
			{
				"id":   "r-2",
				"type": "PURCHASE",
				"fiat_transaction": map[string]any{
					"card_transactions": map[string]any{
						"description": "SHOP",
						"api_response": map[string]any{
							"TransactionAmount": float64(15),
						},
					},
				},
			},
			// Bonus rows never take the fallback amount
			{
				"id":   "r-3",
				"type": models.RewardTypeRebateBonus,
				"fiat_transaction": map[string]any{
					"card_transactions": map[string]any{
						"api_response": map[string]any{
							"TransactionAmount": float64(15),
						},
					},
				},
			},
		}

		rewards, _ := NormalizeRewards(raw)

		require.Len(t, rewards, 3)
		require.True(t, rewards[0].TransactionAmount.Equal(decimalFromInt(1500)))
		require.True(t, rewards[1].TransactionAmount.Equal(decimalFromInt(1500)), "fallback must be scaled to minor units")
		require.Nil(t, rewards[2].TransactionAmount)
	})

	t.Run("sibling backfill by exchange_rate_id", func(t *testing.T) {
		raw := []models.Record{
			{
				"id":               "r-full",
				"type":             "PURCHASE",
				"exchange_rate_id": "ex-1",
				"created_at":       "2024-03-01T10:00:00Z",
				"contis_transaction": map[string]any{
					"description":        "SIBLING SHOP",
					"transaction_amount": float64(4200),
					"currency":           "GBP",
				},
			},
			{
				"id":               "r-hole",
				"type":             "PURCHASE",
				"exchange_rate_id": "ex-1",
				"created_at":       "2024-03-01T11:00:00Z",
				"fiat_transaction": map[string]any{
					"card_transactions": map[string]any{
						"description": "OWN DESC",
					},
				},
			},
			{
				"id":               "r-other",
				"type":             "PURCHASE",
				"exchange_rate_id": "ex-2",
				"contis_transaction": map[string]any{
					"description": "UNRELATED",
				},
			},
		}

		rewards, _ := NormalizeRewards(raw)
		require.Len(t, rewards, 3)

		var hole, other models.Reward
		for _, r := range rewards {
			switch r.RewardID {
			case "r-hole":
				hole = r
			case "r-other":
				other = r
			}
		}

		require.NotNil(t, hole.TransactionAmount)
		require.True(t, hole.TransactionAmount.Equal(decimalFromInt(4200)))
		require.Equal(t, "OWN DESC", *hole.TransactionDescription, "own description must not be overwritten")
		require.Equal(t, "GBP", *hole.TransactionCurrency, "missing currency comes from the sibling")

		require.Nil(t, other.TransactionAmount, "no sibling with an amount on ex-2")
	})
}
