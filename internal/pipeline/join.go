package pipeline

import (
	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// Join left-joins normalized rewards to normalized transactions on
// reference_id == transaction_id and projects the fixed output column set
// with the derived price fields.
//
// One output row per reward, in input order. Transaction-side fields fall
// back to the reward's reconciled values when no transaction matched, and
// stay nil when neither side had data. The function is pure: running it twice
// on the same normalized input yields identical output.
func Join(rewards []models.Reward, transactions []models.Transaction) []models.JoinedRow {
	byID := make(map[string]*models.Transaction, len(transactions))
	for i := range transactions {
		byID[transactions[i].TransactionID] = &transactions[i]
	}

	out := make([]models.JoinedRow, 0, len(rewards))
	for _, reward := range rewards {
		var txn *models.Transaction
		if reward.ReferenceID != nil {
			txn = byID[*reward.ReferenceID]
		}

		row := models.JoinedRow{
			RewardID:      reward.RewardID,
			PluAmount:     reward.PluAmount,
			Available:     reward.Available,
			Reason:        reward.Reason,
			CreatedAt:     reward.CreatedAt,
			UpdatedAt:     reward.UpdatedAt,
			RebateRate:    reward.RebateRate,
			ReferenceType: reward.ReferenceType,
			RewardType:    reward.RewardType,

			Description: reward.TransactionDescription,
			Currency:    reward.TransactionCurrency,
		}

		if reward.FiatAmount != nil {
			fiat := reward.FiatAmount.Abs().Div(minorUnitsScale)
			row.FiatAmount = &fiat
		}

		if txn != nil {
			row.TransactionID = &txn.TransactionID
			row.TransactionTS = txn.Date
			if txn.Description != nil {
				row.Description = txn.Description
			}
			if txn.Currency != nil {
				row.Currency = txn.Currency
			}
		}

		price := derivePrice(reward, txn)
		row.TransactionAmount = price.TransactionAmount
		row.PluPrice = price.PluPrice
		row.Unpriced = price.Unpriced

		out = append(out, row)
	}

	return out
}
