package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// pluPriceScale keeps enough precision for unit prices derived from small
// reward quantities.
const pluPriceScale = 8

// derivedPrice is the output of the price derivation for one reward row.
type derivedPrice struct {
	TransactionAmount *decimal.Decimal // abs(amount)/100, major units
	PluPrice          *decimal.Decimal
	Unpriced          bool
}

// derivePrice computes the major-unit transaction amount and the unit price
// of the reward currency for one normalized reward, optionally joined to its
// transaction.
//
// The amount precedence: the joined transaction's amount wins, then the
// reward's own reconciled amount. Both are minor units.
//
// plu_price branches on rebate_rate:
//   - rate == 0: the full fiat amount rewarded funds the price,
//     plu_price = fiat_amount_rewarded / plu_amount.
//   - rate > 0: only the rebated fraction of the transaction does,
//     plu_price = (abs(transaction_amount) * rate) / plu_amount, with
//     transaction_amount already in major units. No second /100 here: the
//     historical distributed variant double-scaled and is wrong.
//
// A zero or missing plu_amount (or a rate branch without an amount) cannot be
// priced: the row is kept with a nil price and Unpriced set.
func derivePrice(reward models.Reward, txn *models.Transaction) derivedPrice {
	var out derivedPrice

	minor := reward.TransactionAmount
	if txn != nil && txn.Amount != nil {
		minor = txn.Amount
	}
	if minor != nil {
		major := minor.Abs().Div(minorUnitsScale)
		out.TransactionAmount = &major
	}

	if reward.PluAmount == nil || reward.PluAmount.IsZero() {
		out.Unpriced = true
		return out
	}

	switch {
	case reward.RebateRate == nil || reward.RebateRate.IsZero():
		if reward.FiatAmount == nil {
			out.Unpriced = true
			return out
		}
		price := reward.FiatAmount.DivRound(*reward.PluAmount, pluPriceScale)
		out.PluPrice = &price

	default:
		if out.TransactionAmount == nil {
			out.Unpriced = true
			return out
		}
		price := out.TransactionAmount.Abs().
			Mul(*reward.RebateRate).
			DivRound(*reward.PluAmount, pluPriceScale)
		out.PluPrice = &price
	}

	return out
}
