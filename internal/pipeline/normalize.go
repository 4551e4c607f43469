package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// Source field paths for the two reward integrations. The contis path is the
// card-processor primary; the fiat_transaction path belongs to the newer
// payment integration and only fills gaps.
const (
	contisDescription = "contis_transaction.description"
	contisAmount      = "contis_transaction.transaction_amount"
	contisCurrency    = "contis_transaction.currency"

	fiatDescription = "fiat_transaction.card_transactions.description"
	fiatAmount      = "fiat_transaction.card_transactions.api_response.TransactionAmount"
)

// minorUnitsScale converts the fallback amount (major units) to the canonical
// minor-unit representation.
var minorUnitsScale = decimal.NewFromInt(100)

// NormalizeTransactions converts raw transaction records to the canonical
// schema. Transport-only fields (is_debit, __typename) are not carried over.
// Records without a usable id are skipped: they can never be joined and the
// natural key is the only required cell.
func NormalizeTransactions(raw []models.Record) []models.Transaction {
	out := make([]models.Transaction, 0, len(raw))

	for _, rec := range raw {
		id := coerceString(firstPresent(rec, "transaction_id", "id"))
		if id == nil {
			continue
		}

		out = append(out, models.Transaction{
			TransactionID: *id,
			Model:         coerceString(firstPresent(rec, "model")),
			UserID:        coerceString(firstPresent(rec, "user_id")),
			Currency:      coerceString(firstPresent(rec, "currency")),
			Amount:        coerceDecimal(firstPresent(rec, "amount")),
			Date:          coerceTime(firstPresent(rec, "date")),
			Type:          coerceString(firstPresent(rec, "type")),
			Description:   coerceString(firstPresent(rec, "description")),
		})
	}

	return out
}

// NormalizeRewards converts raw reward records to the canonical schema:
// renames, per-cell coercion, reconciliation of the two integration paths,
// the data-quality drop rule and the sibling backfill. The second return
// value counts rows removed by the drop rule.
func NormalizeRewards(raw []models.Record) ([]models.Reward, int) {
	rewards := make([]models.Reward, 0, len(raw))
	dropped := 0

	for _, rec := range raw {
		id := coerceString(firstPresent(rec, "reward_id", "id"))
		if id == nil {
			continue
		}

		rewardType := coerceString(firstPresent(rec, "reward_type", "type"))
		typ := ""
		if rewardType != nil {
			typ = *rewardType
		}

		primaryDesc := coerceString(lookup(rec, contisDescription))
		fallbackDesc := coerceString(lookup(rec, fiatDescription))

		// Data-quality filter: a transaction-linked reward with no description
		// on either path is unusable. Bonus grants have no transaction to
		// describe, keep them.
		if primaryDesc == nil && fallbackDesc == nil && typ != models.RewardTypeRebateBonus {
			dropped++
			continue
		}

		r := models.Reward{
			RewardID:       *id,
			ReferenceID:    coerceString(firstPresent(rec, "reference_id")),
			ReferenceType:  coerceString(firstPresent(rec, "reference_type")),
			RewardType:     typ,
			PluAmount:      coerceUnsignedDecimal(firstPresent(rec, "plu_amount", "amount")),
			RebateRate:     coerceUnsignedDecimal(firstPresent(rec, "rebate_rate")),
			BaseRate:       coerceDecimal(firstPresent(rec, "base_rate")),
			StakingRate:    coerceDecimal(firstPresent(rec, "staking_rate")),
			FiatAmount:     coerceDecimal(firstPresent(rec, "fiat_amount_rewarded")),
			Available:      coerceBool(firstPresent(rec, "available")),
			Reason:         coerceString(firstPresent(rec, "reason")),
			ExchangeRateID: coerceString(firstPresent(rec, "exchange_rate_id")),
			CreatedAt:      coerceTime(firstPresent(rec, "created_at", "createdAt")),
			UpdatedAt:      coerceTime(firstPresent(rec, "updated_at", "updatedAt")),

			TransactionDescription: reconcileDescription(primaryDesc, fallbackDesc),
			TransactionCurrency:    coerceString(lookup(rec, contisCurrency)),
		}
		r.TransactionAmount = reconcileAmount(rec, typ)

		rewards = append(rewards, r)
	}

	backfillFromSiblings(rewards)

	return rewards, dropped
}

// reconcileDescription applies the primary-wins rule.
func reconcileDescription(primary, fallback *string) *string {
	if primary != nil {
		return primary
	}
	return fallback
}

// reconcileAmount picks the primary minor-unit amount; for non-bonus rows the
// fallback integration's major-unit amount is scaled by 100 to fill the gap.
func reconcileAmount(rec models.Record, rewardType string) *decimal.Decimal {
	if amount := coerceDecimal(lookup(rec, contisAmount)); amount != nil {
		return amount
	}
	if rewardType == models.RewardTypeRebateBonus {
		return nil
	}

	fallback := coerceDecimal(lookup(rec, fiatAmount))
	if fallback == nil {
		return nil
	}
	scaled := fallback.Mul(minorUnitsScale)
	return &scaled
}

// backfillFromSiblings fills rows that still miss a transaction amount from
// another row of the same exchange event (split/partial records share an
// exchange_rate_id). Candidate siblings are ordered by created_at, then
// reward_id, so the first match is deterministic across runs.
func backfillFromSiblings(rewards []models.Reward) {
	byExchange := make(map[string][]*models.Reward)
	for i := range rewards {
		r := &rewards[i]
		if r.ExchangeRateID != nil && r.TransactionAmount != nil {
			byExchange[*r.ExchangeRateID] = append(byExchange[*r.ExchangeRateID], r)
		}
	}
	for _, siblings := range byExchange {
		sort.Slice(siblings, func(i, j int) bool {
			a, b := siblings[i], siblings[j]
			switch {
			case a.CreatedAt == nil:
				return false
			case b.CreatedAt == nil:
				return true
			case !a.CreatedAt.Equal(*b.CreatedAt):
				return a.CreatedAt.Before(*b.CreatedAt)
			default:
				return a.RewardID < b.RewardID
			}
		})
	}

	for i := range rewards {
		r := &rewards[i]
		if r.TransactionAmount != nil || r.RewardType == models.RewardTypeRebateBonus || r.ExchangeRateID == nil {
			continue
		}
		siblings := byExchange[*r.ExchangeRateID]
		if len(siblings) == 0 {
			continue
		}

		sibling := siblings[0]
		r.TransactionAmount = sibling.TransactionAmount
		if r.TransactionDescription == nil {
			r.TransactionDescription = sibling.TransactionDescription
		}
		if r.TransactionCurrency == nil {
			r.TransactionCurrency = sibling.TransactionCurrency
		}
	}
}

// firstPresent returns the first non-nil value among the given flat keys.
func firstPresent(rec models.Record, keys ...string) any {
	for _, key := range keys {
		if v, ok := rec[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func lookup(rec models.Record, path string) any {
	v, _ := rec.Lookup(path)
	return v
}
