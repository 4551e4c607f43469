package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// RewardTypeRebateBonus marks bonus grants that are not tied to a card
	// transaction. Such rows legitimately have no transaction description.
	RewardTypeRebateBonus = "REBATE_BONUS"

	// ReasonRejectedByAdmin is the exact sentinel the upstream sets on rewards
	// revoked by support. Rejected rows are still loaded into the warehouse;
	// only reporting aggregation excludes them.
	ReasonRejectedByAdmin = "Rejected by admin"
)

// Reward is one cashback grant in canonical schema, after field reconciliation.
//
// TransactionAmount and TransactionDescription hold the already reconciled
// values: the card-processor path wins when present, the fallback payment
// integration path fills gaps. Both stay nil when neither path had a value.
type Reward struct {
	RewardID       string
	ReferenceID    *string
	ReferenceType  *string
	RewardType     string
	PluAmount      *decimal.Decimal
	RebateRate     *decimal.Decimal
	BaseRate       *decimal.Decimal
	StakingRate    *decimal.Decimal
	FiatAmount     *decimal.Decimal // fiat_amount_rewarded, minor units, signed
	Available      *bool
	Reason         *string
	ExchangeRateID *string
	CreatedAt      *time.Time
	UpdatedAt      *time.Time

	TransactionAmount      *decimal.Decimal // minor units, reconciled
	TransactionDescription *string
	TransactionCurrency    *string
}
