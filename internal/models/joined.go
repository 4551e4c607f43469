package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartitionDateLayout is the calendar-day format of the transaction_date
// partition column in the published dataset.
const PartitionDateLayout = "2006-01-02"

// JoinedColumns is the fixed projection of the joined output, in the order
// the columns are staged and loaded. transaction_date is the partition column.
var JoinedColumns = []string{
	"reward_id",
	"transaction_id",
	"description",
	"plu_amount",
	"transaction_date",
	"transaction_timestamp",
	"available",
	"reason",
	"created_at",
	"updated_at",
	"rebate_rate",
	"fiat_amount_rewarded",
	"currency",
	"reference_type",
	"reward_type",
	"transaction_amount",
	"plu_price",
	"unpriced",
}

// JoinedRow is one reward left-joined to its referenced transaction, with the
// derived transaction_amount and plu_price fields.
//
// Transaction-side fields are nil when no transaction matched (left join).
// PluPrice is nil and Unpriced true when the price could not be derived
// (zero or missing plu_amount, or a rebate-rate row without an amount).
type JoinedRow struct {
	RewardID      string
	TransactionID *string
	Description   *string
	PluAmount     *decimal.Decimal
	TransactionTS *time.Time // full-precision transaction timestamp
	Available     *bool
	Reason        *string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	RebateRate    *decimal.Decimal
	FiatAmount    *decimal.Decimal // fiat_amount_rewarded, major units, absolute
	Currency      *string
	ReferenceType *string
	RewardType    string

	TransactionAmount *decimal.Decimal // abs(amount)/100, major units
	PluPrice          *decimal.Decimal
	Unpriced          bool
}

// Rejected reports whether the row carries the admin-rejection sentinel.
// Rejected rows still reach the warehouse; only reporting skips them.
func (r JoinedRow) Rejected() bool {
	return r.Reason != nil && *r.Reason == ReasonRejectedByAdmin
}

// TransactionDate renders the calendar-day partition value, empty when the
// row has no transaction timestamp.
func (r JoinedRow) TransactionDate() string {
	if r.TransactionTS == nil {
		return ""
	}
	return r.TransactionTS.Format(PartitionDateLayout)
}
