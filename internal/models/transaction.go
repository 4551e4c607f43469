package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one card/ledger movement in canonical schema.
// Amount is kept in minor units (pence) exactly as the source reports it;
// the sign carries debit/credit information.
type Transaction struct {
	TransactionID string
	Model         *string
	UserID        *string
	Currency      *string
	Amount        *decimal.Decimal
	Date          *time.Time
	Type          *string
	Description   *string
}
