package pipeline

import (
	"time"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func timePtr(t time.Time) *time.Time { return &t }

func decimalFromInt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
