package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// MonthlySummary aggregates rewards granted within one calendar month of
// created_at. Price stats are nil for months where no row had a price.
type MonthlySummary struct {
	Month string // "2006-01"

	PluSum    decimal.Decimal
	PriceMean *decimal.Decimal
	PriceMax  *decimal.Decimal
	PriceMin  *decimal.Decimal
}

// MonthlyReport builds the per-month reward aggregation used for reporting.
//
// Rows with reason "Rejected by admin" are excluded here and only here: the
// warehouse still receives them. Rows without created_at cannot be assigned
// to a month and are skipped. Results are rounded to 2 decimal places and
// sorted by month.
func MonthlyReport(rows []models.JoinedRow) []MonthlySummary {
	type bucket struct {
		pluSum     decimal.Decimal
		priceSum   decimal.Decimal
		priceCount int64
		priceMax   *decimal.Decimal
		priceMin   *decimal.Decimal
	}

	buckets := make(map[string]*bucket)
	for _, row := range rows {
		if row.Rejected() {
			continue
		}
		if row.CreatedAt == nil {
			continue
		}

		month := row.CreatedAt.Format("2006-01")
		b := buckets[month]
		if b == nil {
			b = &bucket{}
			buckets[month] = b
		}

		if row.PluAmount != nil {
			b.pluSum = b.pluSum.Add(*row.PluAmount)
		}
		if row.PluPrice != nil {
			b.priceSum = b.priceSum.Add(*row.PluPrice)
			b.priceCount++
			if b.priceMax == nil || row.PluPrice.GreaterThan(*b.priceMax) {
				b.priceMax = row.PluPrice
			}
			if b.priceMin == nil || row.PluPrice.LessThan(*b.priceMin) {
				b.priceMin = row.PluPrice
			}
		}
	}

	out := make([]MonthlySummary, 0, len(buckets))
	for month, b := range buckets {
		s := MonthlySummary{
			Month:  month,
			PluSum: b.pluSum.Round(2),
		}
		if b.priceCount > 0 {
			mean := b.priceSum.DivRound(decimal.NewFromInt(b.priceCount), 2)
			max := b.priceMax.Round(2)
			min := b.priceMin.Round(2)
			s.PriceMean = &mean
			s.PriceMax = &max
			s.PriceMin = &min
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })

	return out
}
