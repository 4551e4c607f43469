package pipeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Per-cell type coercion. Every function returns nil on values it cannot
// interpret: a bad cell becomes a null, it never fails the batch.
//
// The same coercion table is used on the way in (normalization) and on the
// way out (final projection), so re-coercing an already coerced value is
// always a no-op.

// timestampLayouts are tried in order. The source mixes RFC 3339 payloads
// (API) with the stripped forms pandas used to write into snapshots.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// coerceString normalizes a value to *string. Empty and literal null cells
// count as missing.
func coerceString(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "null" || s == "NaN" {
			return nil
		}
		return &s
	case bool:
		s := strconv.FormatBool(val)
		return &s
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	case decimal.Decimal:
		s := val.String()
		return &s
	default:
		return nil
	}
}

// coerceDecimal normalizes a value to a signed decimal.
func coerceDecimal(v any) *decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return &val
	case *decimal.Decimal:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		d := decimal.NewFromFloat(val)
		return &d
	case int:
		d := decimal.NewFromInt(int64(val))
		return &d
	case int64:
		d := decimal.NewFromInt(val)
		return &d
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "null" || s == "NaN" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	default:
		return nil
	}
}

// coerceUnsignedDecimal is coerceDecimal with the sign discarded.
func coerceUnsignedDecimal(v any) *decimal.Decimal {
	d := coerceDecimal(v)
	if d == nil {
		return nil
	}
	abs := d.Abs()
	return &abs
}

// coerceBool normalizes a value to *bool.
func coerceBool(v any) *bool {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return &val
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return nil
		}
		return &b
	default:
		return nil
	}
}

// coerceTime normalizes a value to *time.Time in UTC. String inputs may be
// any known layout; numeric inputs are unix epoch (milliseconds when the
// magnitude says seconds cannot be meant).
func coerceTime(v any) *time.Time {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		t := val.UTC()
		return &t
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "null" {
			return nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochToTime(epoch)
		}
		return nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return epochToTime(int64(val))
	case int64:
		return epochToTime(val)
	case int:
		return epochToTime(int64(val))
	default:
		return nil
	}
}

// epochToTime interprets values above 1e12 as milliseconds, else as seconds.
func epochToTime(epoch int64) *time.Time {
	var t time.Time
	if epoch > 1_000_000_000_000 {
		t = time.UnixMilli(epoch).UTC()
	} else {
		t = time.Unix(epoch, 0).UTC()
	}
	return &t
}
