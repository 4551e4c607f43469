package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordLookup(t *testing.T) {
	rec := Record{
		"id": "r-1",
		"contis_transaction": map[string]any{
			"description": "NESTED",
			"api_response": map[string]any{
				"TransactionAmount": float64(15),
			},
		},
		"fiat_transaction.card_transactions.description": "FLAT",
	}

	t.Run("flat key", func(t *testing.T) {
		v, ok := rec.Lookup("id")
		require.True(t, ok)
		require.Equal(t, "r-1", v)
	})

	t.Run("nested path", func(t *testing.T) {
		v, ok := rec.Lookup("contis_transaction.api_response.TransactionAmount")
		require.True(t, ok)
		require.Equal(t, float64(15), v)
	})

	t.Run("dotted key wins over nesting", func(t *testing.T) {
		v, ok := rec.Lookup("fiat_transaction.card_transactions.description")
		require.True(t, ok)
		require.Equal(t, "FLAT", v)
	})

	t.Run("missing path", func(t *testing.T) {
		_, ok := rec.Lookup("contis_transaction.currency")
		require.False(t, ok)

		_, ok = rec.Lookup("nope")
		require.False(t, ok)
	})
}
