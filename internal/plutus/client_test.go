package plutus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmaliar/cashback-pipeline/internal/apperrors"
)

const testTOTPSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func staticCaptcha(response string) CaptchaSolver {
	return SolverFunc(func(context.Context, string, string) (string, error) {
		return response, nil
	})
}

func newTestClient(t *testing.T, authURL, apiURL, graphqlURL string) *Client {
	t.Helper()

	return NewClient(Config{
		AuthURL:    authURL,
		APIURL:     apiURL,
		GraphQLURL: graphqlURL,
		Email:      "user@example.com",
		Password:   "pwd",
		ClientID:   "client-1",
		SiteKey:    "sitekey-1",
	}, testTOTPSecret, staticCaptcha("captcha-response"), nil)
}

func TestClientLogin(t *testing.T) {
	t.Run("sends credentials and keeps the token", func(t *testing.T) {
		var got loginPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id_token": signedToken(t, time.Now().Add(5*time.Minute)),
			})
		}))
		t.Cleanup(srv.Close)

		c := newTestClient(t, srv.URL, "", "")

		err := c.Login(t.Context())

		require.NoError(t, err)
		require.NotEmpty(t, c.token)
		require.Equal(t, "user@example.com", got.Email)
		require.Equal(t, "pwd", got.Password)
		require.Equal(t, "captcha-response", got.Captcha)
		require.Equal(t, "client-1", got.ClientID)
		require.Len(t, got.Token, 6, "one-time code must be sent")
	})

	t.Run("retries once on stale one-time code", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				_ = json.NewEncoder(w).Encode(map[string]string{}) // no id_token
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id_token": signedToken(t, time.Now().Add(5*time.Minute)),
			})
		}))
		t.Cleanup(srv.Close)

		c := newTestClient(t, srv.URL, "", "")

		err := c.Login(t.Context())

		require.NoError(t, err)
		require.Equal(t, 2, attempts)
		require.NotEmpty(t, c.token)
	})

	t.Run("fails after the retry", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		}))
		t.Cleanup(srv.Close)

		c := newTestClient(t, srv.URL, "", "")

		err := c.Login(t.Context())

		require.ErrorIs(t, err, apperrors.ErrLoginFailed)
	})
}

func TestClientSession(t *testing.T) {
	t.Run("expired token triggers re-login", func(t *testing.T) {
		logins := 0
		auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logins++
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id_token": signedToken(t, time.Now().Add(5*time.Minute)),
			})
		}))
		t.Cleanup(auth.Close)

		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "reward-1"}})
		}))
		t.Cleanup(api.Close)

		c := newTestClient(t, auth.URL, api.URL, "")
		c.token = signedToken(t, time.Now().Add(-time.Minute))

		rewards, err := c.Rewards(t.Context())

		require.NoError(t, err)
		require.Equal(t, 1, logins, "expired token must be renewed before the fetch")
		require.Len(t, rewards, 1)
	})

	t.Run("valid token is reused", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode([]map[string]any{})
		}))
		t.Cleanup(api.Close)

		c := newTestClient(t, "http://auth.invalid", api.URL, "")
		c.token = signedToken(t, time.Now().Add(10*time.Minute))

		_, err := c.Rewards(t.Context())

		require.NoError(t, err, "no login round-trip expected")
	})
}

func TestClientFetch(t *testing.T) {
	token := ""

	t.Run("rewards sends the bearer token", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/platform/transactions/pluton", r.URL.Path)
			require.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))

			_ = json.NewEncoder(w).Encode([]map[string]any{
				{
					"id":     "reward-1",
					"amount": 2.5,
					"contis_transaction": map[string]any{
						"description": "SHOP",
					},
				},
			})
		}))
		t.Cleanup(api.Close)

		c := newTestClient(t, "http://auth.invalid", api.URL, "")
		token = signedToken(t, time.Now().Add(10*time.Minute))
		c.token = token

		rewards, err := c.Rewards(t.Context())

		require.NoError(t, err)
		require.Len(t, rewards, 1)
		require.Equal(t, "reward-1", rewards[0]["id"])

		nested, ok := rewards[0].Lookup("contis_transaction.description")
		require.True(t, ok, "nested payloads must survive decoding")
		require.Equal(t, "SHOP", nested)
	})

	t.Run("transactions posts the graphql query", func(t *testing.T) {
		var got graphqlRequest
		gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"transactions_view": []map[string]any{
						{"id": "txn-1", "amount": float64(-2000)},
					},
				},
			})
		}))
		t.Cleanup(gql.Close)

		c := newTestClient(t, "http://auth.invalid", "", gql.URL)
		c.token = signedToken(t, time.Now().Add(10*time.Minute))

		txns, err := c.Transactions(t.Context(), 300)

		require.NoError(t, err)
		require.Equal(t, "transactions_view", got.OperationName)
		require.Equal(t, float64(300), got.Variables["limit"])
		require.Len(t, txns, 1)
		require.Equal(t, "txn-1", txns[0]["id"])
	})

	t.Run("401 expires the session", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(api.Close)

		c := newTestClient(t, "http://auth.invalid", api.URL, "")
		c.token = signedToken(t, time.Now().Add(10*time.Minute))

		_, err := c.Rewards(t.Context())

		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
		require.Empty(t, c.token, "rejected token must be forgotten")
	})

	t.Run("non-200 is a fetch error", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(api.Close)

		c := newTestClient(t, "http://auth.invalid", api.URL, "")
		c.token = signedToken(t, time.Now().Add(10*time.Minute))

		_, err := c.Rewards(t.Context())

		require.ErrorIs(t, err, apperrors.ErrFetchFailed)
	})
}

func TestClientPerks(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/platform/perks", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"perks": []map[string]any{
				{"id": "p-1", "label": "Coffee", "percent_spent": 40.0, "available": true},
			},
			"next_month_perks": []map[string]any{
				{"id": "p-2", "label": "Groceries"},
			},
			"available": 3,
		})
	}))
	t.Cleanup(api.Close)

	c := newTestClient(t, "http://auth.invalid", api.URL, "")
	c.token = signedToken(t, time.Now().Add(10*time.Minute))

	perks, err := c.Perks(t.Context())
	require.NoError(t, err)
	require.Len(t, perks, 1)
	require.Equal(t, "Coffee", perks[0].Label)

	next, err := c.NextMonthPerks(t.Context())
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Equal(t, "p-2", next[0].ID)

	left, err := c.PerkSpotsLeft(t.Context())
	require.NoError(t, err)
	require.Equal(t, 3, left)
}
