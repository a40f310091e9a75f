package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientBalance(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/tenant-a/balance", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]int64{"balance_cents": 3000})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Token: "token-1"})
	balance, err := client.Balance(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), balance)
}

func TestClientCharge(t *testing.T) {
	t.Parallel()

	var got chargeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/charges", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Token: "token-1"})
	err := client.Charge(context.Background(), "tenant-a", 3644, "bill-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Equal(t, int64(3644), got.AmountCents)
	assert.Equal(t, "bill-1", got.Reference)
}

func TestClientErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "account frozen", http.StatusConflict)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Token: "token-1"})
	err := client.Refund(context.Background(), "tenant-a", 100, "bill-2")
	assert.ErrorContains(t, err, "409")
	assert.ErrorContains(t, err, "account frozen")
}
