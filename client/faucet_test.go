package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestAirdrop_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/airdrops", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, "wallet123", body["address"])
		assert.Equal(t, "devnet", body["network"])
		assert.Equal(t, 1.5, body["amount"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"message":   "Successfully airdropped 1.5 SOL",
			"signature": "sig123",
			"amount":    1.5,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	result, err := client.RequestAirdrop(context.Background(), AirdropRequest{
		Address: "wallet123",
		Network: "devnet",
		Amount:  1.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully airdropped 1.5 SOL", result.Message)
	assert.Equal(t, "sig123", result.Signature)
	assert.Equal(t, 1.5, result.Amount)
}

func TestRequestAirdrop_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":             false,
			"message":             "Please wait 23h 59m before requesting another airdrop",
			"error":               "RATE_LIMITED",
			"retry_after_seconds": 86340,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.RequestAirdrop(context.Background(), AirdropRequest{
		Address: "wallet123",
		Network: "devnet",
		Amount:  1,
	})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "RATE_LIMITED", apiErr.Code)
	assert.Equal(t, int64(86340), apiErr.RetryAfterSeconds)
	assert.Contains(t, apiErr.Message, "Please wait")
}

func TestRequestAirdrop_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.RequestAirdrop(context.Background(), AirdropRequest{Address: "w", Network: "devnet", Amount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"transactions": []map[string]interface{}{
				{"address": "wallet123", "amount": "1 SOL", "signature": "sig1", "network": "devnet"},
				{"address": "wallet456", "amount": "2.5 SOL", "signature": "sig2", "network": "testnet"},
			},
			"count": 2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txs, err := client.Transactions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "wallet123", txs[0].Address)
	assert.Equal(t, "1 SOL", txs[0].Amount)
	assert.Equal(t, "testnet", txs[1].Network)
}

func TestClearTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	assert.NoError(t, client.ClearTransactions(context.Background()))
}

func TestAllowance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/allowance/wallet123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"address":       "wallet123",
			"remaining_sol": 3.5,
			"wait_seconds":  7200,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	allowance, err := client.Allowance(context.Background(), "wallet123")
	require.NoError(t, err)
	assert.Equal(t, 3.5, allowance.RemainingSOL)
	assert.Equal(t, int64(7200), allowance.WaitSeconds)
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/status", r.URL.Path)
		assert.Equal(t, "testnet", r.URL.Query().Get("network"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"network":    "testnet",
			"status":     "degraded",
			"latency_ms": 1800,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	status, err := client.Status(context.Background(), "testnet")
	require.NoError(t, err)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, int64(1800), status.LatencyMS)
}

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/balance/wallet123", r.URL.Path)
		assert.Equal(t, "devnet", r.URL.Query().Get("network"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"address":     "wallet123",
			"network":     "devnet",
			"balance_sol": 2.25,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	balance, err := client.Balance(context.Background(), "wallet123", "devnet")
	require.NoError(t, err)
	assert.Equal(t, 2.25, balance.BalanceSOL)
}
