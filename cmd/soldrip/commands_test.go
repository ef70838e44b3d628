package main

import (
	"testing"
	"time"

	"github.com/soldrip/soldrip/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplorerURL(t *testing.T) {
	assert.Equal(t,
		"https://explorer.solana.com/tx/sig123?cluster=devnet",
		explorerURL("sig123", "devnet"))
	assert.Equal(t,
		"https://explorer.solana.com/tx/sig456?cluster=testnet",
		explorerURL("sig456", "testnet"))
}

func TestCompileFilters_Invalid(t *testing.T) {
	_, err := compileFilters([]string{".network =="})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestMatchesFilters(t *testing.T) {
	tx := client.Transaction{
		Address:   "wallet123",
		Amount:    "2.5 SOL",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Signature: "sig123",
		Network:   "devnet",
	}

	tests := []struct {
		name    string
		filters []string
		want    bool
	}{
		{"no filters", nil, true},
		{"network match", []string{`.network == "devnet"`}, true},
		{"network mismatch", []string{`.network == "testnet"`}, false},
		{"amount label", []string{`.amount == "2.5 SOL"`}, true},
		{"select expression", []string{`select(.address == "wallet123")`}, true},
		{"select no result", []string{`select(.address == "other")`}, false},
		{"all filters must pass", []string{`.network == "devnet"`, `.signature == "nope"`}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := compileFilters(tt.filters)
			require.NoError(t, err)

			got, err := matchesFilters(tx, filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy("devnet"))
	assert.True(t, isTruthy(0.0))
	assert.False(t, isTruthy(false))
	assert.False(t, isTruthy(nil))
}
