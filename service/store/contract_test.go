package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behavior every Store implementation must share.
// Backend-specific suites call it after constructing a clean instance.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	// Grant history: append, window filter, prune.
	require.NoError(t, s.AppendGrant(ctx, Grant{Address: "addr1", Lamports: 1e9, Timestamp: now.Add(-30 * time.Hour)}))
	require.NoError(t, s.AppendGrant(ctx, Grant{Address: "addr1", Lamports: 2e9, Timestamp: now.Add(-2 * time.Hour)}))
	require.NoError(t, s.AppendGrant(ctx, Grant{Address: "addr1", Lamports: 3e9, Timestamp: now.Add(-1 * time.Hour)}))

	active, err := s.GrantsSince(ctx, "addr1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, uint64(2e9), active[0].Lamports)
	assert.Equal(t, uint64(3e9), active[1].Lamports)

	require.NoError(t, s.PruneGrants(ctx, "addr1", now.Add(-90*time.Minute)))
	remaining, err := s.GrantsSince(ctx, "addr1", now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, uint64(3e9), remaining[0].Lamports)

	// Ledger: cap, ordering, clear.
	for i := 0; i < LedgerCap+5; i++ {
		require.NoError(t, s.AppendRecord(ctx, Record{
			Address:     "addr1",
			AmountLabel: "1 SOL",
			Signature:   fmt.Sprintf("sig-%d", i),
			Network:     "devnet",
			Timestamp:   now.Add(time.Duration(i) * time.Second),
		}))
	}
	records, err := s.RecentRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, LedgerCap)
	assert.Equal(t, fmt.Sprintf("sig-%d", LedgerCap+4), records[0].Signature)
	assert.Equal(t, "sig-5", records[LedgerCap-1].Signature)

	require.NoError(t, s.ClearRecords(ctx))
	records, err = s.RecentRecords(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPostgresStore_Contract(t *testing.T) {
	s := NewTestPostgresStore(t)
	exerciseStore(t, s)
}

func TestRedisStore_Contract(t *testing.T) {
	s := NewTestRedisStore(t)
	exerciseStore(t, s)
}
