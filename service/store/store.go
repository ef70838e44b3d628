package store

import (
	"context"
	"time"
)

// LedgerCap is the maximum number of transaction records retained.
// Appends beyond the cap evict the oldest record first.
const LedgerCap = 50

// Grant is one historical airdrop to an address. Grants are immutable once
// written; the rate limiter derives its per-address state from them.
type Grant struct {
	Address   string    `json:"address"`
	Lamports  uint64    `json:"lamports"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is one entry in the displayed transaction ledger.
type Record struct {
	Address     string    `json:"address"`
	AmountLabel string    `json:"amount"` // e.g. "1 SOL"
	Timestamp   time.Time `json:"timestamp"`
	Signature   string    `json:"signature"`
	Network     string    `json:"network"` // "devnet" or "testnet"
}

// Store is the persistence port for the two faucet record shapes: the
// per-address grant history consumed by the rate limiter, and the flat capped
// transaction ledger. Implementations must be safe for concurrent use.
type Store interface {
	// AppendGrant appends a grant to the address's history.
	AppendGrant(ctx context.Context, g Grant) error

	// GrantsSince returns the address's grants with Timestamp strictly after
	// the cutoff, in chronological order. An address with no history returns
	// an empty slice, not an error.
	GrantsSince(ctx context.Context, address string, cutoff time.Time) ([]Grant, error)

	// PruneGrants drops grants with Timestamp at or before the cutoff.
	PruneGrants(ctx context.Context, address string, cutoff time.Time) error

	// AppendRecord inserts a ledger record at the head, evicting the oldest
	// records beyond LedgerCap.
	AppendRecord(ctx context.Context, r Record) error

	// RecentRecords returns up to limit records, newest first.
	RecentRecords(ctx context.Context, limit int) ([]Record, error)

	// ClearRecords empties the ledger.
	ClearRecords(ctx context.Context) error

	// Close releases any underlying connections.
	Close() error
}
