package nats

import (
	"time"

	"github.com/soldrip/soldrip/service/store"
)

// GrantEvent represents a completed airdrop published to NATS.
// This is published to the subject "airdrops.{address}" in JetStream.
type GrantEvent struct {
	// Transaction identifiers
	Signature string `json:"signature"`

	// Grant details
	Address     string `json:"address"`
	Network     string `json:"network"`
	AmountLabel string `json:"amount"`

	// Timing information
	Timestamp   time.Time `json:"timestamp"`
	PublishedAt time.Time `json:"published_at"`
}

// FromRecord converts a ledger record to a GrantEvent for publishing.
func FromRecord(rec store.Record) *GrantEvent {
	return &GrantEvent{
		Signature:   rec.Signature,
		Address:     rec.Address,
		Network:     rec.Network,
		AmountLabel: rec.AmountLabel,
		Timestamp:   rec.Timestamp,
		PublishedAt: time.Now().UTC(),
	}
}
