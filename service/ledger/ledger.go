package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soldrip/soldrip/service/metrics"
	"github.com/soldrip/soldrip/service/store"
)

// Ledger is the bounded history of completed airdrops, retained for display
// and audit. It keeps at most store.LedgerCap records, newest first; appends
// beyond the cap evict the oldest record. Eviction is the only removal path
// besides an explicit user-initiated Clear.
type Ledger struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Ledger over the given store.
// If m is nil, no metrics will be recorded.
func New(st store.Store, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:   st,
		metrics: m,
		logger:  logger,
	}
}

// Append records a completed airdrop at the head of the ledger.
func (l *Ledger) Append(ctx context.Context, rec store.Record) error {
	if err := l.store.AppendRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}

	l.logger.DebugContext(ctx, "ledger record appended",
		"address", rec.Address,
		"amount", rec.AmountLabel,
		"network", rec.Network,
		"signature", rec.Signature,
	)

	if l.metrics != nil {
		if records, err := l.store.RecentRecords(ctx, 0); err == nil {
			l.metrics.SetLedgerRecords(float64(len(records)))
		}
	}
	return nil
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything retained.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]store.Record, error) {
	records, err := l.store.RecentRecords(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return records, nil
}

// Clear empties the ledger. Used for explicit user-initiated reset only.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.ClearRecords(ctx); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	l.logger.InfoContext(ctx, "ledger cleared")
	if l.metrics != nil {
		l.metrics.SetLedgerRecords(0)
	}
	return nil
}

// NewRecord builds a display record for a completed grant.
func NewRecord(address string, amountSOL float64, signature, network string, at time.Time) store.Record {
	return store.Record{
		Address:     address,
		AmountLabel: FormatAmount(amountSOL),
		Timestamp:   at,
		Signature:   signature,
		Network:     network,
	}
}

// FormatAmount renders a SOL amount the way the ledger displays it,
// e.g. "1 SOL" or "2.5 SOL".
func FormatAmount(amountSOL float64) string {
	return fmt.Sprintf("%s SOL", trimTrailingZeros(amountSOL))
}

func trimTrailingZeros(f float64) string {
	s := fmt.Sprintf("%.9f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
