package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the faucet state in Postgres. It owns two tables:
// airdrop_grants (the per-address history) and faucet_transactions (the
// capped display ledger).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool. Call EnsureSchema once
// at startup before serving requests.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the faucet tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS airdrop_grants (
	id         BIGSERIAL PRIMARY KEY,
	address    TEXT NOT NULL,
	lamports   BIGINT NOT NULL,
	granted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_airdrop_grants_address_time
	ON airdrop_grants (address, granted_at);

CREATE TABLE IF NOT EXISTS faucet_transactions (
	id         BIGSERIAL PRIMARY KEY,
	address    TEXT NOT NULL,
	amount     TEXT NOT NULL,
	signature  TEXT NOT NULL,
	network    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create faucet schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendGrant(ctx context.Context, g Grant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO airdrop_grants (address, lamports, granted_at) VALUES ($1, $2, $3)`,
		g.Address, int64(g.Lamports), pgtype.Timestamptz{Time: g.Timestamp, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GrantsSince(ctx context.Context, address string, cutoff time.Time) ([]Grant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, lamports, granted_at
		 FROM airdrop_grants
		 WHERE address = $1 AND granted_at > $2
		 ORDER BY granted_at ASC`,
		address, pgtype.Timestamptz{Time: cutoff, Valid: true},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var lamports int64
		var grantedAt pgtype.Timestamptz
		if err := rows.Scan(&g.Address, &lamports, &grantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		g.Lamports = uint64(lamports)
		g.Timestamp = grantedAt.Time
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *PostgresStore) PruneGrants(ctx context.Context, address string, cutoff time.Time) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM airdrop_grants WHERE address = $1 AND granted_at <= $2`,
		address, pgtype.Timestamptz{Time: cutoff, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("failed to prune grants: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendRecord(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO faucet_transactions (address, amount, signature, network, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.Address, r.AmountLabel, r.Signature, r.Network,
		pgtype.Timestamptz{Time: r.Timestamp, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger record: %w", err)
	}

	// Evict everything beyond the retention cap, oldest first.
	_, err = s.pool.Exec(ctx,
		`DELETE FROM faucet_transactions
		 WHERE id NOT IN (
			SELECT id FROM faucet_transactions ORDER BY id DESC LIMIT $1
		 )`,
		LedgerCap,
	)
	if err != nil {
		return fmt.Errorf("failed to trim ledger: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > LedgerCap {
		limit = LedgerCap
	}
	rows, err := s.pool.Query(ctx,
		`SELECT address, amount, signature, network, created_at
		 FROM faucet_transactions
		 ORDER BY id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&r.Address, &r.AmountLabel, &r.Signature, &r.Network, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		r.Timestamp = createdAt.Time
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) ClearRecords(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM faucet_transactions`); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
