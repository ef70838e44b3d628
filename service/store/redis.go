package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	grantKeyPrefix = "faucet:grants:" // + address, JSON array of Grant
	ledgerKey      = "faucet:ledger"  // list of JSON Record, newest first

	// grantKeyTTL bounds how long an idle address's history survives. It only
	// needs to outlive the rate-limit window; 48h covers any sane window.
	grantKeyTTL = 48 * time.Hour
)

// RedisStore persists the faucet state in Redis: one JSON-array key per
// address for the grant history, and a single capped list for the ledger.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) loadGrants(ctx context.Context, address string) ([]Grant, error) {
	raw, err := s.client.Get(ctx, grantKeyPrefix+address).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load grants for %s: %w", address, err)
	}
	var grants []Grant
	if err := json.Unmarshal(raw, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode grants for %s: %w", address, err)
	}
	return grants, nil
}

func (s *RedisStore) saveGrants(ctx context.Context, address string, grants []Grant) error {
	key := grantKeyPrefix + address
	if len(grants) == 0 {
		return s.client.Del(ctx, key).Err()
	}
	raw, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("failed to encode grants for %s: %w", address, err)
	}
	return s.client.Set(ctx, key, raw, grantKeyTTL).Err()
}

func (s *RedisStore) AppendGrant(ctx context.Context, g Grant) error {
	grants, err := s.loadGrants(ctx, g.Address)
	if err != nil {
		return err
	}
	return s.saveGrants(ctx, g.Address, append(grants, g))
}

func (s *RedisStore) GrantsSince(ctx context.Context, address string, cutoff time.Time) ([]Grant, error) {
	grants, err := s.loadGrants(ctx, address)
	if err != nil {
		return nil, err
	}
	var active []Grant
	for _, g := range grants {
		if g.Timestamp.After(cutoff) {
			active = append(active, g)
		}
	}
	return active, nil
}

func (s *RedisStore) PruneGrants(ctx context.Context, address string, cutoff time.Time) error {
	grants, err := s.loadGrants(ctx, address)
	if err != nil {
		return err
	}
	kept := grants[:0]
	for _, g := range grants {
		if g.Timestamp.After(cutoff) {
			kept = append(kept, g)
		}
	}
	return s.saveGrants(ctx, address, kept)
}

func (s *RedisStore) AppendRecord(ctx context.Context, r Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode ledger record: %w", err)
	}

	// LPUSH + LTRIM keeps the list head-inserted and capped in one pipeline.
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, ledgerKey, raw)
	pipe.LTrim(ctx, ledgerKey, 0, int64(LedgerCap)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > LedgerCap {
		limit = LedgerCap
	}
	rows, err := s.client.LRange(ctx, ledgerKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var r Record
		if err := json.Unmarshal([]byte(row), &r); err != nil {
			return nil, fmt.Errorf("failed to decode ledger record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *RedisStore) ClearRecords(ctx context.Context) error {
	return s.client.Del(ctx, ledgerKey).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
