package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. It is the default backend and the one
// used by tests; each instance is fully isolated.
type MemoryStore struct {
	mu      sync.RWMutex
	grants  map[string][]Grant
	records []Record // newest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grants: make(map[string][]Grant),
	}
}

func (s *MemoryStore) AppendGrant(ctx context.Context, g Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[g.Address] = append(s.grants[g.Address], g)
	return nil
}

func (s *MemoryStore) GrantsSince(ctx context.Context, address string, cutoff time.Time) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []Grant
	for _, g := range s.grants[address] {
		if g.Timestamp.After(cutoff) {
			active = append(active, g)
		}
	}
	return active, nil
}

func (s *MemoryStore) PruneGrants(ctx context.Context, address string, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.grants[address]
	kept := entries[:0]
	for _, g := range entries {
		if g.Timestamp.After(cutoff) {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		delete(s.grants, address)
		return nil
	}
	s.grants[address] = kept
	return nil
}

func (s *MemoryStore) AppendRecord(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]Record{r}, s.records...)
	if len(s.records) > LedgerCap {
		s.records = s.records[:LedgerCap]
	}
	return nil
}

func (s *MemoryStore) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]Record, limit)
	copy(out, s.records[:limit])
	return out, nil
}

func (s *MemoryStore) ClearRecords(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
