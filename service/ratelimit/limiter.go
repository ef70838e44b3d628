package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/soldrip/soldrip/service/store"
)

// Limiter enforces the per-address airdrop policy: a cumulative amount cap
// over a sliding window. A request is admissible iff the sum of grants inside
// the window plus the requested amount stays at or under the cap.
//
// The window is half-open: a grant whose age equals the window exactly is
// already outside it. All methods take the evaluation instant from the caller
// so the limiter stays deterministic and testable.
type Limiter struct {
	store  store.Store
	window time.Duration
	cap    uint64 // lamports per window per address
}

// New creates a Limiter over the given store.
func New(st store.Store, window time.Duration, capLamports uint64) *Limiter {
	return &Limiter{
		store:  st,
		window: window,
		cap:    capLamports,
	}
}

// Window returns the configured sliding window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Cap returns the cumulative lamport cap per window.
func (l *Limiter) Cap() uint64 {
	return l.cap
}

// activeGrants prunes expired history and returns the grants still inside
// the window, oldest first.
func (l *Limiter) activeGrants(ctx context.Context, address string, now time.Time) ([]store.Grant, error) {
	cutoff := now.Add(-l.window)
	if err := l.store.PruneGrants(ctx, address, cutoff); err != nil {
		return nil, fmt.Errorf("failed to prune grant history: %w", err)
	}
	grants, err := l.store.GrantsSince(ctx, address, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load grant history: %w", err)
	}
	return grants, nil
}

// IsAdmissible reports whether granting amount lamports to address at instant
// now would keep the address inside its window allowance.
func (l *Limiter) IsAdmissible(ctx context.Context, address string, amount uint64, now time.Time) (bool, error) {
	grants, err := l.activeGrants(ctx, address, now)
	if err != nil {
		return false, err
	}
	var total uint64
	for _, g := range grants {
		total += g.Lamports
	}
	return total+amount <= l.cap, nil
}

// RemainingAllowance returns how many more lamports the address may receive
// in the current window.
func (l *Limiter) RemainingAllowance(ctx context.Context, address string, now time.Time) (uint64, error) {
	grants, err := l.activeGrants(ctx, address, now)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, g := range grants {
		total += g.Lamports
	}
	if total >= l.cap {
		return 0, nil
	}
	return l.cap - total, nil
}

// TimeUntilNext returns the time remaining until the oldest active grant
// exits the window, freeing allowance. Zero when the address has no active
// grants.
func (l *Limiter) TimeUntilNext(ctx context.Context, address string, now time.Time) (time.Duration, error) {
	grants, err := l.activeGrants(ctx, address, now)
	if err != nil {
		return 0, err
	}
	if len(grants) == 0 {
		return 0, nil
	}
	wait := grants[0].Timestamp.Add(l.window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}

// RecordGrant appends one grant with now as its timestamp. Callers must call
// it exactly once per successful dispatch.
func (l *Limiter) RecordGrant(ctx context.Context, address string, amount uint64, now time.Time) error {
	err := l.store.AppendGrant(ctx, store.Grant{
		Address:   address,
		Lamports:  amount,
		Timestamp: now,
	})
	if err != nil {
		return fmt.Errorf("failed to record grant: %w", err)
	}
	return nil
}
