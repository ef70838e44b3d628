package ratelimit

import "sync"

// AddressLocks serializes the check-then-act sequence per address. Two
// concurrent requests for the same address could otherwise both observe
// "admissible" before either records its grant, permitting a double grant.
// Requests for different addresses proceed independently.
type AddressLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewAddressLocks creates an empty lock set.
func NewAddressLocks() *AddressLocks {
	return &AddressLocks{
		entries: make(map[string]*lockEntry),
	}
}

// Lock acquires the mutex for address and returns its release function.
// Entries are reference-counted and removed when unused, so the map does not
// grow with the set of addresses ever seen.
func (a *AddressLocks) Lock(address string) (unlock func()) {
	a.mu.Lock()
	entry, ok := a.entries[address]
	if !ok {
		entry = &lockEntry{}
		a.entries[address] = entry
	}
	entry.refs++
	a.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		a.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(a.entries, address)
		}
		a.mu.Unlock()
	}
}
