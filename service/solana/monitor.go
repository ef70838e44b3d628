package solana

import (
	"context"
	"sync"
	"time"
)

// StatusMonitor caches the most recent health sample per network so that
// status reads don't translate one-for-one into RPC round trips. Samples are
// refreshed lazily when older than the refresh interval.
type StatusMonitor struct {
	clients map[Network]*Client
	refresh time.Duration

	mu        sync.Mutex
	samples   map[Network]HealthSample
	sampledAt map[Network]time.Time
}

// NewStatusMonitor creates a monitor over the given per-network clients.
func NewStatusMonitor(clients map[Network]*Client, refresh time.Duration) *StatusMonitor {
	if refresh <= 0 {
		refresh = 10 * time.Second
	}
	return &StatusMonitor{
		clients:   clients,
		refresh:   refresh,
		samples:   make(map[Network]HealthSample),
		sampledAt: make(map[Network]time.Time),
	}
}

// Sample returns the most recent health sample for the network, probing the
// cluster if the cached sample is stale or absent. Unknown networks report an
// Error sample.
func (m *StatusMonitor) Sample(ctx context.Context, network Network) HealthSample {
	client, ok := m.clients[network]
	if !ok {
		return HealthSample{Status: StatusError}
	}

	m.mu.Lock()
	sample, have := m.samples[network]
	fresh := have && time.Since(m.sampledAt[network]) < m.refresh
	m.mu.Unlock()

	if fresh {
		return sample
	}

	sample = client.Probe(ctx)

	m.mu.Lock()
	m.samples[network] = sample
	m.sampledAt[network] = time.Now()
	m.mu.Unlock()

	return sample
}
