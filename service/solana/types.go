package solana

// Network identifies which Solana test cluster a request targets.
type Network string

const (
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

// ParseNetwork converts a user-supplied network string.
func ParseNetwork(s string) (Network, bool) {
	switch Network(s) {
	case NetworkDevnet, NetworkTestnet:
		return Network(s), true
	}
	return "", false
}

// DefaultRPCURL returns the public RPC endpoint for a network.
func DefaultRPCURL(n Network) string {
	switch n {
	case NetworkTestnet:
		return "https://api.testnet.solana.com"
	default:
		return "https://api.devnet.solana.com"
	}
}

// HealthStatus classifies a network health probe.
type HealthStatus string

const (
	StatusOperational HealthStatus = "operational"
	StatusDegraded    HealthStatus = "degraded"
	StatusError       HealthStatus = "error"
)

// HealthSample is the result of a single round-trip health probe.
// Only the most recent sample is ever held; there is no history.
type HealthSample struct {
	LatencyMillis int64        `json:"latency_ms"`
	Status        HealthStatus `json:"status"`
}
