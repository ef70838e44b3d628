package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/soldrip/soldrip/service/metrics"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	RequestAirdrop(
		ctx context.Context,
		account solanago.PublicKey,
		lamports uint64,
		commitment rpc.CommitmentType,
	) (solanago.Signature, error)

	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solanago.Signature,
	) (*rpc.GetSignatureStatusesResult, error)

	GetVersion(ctx context.Context) (*rpc.GetVersionResult, error)

	GetBalance(
		ctx context.Context,
		account solanago.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)
}

// Client is the faucet's call surface to one Solana test cluster. It wraps
// the RPC client with the funding call (submit + confirm), the health probe,
// and a balance lookup.
type Client struct {
	rpc     RPCClient
	network Network
	metrics *metrics.Metrics
	logger  *slog.Logger

	confirmTimeout   time.Duration
	confirmInterval  time.Duration
	degradedLatency  time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithConfirmTimeout bounds how long Fund waits for transaction confirmation.
func WithConfirmTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.confirmTimeout = d }
}

// WithConfirmInterval sets how often Fund polls for confirmation.
func WithConfirmInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.confirmInterval = d }
}

// NewClient creates a new client for one network.
// If m is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, network Network, m *metrics.Metrics, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		rpc:             rpcClient,
		network:         network,
		metrics:         m,
		logger:          logger,
		confirmTimeout:  30 * time.Second,
		confirmInterval: 500 * time.Millisecond,
		degradedLatency: 1500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Network returns the cluster this client targets.
func (c *Client) Network() Network {
	return c.network
}

// Probe performs a single round-trip health check against the cluster.
// It never returns an error: any failure yields an Error sample with zero
// latency.
func (c *Client) Probe(ctx context.Context) HealthSample {
	start := time.Now()
	_, err := c.rpc.GetVersion(ctx)
	latency := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("GetVersion", status, string(c.network), latency.Seconds())
	}

	if err != nil {
		c.logger.WarnContext(ctx, "network health probe failed",
			"network", c.network,
			"error", err,
		)
		return HealthSample{LatencyMillis: 0, Status: StatusError}
	}

	sample := HealthSample{LatencyMillis: latency.Milliseconds(), Status: StatusOperational}
	if latency > c.degradedLatency {
		sample.Status = StatusDegraded
	}
	return sample
}

// Fund submits an airdrop of lamports to account and blocks until the
// resulting transaction is confirmed by the cluster. Any submission or
// confirmation failure is returned to the caller, which treats it as
// retryable.
func (c *Client) Fund(ctx context.Context, account solanago.PublicKey, lamports uint64) (solanago.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.RequestAirdrop(ctx, account, lamports, rpc.CommitmentConfirmed)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("RequestAirdrop", status, string(c.network), duration)
	}

	if err != nil {
		return solanago.Signature{}, fmt.Errorf("airdrop submission failed: %w", err)
	}

	c.logger.DebugContext(ctx, "airdrop submitted, awaiting confirmation",
		"network", c.network,
		"account", account.String(),
		"lamports", lamports,
		"signature", sig.String(),
	)

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return solanago.Signature{}, err
	}
	return sig, nil
}

// awaitConfirmation polls signature status until the transaction reaches
// confirmed or finalized commitment, or the confirmation timeout elapses.
func (c *Client) awaitConfirmation(ctx context.Context, sig solanago.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation timed out for %s: %w", sig.String(), ctx.Err())
		case <-ticker.C:
		}

		start := time.Now()
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}
		if c.metrics != nil {
			c.metrics.RecordRPCCall("GetSignatureStatuses", status, string(c.network), duration)
		}

		if err != nil {
			// Transient status-poll errors are retried on the next tick.
			c.logger.DebugContext(ctx, "signature status poll failed",
				"signature", sig.String(),
				"error", err,
			)
			continue
		}

		if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
			continue // not yet visible to the cluster
		}

		st := out.Value[0]
		if st.Err != nil {
			return fmt.Errorf("transaction %s failed on-chain: %v", sig.String(), st.Err)
		}
		switch st.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
}

// Balance returns the account balance in SOL. Lookup failures are logged and
// reported as zero rather than surfaced, matching the display-only use.
func (c *Client) Balance(ctx context.Context, account solanago.PublicKey) float64 {
	start := time.Now()
	out, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("GetBalance", status, string(c.network), duration)
	}

	if err != nil {
		c.logger.WarnContext(ctx, "failed to fetch balance",
			"network", c.network,
			"account", account.String(),
			"error", err,
		)
		return 0
	}
	return float64(out.Value) / float64(solanago.LAMPORTS_PER_SOL)
}
