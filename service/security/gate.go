package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soldrip/soldrip/service/metrics"
)

// Gate rejection reasons. Both are non-retryable until a fresh proof or
// budget is available.
var (
	ErrCaptchaFailed     = errors.New("captcha verification failed")
	ErrClientRateLimited = errors.New("client request budget exhausted")
)

// Gate is the external-facing abuse control in front of the orchestrator.
// It verifies a CAPTCHA proof token and applies a per-client token bucket,
// in that order, and runs strictly before any address-level check. The
// client bucket is keyed by network origin (client IP), so it blunts
// scripted abuse from one origin even across different target addresses.
type Gate struct {
	verifier Verifier
	buckets  *ClientLimiters
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewGate creates a security gate. If verifier is nil, CAPTCHA verification
// is skipped (useful for local development). If m is nil, no metrics will be
// recorded.
func NewGate(verifier Verifier, buckets *ClientLimiters, m *metrics.Metrics, logger *slog.Logger) *Gate {
	return &Gate{
		verifier: verifier,
		buckets:  buckets,
		metrics:  m,
		logger:   logger,
	}
}

// Admit decides whether a request from clientID carrying proofToken may
// enter the faucet. Returns nil on admission, or ErrCaptchaFailed /
// ErrClientRateLimited (possibly wrapped) on denial.
func (g *Gate) Admit(ctx context.Context, proofToken, clientID string) error {
	if g.verifier != nil {
		ok, err := g.verifier.Verify(ctx, proofToken)
		if err != nil {
			// The verification service being unreachable is indistinguishable
			// from a failed proof as far as admission goes.
			g.logger.WarnContext(ctx, "captcha verification errored",
				"client", clientID,
				"error", err,
			)
			if g.metrics != nil {
				g.metrics.RecordCaptchaVerification("error")
			}
			return fmt.Errorf("%w: %v", ErrCaptchaFailed, err)
		}
		if !ok {
			g.logger.InfoContext(ctx, "captcha verification rejected", "client", clientID)
			if g.metrics != nil {
				g.metrics.RecordCaptchaVerification("failure")
			}
			return ErrCaptchaFailed
		}
		if g.metrics != nil {
			g.metrics.RecordCaptchaVerification("success")
		}
	}

	if g.buckets != nil && !g.buckets.Allow(clientID) {
		g.logger.InfoContext(ctx, "client request budget exhausted", "client", clientID)
		if g.metrics != nil {
			g.metrics.RecordClientThrottle()
		}
		return ErrClientRateLimited
	}

	return nil
}
