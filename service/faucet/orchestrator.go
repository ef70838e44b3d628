package faucet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/soldrip/soldrip/service/ledger"
	"github.com/soldrip/soldrip/service/metrics"
	"github.com/soldrip/soldrip/service/nats"
	"github.com/soldrip/soldrip/service/ratelimit"
	soln "github.com/soldrip/soldrip/service/solana"
)

// Dispatcher submits a funding instruction and blocks until the resulting
// transaction is confirmed. *solana.Client satisfies this; tests use stubs.
type Dispatcher interface {
	Fund(ctx context.Context, account solanago.PublicKey, lamports uint64) (solanago.Signature, error)
}

// defaultAttempts is the total dispatch attempt budget per request.
const defaultAttempts = 3

// Service is the airdrop request orchestrator. It sequences amount and
// address validation, the per-address rate-limit check, the retrying
// dispatch, and result recording. It is the sole translation point from
// internal and transport errors to the faucet error taxonomy.
type Service struct {
	limiter     *ratelimit.Limiter
	ledger      *ledger.Ledger
	dispatchers map[soln.Network]Dispatcher
	publisher   nats.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	locks       *ratelimit.AddressLocks

	attempts      int
	maxPerRequest uint64 // lamports
	now           func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithAttempts overrides the total dispatch attempt budget.
func WithAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithMaxPerRequest overrides the per-request lamport ceiling.
func WithMaxPerRequest(lamports uint64) Option {
	return func(s *Service) { s.maxPerRequest = lamports }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher attaches a NATS publisher for grant events.
func WithPublisher(p nats.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates the orchestrator.
// If m is nil, no metrics will be recorded.
func NewService(
	limiter *ratelimit.Limiter,
	ldg *ledger.Ledger,
	dispatchers map[soln.Network]Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		limiter:       limiter,
		ledger:        ldg,
		dispatchers:   dispatchers,
		metrics:       m,
		logger:        logger,
		locks:         ratelimit.NewAddressLocks(),
		attempts:      defaultAttempts,
		maxPerRequest: 5 * solanago.LAMPORTS_PER_SOL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes one airdrop request after the security gate admitted it.
type Request struct {
	Address   string
	Network   soln.Network
	AmountSOL float64
}

// Result is the outcome of a successful airdrop.
type Result struct {
	Signature string
	AmountSOL float64
	Message   string
}

// Request validates, rate-limits, dispatches, and records one airdrop.
// Policy rejections (invalid input, rate limit) are never retried; transient
// dispatch failures are retried up to the attempt budget with no backoff.
// On failure the returned error is always a faucet *Error.
func (s *Service) Request(ctx context.Context, req Request) (*Result, error) {
	dispatcher, ok := s.dispatchers[req.Network]
	if !ok {
		return nil, s.reject(ctx, req, unknownError(fmt.Errorf("no dispatcher for network %q", req.Network)))
	}

	lamports := solToLamports(req.AmountSOL)
	if req.AmountSOL <= 0 || lamports == 0 || lamports > s.maxPerRequest {
		return nil, s.reject(ctx, req, invalidAmountError(float64(s.maxPerRequest)/float64(solanago.LAMPORTS_PER_SOL)))
	}

	if !soln.ValidDropTarget(req.Address) {
		return nil, s.reject(ctx, req, invalidWalletError())
	}
	account, err := solanago.PublicKeyFromBase58(req.Address)
	if err != nil {
		return nil, s.reject(ctx, req, invalidWalletError())
	}

	// Serialize check-then-act per address so two concurrent requests cannot
	// both observe "admissible" before either records its grant.
	unlock := s.locks.Lock(req.Address)
	defer unlock()

	now := s.now().UTC()
	admissible, err := s.limiter.IsAdmissible(ctx, req.Address, lamports, now)
	if err != nil {
		return nil, s.reject(ctx, req, unknownError(err))
	}
	if !admissible {
		wait, err := s.limiter.TimeUntilNext(ctx, req.Address, now)
		if err != nil {
			return nil, s.reject(ctx, req, unknownError(err))
		}
		remaining, err := s.limiter.RemainingAllowance(ctx, req.Address, now)
		if err != nil {
			return nil, s.reject(ctx, req, unknownError(err))
		}
		if s.metrics != nil {
			s.metrics.RecordRateLimitRejection(string(req.Network))
		}
		return nil, s.reject(ctx, req, rateLimitedError(wait, remaining))
	}

	sig, err := s.dispatch(ctx, dispatcher, req, account, lamports)
	if err != nil {
		return nil, s.reject(ctx, req, dispatchFailedError(err))
	}

	grantedAt := s.now().UTC()
	if err := s.limiter.RecordGrant(ctx, req.Address, lamports, grantedAt); err != nil {
		// The funds are already on-chain; failing the user now would only
		// mislead. Surface the bookkeeping failure in the logs.
		s.logger.ErrorContext(ctx, "failed to record grant after successful dispatch",
			"address", req.Address,
			"network", req.Network,
			"error", err,
		)
	}

	rec := ledger.NewRecord(req.Address, req.AmountSOL, sig.String(), string(req.Network), grantedAt)
	if err := s.ledger.Append(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to append ledger record after successful dispatch",
			"address", req.Address,
			"signature", sig.String(),
			"error", err,
		)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishGrant(ctx, nats.FromRecord(rec)); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish grant event",
				"address", req.Address,
				"signature", sig.String(),
				"error", err,
			)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordAirdropRequest(string(req.Network), "success")
		s.metrics.RecordGrantedLamports(string(req.Network), float64(lamports))
	}

	s.logger.InfoContext(ctx, "airdrop granted",
		"address", req.Address,
		"network", req.Network,
		"amount_sol", req.AmountSOL,
		"signature", sig.String(),
	)

	return &Result{
		Signature: sig.String(),
		AmountSOL: req.AmountSOL,
		Message:   fmt.Sprintf("Successfully airdropped %s", ledger.FormatAmount(req.AmountSOL)),
	}, nil
}

// dispatch runs the bounded retry loop: up to s.attempts total attempts,
// re-issuing the call immediately on failure. Returns the last error when
// the budget is exhausted.
func (s *Service) dispatch(ctx context.Context, d Dispatcher, req Request, account solanago.PublicKey, lamports uint64) (solanago.Signature, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		sig, err := d.Fund(ctx, account, lamports)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordDispatchAttempt(string(req.Network), "success")
			}
			return sig, nil
		}
		lastErr = err
		if s.metrics != nil {
			s.metrics.RecordDispatchAttempt(string(req.Network), "error")
		}
		s.logger.WarnContext(ctx, "dispatch attempt failed",
			"address", req.Address,
			"network", req.Network,
			"attempt", attempt,
			"error", err,
		)
	}
	return solanago.Signature{}, lastErr
}

// reject records the outcome metric and logs the rejection.
func (s *Service) reject(ctx context.Context, req Request, fe *Error) *Error {
	if s.metrics != nil {
		s.metrics.RecordAirdropRequest(string(req.Network), string(fe.Code))
	}
	s.logger.InfoContext(ctx, "airdrop request rejected",
		"address", req.Address,
		"network", req.Network,
		"code", fe.Code,
		"message", fe.Message,
	)
	return fe
}

// solToLamports converts a SOL amount to lamports, rounding to the nearest
// lamport to absorb float noise.
func solToLamports(amountSOL float64) uint64 {
	if amountSOL <= 0 {
		return 0
	}
	return uint64(amountSOL*float64(solanago.LAMPORTS_PER_SOL) + 0.5)
}
