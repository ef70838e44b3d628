package faucet

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/soldrip/soldrip/service/ledger"
	"github.com/soldrip/soldrip/service/nats"
	"github.com/soldrip/soldrip/service/ratelimit"
	soln "github.com/soldrip/soldrip/service/solana"
	"github.com/soldrip/soldrip/service/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sol = uint64(solanago.LAMPORTS_PER_SOL)

// stubDispatcher fails a configurable number of times before succeeding.
type stubDispatcher struct {
	failures int
	calls    int
	sig      solanago.Signature
}

func (d *stubDispatcher) Fund(ctx context.Context, account solanago.PublicKey, lamports uint64) (solanago.Signature, error) {
	d.calls++
	if d.calls <= d.failures {
		return solanago.Signature{}, errors.New("airdrop request failed: rate limited by cluster")
	}
	return d.sig, nil
}

type fixture struct {
	service    *Service
	store      *store.MemoryStore
	limiter    *ratelimit.Limiter
	ledger     *ledger.Ledger
	dispatcher *stubDispatcher
	publisher  *nats.MockPublisher
	now        time.Time
}

func newFixture(t *testing.T, dispatcherFailures int) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	limiter := ratelimit.New(st, 24*time.Hour, 5*sol)
	ldg := ledger.New(st, nil, logger)
	dispatcher := &stubDispatcher{
		failures: dispatcherFailures,
		sig:      solanago.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"),
	}
	publisher := nats.NewMockPublisher()

	f := &fixture{
		store:      st,
		limiter:    limiter,
		ledger:     ldg,
		dispatcher: dispatcher,
		publisher:  publisher,
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewService(
		limiter,
		ldg,
		map[soln.Network]Dispatcher{soln.NetworkDevnet: dispatcher},
		nil,
		logger,
		WithPublisher(publisher),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func testAddress() string {
	return solanago.NewWallet().PublicKey().String()
}

func TestRequest_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	addr := testAddress()

	result, err := f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: 1})
	require.NoError(t, err)

	assert.Equal(t, f.dispatcher.sig.String(), result.Signature)
	assert.Equal(t, 1.0, result.AmountSOL)
	assert.Equal(t, "Successfully airdropped 1 SOL", result.Message)

	// Ledger gained exactly one record.
	records, err := f.ledger.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, addr, records[0].Address)
	assert.Equal(t, "1 SOL", records[0].AmountLabel)
	assert.Equal(t, "devnet", records[0].Network)

	// Allowance dropped accordingly.
	remaining, err := f.limiter.RemainingAllowance(ctx, addr, f.now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 4*sol, remaining)

	// Grant event published.
	events := f.publisher.PublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, addr, events[0].Address)
}

func TestRequest_RetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2) // fail twice, succeed on the third attempt

	result, err := f.service.Request(ctx, Request{Address: testAddress(), Network: soln.NetworkDevnet, AmountSOL: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, f.dispatcher.calls)
	assert.NotEmpty(t, result.Signature)
}

func TestRequest_DispatchFailedAfterThreeAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100) // always fails
	addr := testAddress()

	_, err := f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: 1})
	require.Error(t, err)

	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeDispatchFailed, fe.Code)
	assert.Equal(t, 3, f.dispatcher.calls)
	assert.Contains(t, errors.Unwrap(fe).Error(), "rate limited by cluster")

	// Failed dispatch must not consume allowance or touch the ledger.
	remaining, err := f.limiter.RemainingAllowance(ctx, addr, f.now)
	require.NoError(t, err)
	assert.Equal(t, 5*sol, remaining)

	records, err := f.ledger.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRequest_InvalidWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.service.Request(ctx, Request{Address: "not-a-real-address", Network: soln.NetworkDevnet, AmountSOL: 1})
	require.Error(t, err)

	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidWallet, fe.Code)

	// No dispatch, no ledger mutation, no limiter mutation.
	assert.Zero(t, f.dispatcher.calls)
	records, err := f.ledger.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRequest_InvalidAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	addr := testAddress()

	for _, amount := range []float64{0, -1, 5.5} {
		_, err := f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: amount})
		require.Error(t, err, "amount %v", amount)

		fe, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, CodeInvalidAmount, fe.Code)
	}
	assert.Zero(t, f.dispatcher.calls)
}

func TestRequest_ExactCapAdmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	addr := testAddress()

	_, err := f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: 5})
	require.NoError(t, err)
}

func TestRequest_RepeatWithinWindowRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	addr := testAddress()

	_, err := f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: 5})
	require.NoError(t, err)

	// Immediate repeat exceeds the window cap.
	f.now = f.now.Add(time.Minute)
	_, err = f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: 1})
	require.Error(t, err)

	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeRateLimited, fe.Code)
	assert.Zero(t, fe.RemainingLamports)

	// The reported wait matches TimeUntilNext exactly.
	wait, lerr := f.limiter.TimeUntilNext(ctx, addr, f.now)
	require.NoError(t, lerr)
	assert.Equal(t, wait, fe.RetryAfter)
	assert.Greater(t, fe.RetryAfter, time.Duration(0))
	assert.Contains(t, fe.Message, "Please wait 23h 59m")
}

func TestRequest_WindowExpiryReadmits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	addr := testAddress()

	_, err := f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: 5})
	require.NoError(t, err)

	// One full window later the grant no longer counts.
	f.now = f.now.Add(24 * time.Hour)
	_, err = f.service.Request(ctx, Request{Address: addr, Network: soln.NetworkDevnet, AmountSOL: 5})
	require.NoError(t, err)
}

func TestRequest_UnknownNetwork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.service.Request(ctx, Request{Address: testAddress(), Network: soln.Network("mainnet"), AmountSOL: 1})
	require.Error(t, err)

	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnknown, fe.Code)
}

func TestRequest_LedgerFailureDoesNotFailGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.publisher.SetPublishError(errors.New("nats down"))

	result, err := f.service.Request(ctx, Request{Address: testAddress(), Network: soln.NetworkDevnet, AmountSOL: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Signature)
}

func TestWaitMessage(t *testing.T) {
	assert.Equal(t, "Please wait 1h 59m before requesting another airdrop", waitMessage(119*time.Minute))
	assert.Equal(t, "Please wait 0h 1m before requesting another airdrop", waitMessage(30*time.Second))
	assert.Equal(t, "Please wait 24h 0m before requesting another airdrop", waitMessage(24*time.Hour))
}
