package solana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	airdropSig     solanago.Signature
	airdropErr     error
	airdropCalls   int
	statuses       []*rpc.SignatureStatusesResult
	statusErr      error
	statusCalls    int
	versionErr     error
	versionDelay   time.Duration
	balance        uint64
	balanceErr     error
}

func (m *mockRPCClient) RequestAirdrop(
	ctx context.Context,
	account solanago.PublicKey,
	lamports uint64,
	commitment rpc.CommitmentType,
) (solanago.Signature, error) {
	m.airdropCalls++
	if m.airdropErr != nil {
		return solanago.Signature{}, m.airdropErr
	}
	return m.airdropSig, nil
}

func (m *mockRPCClient) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	signatures ...solanago.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	m.statusCalls++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	// Serve the configured statuses in order, repeating the last one.
	idx := m.statusCalls - 1
	if idx >= len(m.statuses) {
		idx = len(m.statuses) - 1
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{m.statuses[idx]},
	}, nil
}

func (m *mockRPCClient) GetVersion(ctx context.Context) (*rpc.GetVersionResult, error) {
	if m.versionDelay > 0 {
		time.Sleep(m.versionDelay)
	}
	if m.versionErr != nil {
		return nil, m.versionErr
	}
	return &rpc.GetVersionResult{SolanaCore: "2.0.0"}, nil
}

func (m *mockRPCClient) GetBalance(
	ctx context.Context,
	account solanago.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetBalanceResult, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return &rpc.GetBalanceResult{Value: m.balance}, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, NetworkDevnet, nil, logger,
		WithConfirmTimeout(2*time.Second),
		WithConfirmInterval(time.Millisecond),
	)
}

func TestProbe_Operational(t *testing.T) {
	client := newTestClient(&mockRPCClient{})

	sample := client.Probe(context.Background())

	assert.Equal(t, StatusOperational, sample.Status)
	assert.GreaterOrEqual(t, sample.LatencyMillis, int64(0))
}

func TestProbe_ErrorYieldsZeroLatencySample(t *testing.T) {
	client := newTestClient(&mockRPCClient{versionErr: errors.New("connection refused")})

	sample := client.Probe(context.Background())

	assert.Equal(t, StatusError, sample.Status)
	assert.Equal(t, int64(0), sample.LatencyMillis)
}

func TestFund_ConfirmsAfterPending(t *testing.T) {
	sig := solanago.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	mock := &mockRPCClient{
		airdropSig: sig,
		statuses: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
	client := newTestClient(mock)

	got, err := client.Fund(context.Background(), solanago.NewWallet().PublicKey(), solanago.LAMPORTS_PER_SOL)

	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.Equal(t, 1, mock.airdropCalls)
	assert.GreaterOrEqual(t, mock.statusCalls, 2)
}

func TestFund_SubmissionError(t *testing.T) {
	mock := &mockRPCClient{airdropErr: errors.New("rate limited")}
	client := newTestClient(mock)

	_, err := client.Fund(context.Background(), solanago.NewWallet().PublicKey(), solanago.LAMPORTS_PER_SOL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "airdrop submission failed")
}

func TestFund_OnChainFailure(t *testing.T) {
	sig := solanago.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	mock := &mockRPCClient{
		airdropSig: sig,
		statuses: []*rpc.SignatureStatusesResult{
			{Err: map[string]any{"InstructionError": []any{}}},
		},
	}
	client := newTestClient(mock)

	_, err := client.Fund(context.Background(), solanago.NewWallet().PublicKey(), solanago.LAMPORTS_PER_SOL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed on-chain")
}

func TestBalance_ConvertsLamports(t *testing.T) {
	client := newTestClient(&mockRPCClient{balance: 2_500_000_000})

	sol := client.Balance(context.Background(), solanago.NewWallet().PublicKey())

	assert.InDelta(t, 2.5, sol, 1e-9)
}

func TestBalance_ErrorReportsZero(t *testing.T) {
	client := newTestClient(&mockRPCClient{balanceErr: errors.New("boom")})

	sol := client.Balance(context.Background(), solanago.NewWallet().PublicKey())

	assert.Zero(t, sol)
}

func TestStatusMonitor_CachesSample(t *testing.T) {
	mock := &mockRPCClient{}
	client := newTestClient(mock)
	monitor := NewStatusMonitor(map[Network]*Client{NetworkDevnet: client}, time.Minute)

	first := monitor.Sample(context.Background(), NetworkDevnet)
	second := monitor.Sample(context.Background(), NetworkDevnet)

	assert.Equal(t, first, second)
}

func TestStatusMonitor_UnknownNetwork(t *testing.T) {
	monitor := NewStatusMonitor(map[Network]*Client{}, time.Minute)

	sample := monitor.Sample(context.Background(), Network("mainnet"))

	assert.Equal(t, StatusError, sample.Status)
}
