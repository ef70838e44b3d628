package solana

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// realRPCClient adapts the actual solana-go RPC client to our RPCClient
// interface. This adapter allows us to control the interface and makes
// testing easier.
type realRPCClient struct {
	client *rpc.Client
}

// NewRPCClient creates a new RPCClient that wraps the solana-go RPC client.
// For premium RPC endpoints that require API keys, include the key in the URL.
func NewRPCClient(rpcURL string) RPCClient {
	return &realRPCClient{
		client: rpc.New(rpcURL),
	}
}

func (r *realRPCClient) RequestAirdrop(
	ctx context.Context,
	account solanago.PublicKey,
	lamports uint64,
	commitment rpc.CommitmentType,
) (solanago.Signature, error) {
	return r.client.RequestAirdrop(ctx, account, lamports, commitment)
}

func (r *realRPCClient) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	signatures ...solanago.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	return r.client.GetSignatureStatuses(ctx, searchTransactionHistory, signatures...)
}

func (r *realRPCClient) GetVersion(ctx context.Context) (*rpc.GetVersionResult, error) {
	return r.client.GetVersion(ctx)
}

func (r *realRPCClient) GetBalance(
	ctx context.Context,
	account solanago.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetBalanceResult, error) {
	return r.client.GetBalance(ctx, account, commitment)
}
