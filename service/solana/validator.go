package solana

import (
	solanago "github.com/gagliardetto/solana-go"
)

// ValidDropTarget reports whether address is a syntactically valid Solana
// public key whose decoded point lies on the ed25519 curve. The faucet must
// never fund a malformed or off-curve target (program-derived addresses are
// off-curve and are not wallets).
//
// Any decode failure (wrong length, invalid base58 alphabet) yields false;
// this function never panics or returns an error.
func ValidDropTarget(address string) bool {
	pk, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return false
	}
	return pk.IsOnCurve()
}
