package faucet

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soldrip/soldrip/service/security"
)

// Code tags every faucet rejection. All rejections are returned as values to
// the caller; no raw transport error crosses the orchestrator boundary.
type Code string

const (
	// CodeInvalidWallet marks an address that failed validation.
	CodeInvalidWallet Code = "INVALID_WALLET"
	// CodeInvalidAmount marks an amount outside the configured bounds.
	CodeInvalidAmount Code = "INVALID_AMOUNT"
	// CodeRateLimited marks an address that exhausted its window allowance.
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeCaptchaFailed marks a missing or rejected CAPTCHA proof.
	CodeCaptchaFailed Code = "CAPTCHA_FAILED"
	// CodeClientRateLimited marks a client origin that exhausted its request budget.
	CodeClientRateLimited Code = "CLIENT_RATE_LIMITED"
	// CodeDispatchFailed marks a request whose every dispatch attempt failed.
	CodeDispatchFailed Code = "DISPATCH_FAILED"
	// CodeUnknown is the catch-all for unexpected internal failures.
	CodeUnknown Code = "UNKNOWN_ERROR"
)

// Error is a tagged faucet rejection with a human-readable message built
// from the specific rejection's parameters.
type Error struct {
	Code    Code
	Message string

	// RetryAfter is set on RATE_LIMITED: time until allowance frees.
	RetryAfter time.Duration
	// RemainingLamports is set on RATE_LIMITED: allowance still available.
	RemainingLamports uint64

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// AsError extracts a faucet *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func invalidWalletError() *Error {
	return &Error{
		Code:    CodeInvalidWallet,
		Message: "Invalid wallet address",
	}
}

func invalidAmountError(maxSOL float64) *Error {
	return &Error{
		Code:    CodeInvalidAmount,
		Message: fmt.Sprintf("Invalid amount. Please request between 0 and %g SOL", maxSOL),
	}
}

func rateLimitedError(wait time.Duration, remaining uint64) *Error {
	return &Error{
		Code:              CodeRateLimited,
		Message:           waitMessage(wait),
		RetryAfter:        wait,
		RemainingLamports: remaining,
	}
}

func dispatchFailedError(cause error) *Error {
	return &Error{
		Code:    CodeDispatchFailed,
		Message: "Airdrop failed after multiple attempts",
		cause:   cause,
	}
}

func unknownError(cause error) *Error {
	return &Error{
		Code:    CodeUnknown,
		Message: "Unexpected error occurred",
		cause:   cause,
	}
}

// GateDenial translates a security gate rejection into the taxonomy.
// Unrecognized errors map to the catch-all code.
func GateDenial(err error) *Error {
	switch {
	case errors.Is(err, security.ErrCaptchaFailed):
		return &Error{
			Code:    CodeCaptchaFailed,
			Message: "CAPTCHA verification failed. Please try again",
			cause:   err,
		}
	case errors.Is(err, security.ErrClientRateLimited):
		return &Error{
			Code:    CodeClientRateLimited,
			Message: "Too many requests from your connection. Please try again later",
			cause:   err,
		}
	default:
		return unknownError(err)
	}
}

// waitMessage renders the exact remaining wait, e.g.
// "Please wait 1h 59m before requesting another airdrop".
func waitMessage(wait time.Duration) string {
	minutes := int(math.Ceil(wait.Minutes()))
	hours := minutes / 60
	remainingMinutes := minutes % 60
	return fmt.Sprintf("Please wait %dh %dm before requesting another airdrop", hours, remainingMinutes)
}
