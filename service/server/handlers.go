package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/soldrip/soldrip/service/faucet"
	"github.com/soldrip/soldrip/service/ledger"
	"github.com/soldrip/soldrip/service/ratelimit"
	"github.com/soldrip/soldrip/service/security"
	"github.com/soldrip/soldrip/service/solana"
	"github.com/soldrip/soldrip/service/store"
)

// timeNow is swappable in tests.
var timeNow = time.Now

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for an airdrop request

	// codeInvalidRequest marks malformed bodies and unknown networks, which
	// are rejected before the request reaches the faucet.
	codeInvalidRequest = "INVALID_REQUEST"
)

// airdropResponse is the wire shape for POST /api/v1/airdrops, success or not.
type airdropResponse struct {
	Success           bool    `json:"success"`
	Message           string  `json:"message"`
	Signature         string  `json:"signature,omitempty"`
	Amount            float64 `json:"amount,omitempty"`
	Error             string  `json:"error,omitempty"`
	RetryAfterSeconds int64   `json:"retry_after_seconds,omitempty"`
	RemainingSOL      float64 `json:"remaining_sol,omitempty"`
}

// handleRequestAirdrop returns a handler that admits, dispatches, and records
// one airdrop request.
// POST /api/v1/airdrops
func handleRequestAirdrop(svc *faucet.Service, gate *security.Gate, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Limit request body size to prevent memory exhaustion
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Address      string  `json:"address"`
			Network      string  `json:"network"` // "devnet" or "testnet"
			Amount       float64 `json:"amount"`
			CaptchaToken string  `json:"captcha_token"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode airdrop request", "error", err)
			writeAirdropError(w, &faucet.Error{
				Code:    codeInvalidRequest,
				Message: "Invalid request body: must be valid JSON",
			})
			return
		}

		network, ok := solana.ParseNetwork(req.Network)
		if !ok {
			logger.Debug("invalid network", "network", req.Network)
			writeAirdropError(w, &faucet.Error{
				Code:    codeInvalidRequest,
				Message: "Network must be \"devnet\" or \"testnet\"",
			})
			return
		}

		// Origin-level admission runs before any wallet state is touched.
		if gate != nil {
			if err := gate.Admit(r.Context(), req.CaptchaToken, clientIP(r)); err != nil {
				writeAirdropError(w, faucet.GateDenial(err))
				return
			}
		}

		result, err := svc.Request(r.Context(), faucet.Request{
			Address:   req.Address,
			Network:   network,
			AmountSOL: req.Amount,
		})
		if err != nil {
			fe, ok := faucet.AsError(err)
			if !ok {
				logger.Error("airdrop request failed", "address", req.Address, "error", err)
				writeError(w, "internal server error", http.StatusInternalServerError)
				return
			}
			writeAirdropError(w, fe)
			return
		}

		writeJSON(w, airdropResponse{
			Success:   true,
			Message:   result.Message,
			Signature: result.Signature,
			Amount:    result.AmountSOL,
		}, http.StatusOK)
	})
}

// handleGetAllowance returns a handler that reports what an address may still
// receive and how long until its window frees up.
// GET /api/v1/allowance/{address}
func handleGetAllowance(limiter *ratelimit.Limiter, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if !solana.ValidDropTarget(address) {
			writeError(w, "invalid wallet address", http.StatusBadRequest)
			return
		}

		now := timeNow()
		remaining, err := limiter.RemainingAllowance(r.Context(), address, now)
		if err != nil {
			logger.Error("failed to compute allowance", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		wait, err := limiter.TimeUntilNext(r.Context(), address, now)
		if err != nil {
			logger.Error("failed to compute wait", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address":       address,
			"remaining_sol": float64(remaining) / float64(solanago.LAMPORTS_PER_SOL),
			"wait_seconds":  int64(wait.Seconds()),
		}, http.StatusOK)
	})
}

// handleListTransactions returns a handler that lists recent ledger records.
// GET /api/v1/transactions?limit={n}
func handleListTransactions(ldg *ledger.Ledger, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := store.LedgerCap
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			if n < limit {
				limit = n
			}
		}

		records, err := ldg.Recent(r.Context(), limit)
		if err != nil {
			logger.Error("failed to list transactions", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("transactions listed", "count", len(records))
		writeJSON(w, map[string]interface{}{
			"transactions": records,
			"count":        len(records),
		}, http.StatusOK)
	})
}

// handleClearTransactions returns a handler that empties the ledger.
// DELETE /api/v1/transactions
func handleClearTransactions(ldg *ledger.Ledger, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ldg.Clear(r.Context()); err != nil {
			logger.Error("failed to clear transactions", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Info("transaction ledger cleared")
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleGetStatus returns a handler that reports the most recent health
// sample for a network.
// GET /api/v1/status?network={network}
func handleGetStatus(monitor *solana.StatusMonitor, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		network, ok := solana.ParseNetwork(r.URL.Query().Get("network"))
		if !ok {
			writeError(w, "network must be \"devnet\" or \"testnet\"", http.StatusBadRequest)
			return
		}

		sample := monitor.Sample(r.Context(), network)
		writeJSON(w, map[string]interface{}{
			"network":    network,
			"status":     sample.Status,
			"latency_ms": sample.LatencyMillis,
		}, http.StatusOK)
	})
}

// handleGetBalance returns a handler that reports an account's SOL balance.
// GET /api/v1/balance/{address}?network={network}
func handleGetBalance(clients map[solana.Network]*solana.Client, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		network, ok := solana.ParseNetwork(r.URL.Query().Get("network"))
		if !ok {
			writeError(w, "network must be \"devnet\" or \"testnet\"", http.StatusBadRequest)
			return
		}

		account, err := solanago.PublicKeyFromBase58(r.PathValue("address"))
		if err != nil {
			writeError(w, "invalid wallet address", http.StatusBadRequest)
			return
		}

		client, ok := clients[network]
		if !ok {
			logger.Error("no RPC client for network", "network", network)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address":     account.String(),
			"network":     network,
			"balance_sol": client.Balance(r.Context(), account),
		}, http.StatusOK)
	})
}

// writeAirdropError maps a faucet rejection onto the airdrop response shape
// and the appropriate HTTP status.
func writeAirdropError(w http.ResponseWriter, fe *faucet.Error) {
	resp := airdropResponse{
		Success: false,
		Message: fe.Message,
		Error:   string(fe.Code),
	}

	status := http.StatusInternalServerError
	switch fe.Code {
	case codeInvalidRequest, faucet.CodeInvalidWallet, faucet.CodeInvalidAmount:
		status = http.StatusBadRequest
	case faucet.CodeCaptchaFailed:
		status = http.StatusForbidden
	case faucet.CodeRateLimited, faucet.CodeClientRateLimited:
		status = http.StatusTooManyRequests
	case faucet.CodeDispatchFailed:
		status = http.StatusBadGateway
	}

	if fe.Code == faucet.CodeRateLimited {
		seconds := int64(fe.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		resp.RetryAfterSeconds = seconds
		resp.RemainingSOL = float64(fe.RemainingLamports) / float64(solanago.LAMPORTS_PER_SOL)
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	}

	writeJSON(w, resp, status)
}

// clientIP extracts the originating client address for per-client throttling.
// X-Forwarded-For wins when a proxy set it; the first entry is the client.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
