package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soldrip/soldrip/service/faucet"
	"github.com/soldrip/soldrip/service/ledger"
	"github.com/soldrip/soldrip/service/metrics"
	"github.com/soldrip/soldrip/service/ratelimit"
	"github.com/soldrip/soldrip/service/security"
	"github.com/soldrip/soldrip/service/solana"
)

// Server represents the HTTP server for the faucet service.
type Server struct {
	addr    string
	faucet  *faucet.Service
	limiter *ratelimit.Limiter
	ledger  *ledger.Ledger
	gate    *security.Gate
	monitor *solana.StatusMonitor
	clients map[solana.Network]*solana.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The gate is optional - if nil, requests are admitted without CAPTCHA or
// per-client throttling checks.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, svc *faucet.Service, limiter *ratelimit.Limiter, ldg *ledger.Ledger, gate *security.Gate, monitor *solana.StatusMonitor, clients map[solana.Network]*solana.Client, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		faucet:  svc,
		limiter: limiter,
		ledger:  ldg,
		gate:    gate,
		monitor: monitor,
		clients: clients,
		metrics: m,
		logger:  logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Airdrop routes
	mux.Handle("POST /api/v1/airdrops", handleRequestAirdrop(s.faucet, s.gate, s.logger))
	mux.Handle("GET /api/v1/allowance/{address}", handleGetAllowance(s.limiter, s.logger))

	// Transaction ledger routes
	mux.Handle("GET /api/v1/transactions", handleListTransactions(s.ledger, s.logger))
	mux.Handle("DELETE /api/v1/transactions", handleClearTransactions(s.ledger, s.logger))

	// Network routes
	mux.Handle("GET /api/v1/status", handleGetStatus(s.monitor, s.logger))
	mux.Handle("GET /api/v1/balance/{address}", handleGetBalance(s.clients, s.logger))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	var handler http.Handler = corsMiddleware(mux)
	if s.metrics != nil {
		handler = metrics.HTTPMetricsMiddleware(s.metrics, "api")(handler)
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass through to next handler
		next.ServeHTTP(w, r)
	})
}
