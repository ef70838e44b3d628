package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soldrip/soldrip/service/config"
	"github.com/soldrip/soldrip/service/faucet"
	"github.com/soldrip/soldrip/service/ledger"
	"github.com/soldrip/soldrip/service/metrics"
	"github.com/soldrip/soldrip/service/nats"
	"github.com/soldrip/soldrip/service/ratelimit"
	"github.com/soldrip/soldrip/service/security"
	"github.com/soldrip/soldrip/service/server"
	"github.com/soldrip/soldrip/service/solana"
	"github.com/soldrip/soldrip/service/store"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"storage", cfg.StorageBackend,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the persistence backend
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Initialize metrics
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Initialize Solana RPC clients, one per supported network
	// Note: For premium RPC endpoints, include API key in the URL
	clients := map[solana.Network]*solana.Client{
		solana.NetworkDevnet: solana.NewClient(
			solana.NewRPCClient(cfg.DevnetRPCURL), solana.NetworkDevnet, m, logger,
			solana.WithConfirmTimeout(cfg.ConfirmTimeout)),
		solana.NetworkTestnet: solana.NewClient(
			solana.NewRPCClient(cfg.TestnetRPCURL), solana.NetworkTestnet, m, logger,
			solana.WithConfirmTimeout(cfg.ConfirmTimeout)),
	}
	logger.Info("initialized solana RPC clients",
		"devnet", cfg.DevnetRPCURL,
		"testnet", cfg.TestnetRPCURL,
	)
	monitor := solana.NewStatusMonitor(clients, cfg.StatusRefresh)

	// Initialize the faucet core
	limiter := ratelimit.New(st, cfg.Window, solToLamports(cfg.WindowMaxSOL))
	ldg := ledger.New(st, m, logger)

	dispatchers := make(map[solana.Network]faucet.Dispatcher, len(clients))
	for network, client := range clients {
		dispatchers[network] = client
	}

	opts := []faucet.Option{
		faucet.WithAttempts(cfg.DispatchAttempts),
		faucet.WithMaxPerRequest(solToLamports(cfg.MaxPerRequestSOL)),
	}

	// Initialize NATS grant event publishing (optional)
	if cfg.NATSURL != "" {
		publisher, perr := nats.NewPublisher(cfg.NATSURL, m, logger)
		if perr != nil {
			logger.Error("failed to connect to NATS", "url", cfg.NATSURL, "error", perr)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, faucet.WithPublisher(publisher))
		logger.Info("grant event publishing enabled", "url", cfg.NATSURL)
	} else {
		logger.Warn("NATS_URL not set, grant event publishing disabled")
	}

	svc := faucet.NewService(limiter, ldg, dispatchers, m, logger, opts...)

	// Initialize the security gate. Without a CAPTCHA secret only the
	// per-client throttle applies.
	var verifier security.Verifier
	if cfg.RecaptchaSecret != "" {
		verifier = security.NewRecaptchaVerifier(cfg.RecaptchaSecret)
		logger.Info("CAPTCHA verification enabled")
	} else {
		logger.Warn("RECAPTCHA_SECRET_KEY not set, CAPTCHA verification disabled")
	}
	buckets := security.NewClientLimiters(cfg.ClientRequestsPerHour, cfg.ClientBurst)
	gate := security.NewGate(verifier, buckets, m, logger)

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, svc, limiter, ldg, gate, monitor, clients, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// openStore builds the configured persistence backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		st := store.NewPostgresStore(pool)
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		logger.Info("connected to database")
		return st, nil
	case config.StorageRedis:
		st, err := store.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
		return st, nil
	default:
		logger.Warn("using in-memory storage, state is lost on restart")
		return store.NewMemoryStore(), nil
	}
}

func solToLamports(amountSOL float64) uint64 {
	return uint64(amountSOL*float64(solanago.LAMPORTS_PER_SOL) + 0.5)
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
