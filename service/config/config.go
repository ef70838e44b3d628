package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backend selectors.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana RPC endpoints
	DevnetRPCURL  string
	TestnetRPCURL string

	// Storage configuration
	StorageBackend string
	DatabaseURL    string // required when StorageBackend == "postgres"
	RedisAddr      string // required when StorageBackend == "redis"

	// NATS configuration (empty disables grant event publishing)
	NATSURL string

	// CAPTCHA configuration (empty disables CAPTCHA verification)
	RecaptchaSecret string

	// Faucet policy
	Window           time.Duration // sliding window for the per-address cap
	WindowMaxSOL     float64       // cumulative SOL cap per address per window
	MaxPerRequestSOL float64       // ceiling for a single request
	DispatchAttempts int           // total funding attempts per request
	ConfirmTimeout   time.Duration // how long to wait for tx confirmation

	// Client abuse controls
	ClientRequestsPerHour float64
	ClientBurst           int

	// Health probe caching
	StatusRefresh time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana RPC endpoints; the public cluster endpoints are the defaults.
	cfg.DevnetRPCURL = getEnvOrDefault("SOLANA_DEVNET_RPC_URL", "https://api.devnet.solana.com")
	cfg.TestnetRPCURL = getEnvOrDefault("SOLANA_TESTNET_RPC_URL", "https://api.testnet.solana.com")
	if cfg.DevnetRPCURL == cfg.TestnetRPCURL {
		errs = append(errs, fmt.Errorf("SOLANA_DEVNET_RPC_URL and SOLANA_TESTNET_RPC_URL must be different"))
	}

	// Storage configuration
	cfg.StorageBackend = getEnvOrDefault("STORAGE_BACKEND", StorageMemory)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "localhost:6379")
	switch cfg.StorageBackend {
	case StorageMemory, StorageRedis:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of %q, %q, %q", StorageMemory, StorageRedis, StoragePostgres))
	}

	// NATS / CAPTCHA are optional integrations
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.RecaptchaSecret = os.Getenv("RECAPTCHA_SECRET_KEY")

	// Faucet policy
	window, err := parseDuration("FAUCET_WINDOW", "24h")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.Window = window
	}

	windowMax, err := parseFloat("FAUCET_WINDOW_MAX_SOL", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.WindowMaxSOL = windowMax
	}

	maxPerRequest, err := parseFloat("FAUCET_MAX_PER_REQUEST_SOL", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxPerRequestSOL = maxPerRequest
	}

	attempts, err := parseInt("FAUCET_DISPATCH_ATTEMPTS", 3)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DispatchAttempts = attempts
	}

	confirmTimeout, err := parseDuration("FAUCET_CONFIRM_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = confirmTimeout
	}

	// Client abuse controls (2/hour with burst 2 matches the reference faucet)
	perHour, err := parseFloat("CLIENT_REQUESTS_PER_HOUR", 2)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ClientRequestsPerHour = perHour
	}

	burst, err := parseInt("CLIENT_BURST", 2)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ClientBurst = burst
	}

	statusRefresh, err := parseDuration("STATUS_REFRESH_INTERVAL", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.StatusRefresh = statusRefresh
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.Window < time.Minute {
		errs = append(errs, fmt.Errorf("Window must be at least 1 minute"))
	}

	if c.WindowMaxSOL <= 0 {
		errs = append(errs, fmt.Errorf("WindowMaxSOL must be positive"))
	}

	if c.MaxPerRequestSOL <= 0 {
		errs = append(errs, fmt.Errorf("MaxPerRequestSOL must be positive"))
	}

	if c.MaxPerRequestSOL > c.WindowMaxSOL {
		errs = append(errs, fmt.Errorf("MaxPerRequestSOL (%v) cannot exceed WindowMaxSOL (%v)",
			c.MaxPerRequestSOL, c.WindowMaxSOL))
	}

	if c.DispatchAttempts < 1 {
		errs = append(errs, fmt.Errorf("DispatchAttempts must be at least 1"))
	}

	if c.ConfirmTimeout < time.Second {
		errs = append(errs, fmt.Errorf("ConfirmTimeout must be at least 1 second"))
	}

	if c.ClientRequestsPerHour <= 0 {
		errs = append(errs, fmt.Errorf("ClientRequestsPerHour must be positive"))
	}

	if c.ClientBurst < 1 {
		errs = append(errs, fmt.Errorf("ClientBurst must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}
