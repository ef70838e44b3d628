package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.DevnetRPCURL)
	assert.Equal(t, "https://api.testnet.solana.com", cfg.TestnetRPCURL)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.RecaptchaSecret)
	assert.Equal(t, 24*time.Hour, cfg.Window)
	assert.Equal(t, 5.0, cfg.WindowMaxSOL)
	assert.Equal(t, 5.0, cfg.MaxPerRequestSOL)
	assert.Equal(t, 3, cfg.DispatchAttempts)
	assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 2.0, cfg.ClientRequestsPerHour)
	assert.Equal(t, 2, cfg.ClientBurst)
	assert.Equal(t, 10*time.Second, cfg.StatusRefresh)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("STORAGE_BACKEND", StorageRedis)
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("FAUCET_WINDOW", "12h")
	t.Setenv("FAUCET_WINDOW_MAX_SOL", "10")
	t.Setenv("FAUCET_MAX_PER_REQUEST_SOL", "2.5")
	t.Setenv("FAUCET_DISPATCH_ATTEMPTS", "5")
	t.Setenv("CLIENT_REQUESTS_PER_HOUR", "6")
	t.Setenv("CLIENT_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 12*time.Hour, cfg.Window)
	assert.Equal(t, 10.0, cfg.WindowMaxSOL)
	assert.Equal(t, 2.5, cfg.MaxPerRequestSOL)
	assert.Equal(t, 5, cfg.DispatchAttempts)
	assert.Equal(t, 6.0, cfg.ClientRequestsPerHour)
	assert.Equal(t, 3, cfg.ClientBurst)
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", StoragePostgres)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "dynamo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("FAUCET_WINDOW", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAUCET_WINDOW")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Window:                24 * time.Hour,
		WindowMaxSOL:          5,
		MaxPerRequestSOL:      5,
		DispatchAttempts:      3,
		ConfirmTimeout:        30 * time.Second,
		ClientRequestsPerHour: 2,
		ClientBurst:           2,
	}
	require.NoError(t, valid.Validate())

	perRequestOverCap := valid
	perRequestOverCap.MaxPerRequestSOL = 6
	assert.Error(t, perRequestOverCap.Validate())

	zeroAttempts := valid
	zeroAttempts.DispatchAttempts = 0
	assert.Error(t, zeroAttempts.Validate())

	tinyWindow := valid
	tinyWindow.Window = time.Second
	assert.Error(t, tinyWindow.Validate())
}
