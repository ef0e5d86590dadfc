package app_test

import (
	"testing"
	"time"

	"github.com/bifrostlabs/heimdall/internal/app"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	require.Equal(t, app.EnvDevelopment, cfg.Env)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "heimdall", cfg.Issuer)
	require.Equal(t, "EdDSA", cfg.Algorithm)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 720*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 8, cfg.PoolSize)
	require.Equal(t, 9090, cfg.Port)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HEIMDALL_ENV", "test")
	t.Setenv("HEIMDALL_ACCESS_TTL", "5m")
	t.Setenv("HEIMDALL_POOL_SIZE", "3")
	t.Setenv("HEIMDALL_DB_DRIVER", "sqlite")
	t.Setenv("PORT", "7001")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	require.Equal(t, app.EnvTest, cfg.Env)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 3, cfg.PoolSize)
	require.Equal(t, 7001, cfg.Port)

	// Test mode stays off disk.
	require.Contains(t, cfg.DatabaseDSN(), "mode=memory")
}

func TestLoadConfigRejectsUnknownEnv(t *testing.T) {
	t.Setenv("HEIMDALL_ENV", "staging")

	_, err := app.LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("HEIMDALL_DB_DRIVER", "oracle")

	_, err := app.LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigProductionRequiresDBPassword(t *testing.T) {
	t.Setenv("HEIMDALL_ENV", "production")

	_, err := app.LoadConfig()
	require.Error(t, err)

	t.Setenv("HEIMDALL_DB_PASSWORD", "secret")
	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Contains(t, cfg.DatabaseDSN(), "password=secret")
}
