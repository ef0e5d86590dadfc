package app

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Run modes. Development uses a local sqlite file and text logs, production
// requires postgres, test keeps everything in memory.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Issuer   string // Required in production: issuer claim for tokens
	Audience string // Optional: audience claim for tokens

	Algorithm string // Optional: JWT signing algorithm (RS256, ES256, EdDSA) (default: EdDSA)
	RSABits   int    // Optional: RSA key size for RS256 (default: 4096)
	NumKeys   int    // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 720h)
	Leeway     time.Duration // Clock skew tolerance for verification (default: 30s)

	DatabaseDriver string // "postgres" or "sqlite" (default: sqlite in development, postgres in production)
	DatabaseHost   string
	DatabasePort   int
	DatabaseName   string
	DatabaseUser   string
	DatabasePass   string
	DatabaseFile   string // sqlite only (default: ./heimdall.db)

	PoolSize           int           // Connection pool capacity (default: 8)
	PoolAcquireTimeout time.Duration // Wait bound when the pool is exhausted (default: 5s)

	RedisAddr string // Optional: enables the shared revocation set

	PepperFile string // Path to file containing pepper for password hashing (default: ./pepper)

	Env                 string // Environment (development, production, test) (default: development)
	LogLevel            string // Log level (debug, info, warn, error) (default: info)
	LogFormat           string // Log format (json, text) (default: json)
	Port                int    // gRPC listener port (default: 9090)
	ShutdownGracePeriod time.Duration
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:   getEnvOrDefault("HEIMDALL_ISSUER", "heimdall"),
		Audience: os.Getenv("HEIMDALL_AUDIENCE"),

		Algorithm: getEnvOrDefault("HEIMDALL_ALGORITHM", "EdDSA"),
		RSABits:   getEnvIntOrDefault("HEIMDALL_RSA_BITS", 0),
		NumKeys:   getEnvIntOrDefault("HEIMDALL_NUM_KEYS", 0),

		AccessTTL:  getEnvDurationOrDefault("HEIMDALL_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("HEIMDALL_REFRESH_TTL", 720*time.Hour),
		Leeway:     getEnvDurationOrDefault("HEIMDALL_LEEWAY", 30*time.Second),

		DatabaseDriver: os.Getenv("HEIMDALL_DB_DRIVER"),
		DatabaseHost:   getEnvOrDefault("HEIMDALL_DB_HOST", "127.0.0.1"),
		DatabasePort:   getEnvIntOrDefault("HEIMDALL_DB_PORT", 5432),
		DatabaseName:   getEnvOrDefault("HEIMDALL_DB_NAME", "heimdall"),
		DatabaseUser:   getEnvOrDefault("HEIMDALL_DB_USER", "heimdall"),
		DatabasePass:   os.Getenv("HEIMDALL_DB_PASSWORD"),
		DatabaseFile:   getEnvOrDefault("HEIMDALL_DB_FILE", "heimdall.db"),

		PoolSize:           getEnvIntOrDefault("HEIMDALL_POOL_SIZE", 8),
		PoolAcquireTimeout: getEnvDurationOrDefault("HEIMDALL_POOL_ACQUIRE_TIMEOUT", 5*time.Second),

		RedisAddr: os.Getenv("HEIMDALL_REDIS_ADDR"),

		PepperFile: getEnvOrDefault("HEIMDALL_PEPPER_FILE", "pepper"),

		Env:                 getEnvOrDefault("HEIMDALL_ENV", EnvDevelopment),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 9090),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return Config{}, fmt.Errorf("unknown HEIMDALL_ENV %q (expected development, production or test)", cfg.Env)
	}

	// Production runs on postgres; development and test default to sqlite so
	// a checkout works with zero external services.
	if cfg.DatabaseDriver == "" {
		if cfg.Env == EnvProduction {
			cfg.DatabaseDriver = "postgres"
		} else {
			cfg.DatabaseDriver = "sqlite"
		}
	}
	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unknown HEIMDALL_DB_DRIVER %q (expected postgres or sqlite)", cfg.DatabaseDriver)
	}

	if cfg.Env == EnvProduction && cfg.DatabaseDriver == "postgres" && cfg.DatabasePass == "" {
		return Config{}, fmt.Errorf("HEIMDALL_DB_PASSWORD is required in production")
	}

	return cfg, nil
}

// DatabaseDSN builds the driver-specific connection string. The sqlite test
// mode uses a shared in-memory database so nothing touches disk.
func (cfg Config) DatabaseDSN() string {
	switch cfg.DatabaseDriver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
			cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseName, cfg.DatabaseUser, cfg.DatabasePass)
	default:
		if cfg.Env == EnvTest {
			return fmt.Sprintf("file:%s?mode=memory&cache=shared", cfg.DatabaseFile)
		}
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.DatabaseFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
