package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port          int
	Backend       string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	JWTSecret     string
	TokenTTL      time.Duration
	IssueToken    string
}

// LoadEnvFile loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("poll-ledger", flag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.Backend, "b", "", "Ledger backend (memory, sqlite, postgres or redis)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL for sqlite or postgres")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "Redis address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password (prefer env)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&cfg.RedisPrefix, "redis-prefix", "", "Redis key prefix")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Caller token secret (prefer env)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 0, "Lifetime of issued caller tokens")

	// One-shot mode
	fs.StringVar(&cfg.IssueToken, "issue-token", "", "Print a caller token for this id and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.Backend == "" {
		cfg.Backend = os.Getenv("LEDGER_BACKEND")
		if cfg.Backend == "" {
			cfg.Backend = BackendMemory
		}
	}
	switch cfg.Backend {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendRedis:
	default:
		return Config{}, fmt.Errorf("unknown backend %q (use memory, sqlite, postgres or redis)", cfg.Backend)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && (cfg.Backend == BackendSQLite || cfg.Backend == BackendPostgres) {
		return Config{}, errors.New("database URL required for " + cfg.Backend + " (use -d or DATABASE_URL env)")
	}

	if cfg.RedisAddr == "" {
		cfg.RedisAddr = envOr("REDIS_ADDR", "localhost:6379")
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}
	if !set["redis-db"] {
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			n, err := strconv.Atoi(dbStr)
			if err != nil || n < 0 {
				return Config{}, errors.New("invalid REDIS_DB env variable")
			}
			cfg.RedisDB = n
		}
	}
	if cfg.RedisDB < 0 {
		return Config{}, errors.New("redis database number cannot be negative")
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = envOr("REDIS_PREFIX", "ledger:")
	}

	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
		if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
			ttl, err := time.ParseDuration(ttlStr)
			if err != nil {
				return Config{}, errors.New("invalid TOKEN_TTL env variable")
			}
			cfg.TokenTTL = ttl
		}
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("token TTL must be positive")
	}

	// Secret - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
