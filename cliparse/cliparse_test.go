// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LEDGER_BACKEND", "sqlite")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("REDIS_DB", "3")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("expected backend sqlite, got %s", cfg.Backend)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("expected token ttl 2h, got %s", cfg.TokenTTL)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.RedisDB)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := ParseFlags([]string{"-p", "8080", "-b", "postgres", "-d", "postgres://test", "-jwt-secret", "s1", "-token-ttl", "30m"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.JWTSecret != "s1" {
		t.Errorf("CLI should override env: expected secret s1, got %s", cfg.JWTSecret)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("expected token ttl 30m, got %s", cfg.TokenTTL)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("LEDGER_BACKEND", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("REDIS_PREFIX", "")
	t.Setenv("TOKEN_TTL", "")

	cfg, err := ParseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.Backend != BackendMemory {
		t.Errorf("expected default backend memory, got %s", cfg.Backend)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected default redis addr, got %s", cfg.RedisAddr)
	}
	if cfg.RedisPrefix != "ledger:" {
		t.Errorf("expected default redis prefix, got %s", cfg.RedisPrefix)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token ttl 24h, got %s", cfg.TokenTTL)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, nil},
		{"unknown backend", map[string]string{"JWT_SECRET": "s"}, []string{"-b", "mongo"}},
		{"sqlite without url", map[string]string{"JWT_SECRET": "s", "DATABASE_URL": ""}, []string{"-b", "sqlite"}},
		{"bad port", map[string]string{"JWT_SECRET": "s", "PORT": "eighty"}, nil},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "forever"}, nil},
		{"negative ttl", map[string]string{"JWT_SECRET": "s"}, []string{"-token-ttl", "-1h"}},
		{"bad redis db", map[string]string{"JWT_SECRET": "s", "REDIS_DB": "x"}, nil},
		{"negative redis db flag", map[string]string{"JWT_SECRET": "s"}, []string{"-redis-db", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", "")
			t.Setenv("TOKEN_TTL", "")
			t.Setenv("REDIS_DB", "")
			t.Setenv("LEDGER_BACKEND", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseFlags_RedisDBZeroOverridesEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("LEDGER_BACKEND", "")
	t.Setenv("REDIS_DB", "5")

	cfg, err := ParseFlags([]string{"-redis-db", "0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("expected explicit -redis-db 0 to win, got %d", cfg.RedisDB)
	}

	cfg, err = ParseFlags(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisDB != 5 {
		t.Errorf("expected REDIS_DB fallback 5, got %d", cfg.RedisDB)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("JWT_SECRET=from-file\nPORT=7000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("PORT", "7100")

	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("JWT_SECRET"); got != "from-file" {
		t.Errorf("expected JWT_SECRET from file, got %q", got)
	}
	// Existing variables win
	if got := os.Getenv("PORT"); got != "7100" {
		t.Errorf("expected PORT to stay 7100, got %q", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should not be an error, got %v", err)
	}
}
