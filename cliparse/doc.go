// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadEnvFile reads a .env file into the process environment first, so
values from it behave exactly like exported variables. Variables that
are already set are left alone and a missing file is ignored.

# Config Fields

  - Port: Server listen port (default: 3318)
  - Backend: Ledger backend, one of memory, sqlite, postgres, redis (default: memory)
  - DatabaseURL: sqlite path or PostgreSQL connection string (required for sqlite and postgres)
  - RedisAddr, RedisPassword, RedisDB, RedisPrefix: Redis connection (redis backend only)
  - JWTSecret: HMAC secret for caller tokens (required)
  - TokenTTL: Lifetime of issued caller tokens (default: 24h)
  - IssueToken: When set, main prints a token for this caller and exits

# CLI Flags

	-p               Server port
	-b               Ledger backend
	-d               Database URL
	-redis-addr      Redis address
	-redis-password  Redis password
	-redis-db        Redis database number
	-redis-prefix    Redis key prefix
	-jwt-secret      Caller token secret
	-token-ttl       Caller token lifetime
	-issue-token     Print a caller token and exit

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	LEDGER_BACKEND → -b
	DATABASE_URL   → -d
	REDIS_ADDR     → -redis-addr
	REDIS_PASSWORD → -redis-password
	REDIS_DB       → -redis-db
	REDIS_PREFIX   → -redis-prefix
	JWT_SECRET     → -jwt-secret
	TOKEN_TTL      → -token-ttl

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if:

  - JWT_SECRET is missing
  - the backend is not recognised
  - DATABASE_URL is missing for the sqlite or postgres backend
  - PORT, REDIS_DB or TOKEN_TTL cannot be parsed, or the TTL is not positive
*/
package cliparse
