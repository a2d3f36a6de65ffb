// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the poll ledger API server.

The poll ledger records time-boxed polls keyed by their prompt. Each caller
votes at most once per poll, only while the poll is active, and only the
creator may delete, pause, resume or extend it.

# Starting the Server

With no configuration beyond a token secret the server keeps polls in
memory:

	JWT_SECRET=dev go run .

Or with a durable backend:

	go run . -b sqlite -d ledger.db -jwt-secret dev
	go run . -b postgres -d "postgres://..."
	go run . -b redis -redis-addr localhost:6379

A .env file in the working directory is loaded first. Its values never
override variables that are already set.

# Callers

Mutating routes need "Authorization: Bearer <token>". Issue a token for a
caller and exit:

	go run . -jwt-secret dev -issue-token alice

# Configuration

Required settings:

  - JWT_SECRET (-jwt-secret): HMAC key for caller tokens
  - DATABASE_URL (-d): required for the sqlite and postgres backends

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - LEDGER_BACKEND (-b): memory, sqlite, postgres or redis (default: memory)
  - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_PREFIX: redis backend
  - TOKEN_TTL (-token-ttl): lifetime of issued tokens (default: 24h)

# Architecture

  - ledger: poll rules, the Service interface and the in-memory backend
  - db: SQLite and PostgreSQL backend
  - redisdb: Redis backend
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, caller authentication, JSON helpers
  - models: Request/response types
  - auth: Caller token issue and validation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
