// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the ledger.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// The DDL is the common subset of PostgreSQL and SQLite. Times are stored as
// Unix nanoseconds. Vote rows reference a poll instance, not the poll row, so
// they survive poll deletion.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    instance TEXT NOT NULL UNIQUE,
    prompt TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    category_key TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    created_by TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    duration_ns BIGINT NOT NULL CHECK (duration_ns >= 0),
    paused BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE INDEX IF NOT EXISTS idx_poll_created_by ON poll(created_by)`,
	`CREATE INDEX IF NOT EXISTS idx_poll_category_key ON poll(category_key)`,
	`CREATE INDEX IF NOT EXISTS idx_poll_created_at ON poll(created_at)`,

	`CREATE TABLE IF NOT EXISTS candidate (
    poll_instance TEXT NOT NULL,
    idx INTEGER NOT NULL,
    name TEXT NOT NULL,
    slogan TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    votes BIGINT NOT NULL DEFAULT 0 CHECK (votes >= 0),
    PRIMARY KEY (poll_instance, idx)
)`,

	`CREATE TABLE IF NOT EXISTS vote (
    caller_id TEXT NOT NULL,
    poll_instance TEXT NOT NULL,
    poll_id TEXT NOT NULL,
    candidate_idx INTEGER NOT NULL,
    cast_at BIGINT NOT NULL,
    PRIMARY KEY (caller_id, poll_instance)
)`,
	`CREATE INDEX IF NOT EXISTS idx_vote_poll_instance ON vote(poll_instance)`,
}

// DropSchema removes every ledger table. Tests use it to start clean.
func DropSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"vote", "candidate", "poll"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}
