// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/poll-ledger/db"
	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/testutil"
)

// setupSQLite opens a fresh SQLite file with the ledger schema
func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, db.SQLite, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// setupPostgres resets the schema in TEST_DATABASE_URL, or skips
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := db.Open(ctx, db.Postgres, url)
	if err != nil {
		t.Fatalf("Failed to open postgres: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.DropSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to clean database: %v", err)
	}
	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

func TestSQLiteLedger(t *testing.T) {
	testutil.RunLedgerSuite(t, func(t *testing.T) ledger.Service {
		return db.NewStore(setupSQLite(t), db.SQLite)
	})
}

func TestPostgresLedger(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	testutil.RunLedgerSuite(t, func(t *testing.T) ledger.Service {
		return db.NewStore(setupPostgres(t), db.Postgres)
	})
}

func TestCreateSchema_Idempotent(t *testing.T) {
	conn := setupSQLite(t)
	ctx := context.Background()

	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Second CreateSchema failed: %v", err)
	}

	for _, table := range []string{"poll", "candidate", "vote"} {
		var n int
		err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestDropSchema(t *testing.T) {
	conn := setupSQLite(t)
	ctx := context.Background()

	if err := db.DropSchema(ctx, conn); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Expected no tables after drop, got %d", n)
	}
	// Dropping again is harmless
	if err := db.DropSchema(ctx, conn); err != nil {
		t.Errorf("Second DropSchema failed: %v", err)
	}
}

func TestDeleteKeepsVoteRows(t *testing.T) {
	conn := setupSQLite(t)
	store := db.NewStore(conn, db.SQLite)
	ctx := context.Background()

	testutil.CreateTestPoll(t, store, "alice", "Q", testutil.T0)
	for _, caller := range []string{"bob", "carol"} {
		if err := store.Vote(ctx, "Q", 0, caller, testutil.T0.Add(time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeletePoll(ctx, "Q", "alice"); err != nil {
		t.Fatal(err)
	}

	var votes, candidates, polls int
	conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE poll_id = 'Q'`).Scan(&votes)
	conn.QueryRow(`SELECT COUNT(*) FROM candidate`).Scan(&candidates)
	conn.QueryRow(`SELECT COUNT(*) FROM poll`).Scan(&polls)

	if votes != 2 {
		t.Errorf("Expected 2 retained vote rows, got %d", votes)
	}
	if candidates != 0 || polls != 0 {
		t.Errorf("Expected poll and candidates removed, got %d polls, %d candidates", polls, candidates)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	conn, err := db.Open(ctx, db.SQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatal(err)
	}
	store := db.NewStore(conn, db.SQLite)
	testutil.CreateTestPoll(t, store, "alice", "Q", testutil.T0)
	if err := store.Vote(ctx, "Q", 1, "bob", testutil.T0.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	conn, err = db.Open(ctx, db.SQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	store = db.NewStore(conn, db.SQLite)

	p, err := store.GetPoll(ctx, "Q")
	if err != nil || p == nil {
		t.Fatalf("Expected poll after reopen, got %v, %v", p, err)
	}
	if p.VoteCounts[1] != 1 || !p.CreatedAt.Equal(testutil.T0) {
		t.Errorf("Unexpected poll after reopen: %+v", p)
	}
	if idx, _ := store.UserVote(ctx, "Q", "bob"); idx != 1 {
		t.Errorf("Expected bob's vote to persist, got %d", idx)
	}
}

func TestOpen_BadURL(t *testing.T) {
	_, err := db.Open(context.Background(), db.SQLite, filepath.Join(t.TempDir(), "missing", "dir", "ledger.db"))
	if err == nil {
		t.Error("Expected error opening sqlite in a missing directory")
	}
}
