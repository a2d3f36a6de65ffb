// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db persists the poll ledger in PostgreSQL or SQLite.

# Opening

	conn, err := db.Open(ctx, db.SQLite, "file:ledger.db")
	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}
	store := db.NewStore(conn, db.SQLite)

Queries are written with ? placeholders and rebound to $n for PostgreSQL.
SQLite runs on a single connection.

# Tables

  - poll: one row per live poll, keyed by id (the prompt)
  - candidate: candidates and their vote counts, keyed by (poll_instance, idx)
  - vote: one row per caller per poll instance

# Relationships

	poll 1──* candidate   (via poll.instance)
	poll 1──* vote        (via poll.instance, not enforced)

Deleting a poll deletes its candidates. Vote rows are kept for audit; every
query joins them to a live poll instance, so they vanish from results.

# Concurrency

Each mutation runs in one transaction. On PostgreSQL the poll row is locked
FOR SHARE while voting and FOR UPDATE for owner operations. The vote primary
key (caller_id, poll_instance) is the final exactly-once guard.
*/
package db
