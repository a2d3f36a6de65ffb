// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger is the poll ledger: polls, exactly-once votes, expiry and
owner-only administration.

# Data Model

A Poll is identified by its prompt text. It holds at least two candidates, a
vote count per candidate, its creator, creation time and validity window:

	expiresAt = CreatedAt + Duration
	active    = now < expiresAt && !Paused

A VoteRecord ties one caller to one candidate of one poll instance. At most
one exists per caller and poll; records outlive deleted polls but are
excluded from every query once their poll is gone.

# Backends

Service is implemented by Memory here, by package db (PostgreSQL, SQLite)
and by package redisdb. All of them pass the same conformance suite in
testutil.

# Errors

Every failure is one of the sentinel errors (ErrNotFound, ErrAlreadyVoted,
...) wrapped with context. Use errors.Is or KindOf:

	if ledger.KindOf(err) == ledger.KindAlreadyVoted { ... }

# Operations

The call boundary is a closed set of typed requests:

	req, err := ledger.DecodeRequest("vote", args)
	resp, err := ledger.Execute(ctx, svc, ledger.Env{Caller: id, Now: now}, req)

# Queries

Search, Summarize and Tally work on polls already fetched from a Service.
*/
package ledger
