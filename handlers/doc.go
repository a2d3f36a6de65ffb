// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the poll ledger API.

# Handler Types

Each handler is a struct holding a ledger.Service and a Clock:

  - PollHandler: create, list, get, delete, pause, resume and extend
  - VotingHandler: vote casting, per-poll vote lookup, vote history
  - QueryHandler: polls by creator, polls by category, stats
  - RPCHandler: every ledger operation behind POST /rpc

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(svc, time.Now)

A nil Clock falls back to time.Now.

# Callers

Handlers never parse tokens. The authenticated caller arrives in the
request context through middleware.Authenticate and is read back with
middleware.CallerFrom.

# Errors

Ledger errors are written by middleware.LedgerError, which maps each
ledger.Kind to an HTTP status and includes the kind name in the body:

	{"error": "Conflict", "message": "caller has already voted on this poll: \"Best color?\"", "kind": "AlreadyVoted"}
*/
package handlers
