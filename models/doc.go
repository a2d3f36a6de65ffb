// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the JSON request and response types of the HTTP API.

The ledger package owns the domain types (Poll, Candidate, VoteRecord).
This package only shapes them for the wire.

# Request Types

  - CreatePollRequest: prompt, description, category, candidates, duration_days, duration_hours, tags
  - VoteRequest: candidate_index
  - ExtendPollRequest: additional_days, additional_hours
  - RPCRequest: method, args (ledger call with camelCase arguments)

# Response Types

  - PollView: a poll plus status, expires_at, expires_in, total_votes, results, leader
  - PollsResponse: polls, count
  - DeletePollResponse: poll_id, deleted
  - UserVoteResponse: poll_id, caller, voted, candidate_index (-1 when not voted)
  - VoteHistoryResponse: caller, votes, count
  - StatsResponse: total_polls, active_polls, total_votes, votes_display
  - RPCResponse: method, result
  - ErrorResponse: error, message, kind

PollView is computed against the request clock, so status and expires_in
move as time passes even though the stored poll does not change.
*/
package models
