// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"sort"
	"time"
)

// Service is the complete external surface of a poll ledger. Every backend
// (in-memory, SQL, Redis) implements it with the same semantics.
//
// caller and now always come from the hosting environment, never from
// untrusted request arguments. Returned polls are copies.
type Service interface {
	CreatePoll(ctx context.Context, in NewPoll, caller string, now time.Time) (Poll, error)
	Vote(ctx context.Context, pollID string, candidateIndex int, caller string, now time.Time) error

	// GetPoll returns nil, nil when the poll does not exist.
	GetPoll(ctx context.Context, pollID string) (*Poll, error)
	AllPolls(ctx context.Context) ([]Poll, error)
	UserPolls(ctx context.Context, caller string) ([]Poll, error)
	PollsByCategory(ctx context.Context, category string) ([]Poll, error)
	HasUserVoted(ctx context.Context, pollID, caller string) (bool, error)
	// UserVote returns NotVoted when caller has no vote on the poll.
	UserVote(ctx context.Context, pollID, caller string) (int, error)
	UserVoteHistory(ctx context.Context, caller string) ([]VoteRecord, error)

	DeletePoll(ctx context.Context, pollID, caller string) error
	PausePoll(ctx context.Context, pollID, caller string) error
	ResumePoll(ctx context.Context, pollID, caller string) error
	ExtendPoll(ctx context.Context, pollID, caller string, additionalDays, additionalHours int) error
}

// SortPolls orders polls newest first, ties broken by id. All list queries
// return this order.
func SortPolls(polls []Poll) {
	sort.SliceStable(polls, func(i, j int) bool {
		if !polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		}
		return polls[i].ID < polls[j].ID
	})
}

// SortHistory orders vote records by cast time, ties broken by poll id.
func SortHistory(records []VoteRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CastAt.Equal(records[j].CastAt) {
			return records[i].CastAt.Before(records[j].CastAt)
		}
		return records[i].PollID < records[j].PollID
	})
}
