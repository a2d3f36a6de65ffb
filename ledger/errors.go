// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID            = errors.New("poll with this prompt already exists")
	ErrInsufficientCandidates = errors.New("poll must have at least two candidates")
	ErrInvalidDuration        = errors.New("invalid poll duration")
	ErrNotFound               = errors.New("poll not found")
	ErrPollInactive           = errors.New("poll is not active")
	ErrAlreadyVoted           = errors.New("caller has already voted on this poll")
	ErrInvalidCandidate       = errors.New("invalid candidate")
	ErrUnauthorized           = errors.New("only the poll creator can do this")
)

// Kind tags a ledger failure.
type Kind int

const (
	KindNone Kind = iota
	KindDuplicateID
	KindInsufficientCandidates
	KindInvalidDuration
	KindNotFound
	KindPollInactive
	KindAlreadyVoted
	KindInvalidCandidate
	KindUnauthorized
)

var kinds = []struct {
	kind Kind
	err  error
	name string
}{
	{KindDuplicateID, ErrDuplicateID, "DuplicateId"},
	{KindInsufficientCandidates, ErrInsufficientCandidates, "InsufficientCandidates"},
	{KindInvalidDuration, ErrInvalidDuration, "InvalidDuration"},
	{KindNotFound, ErrNotFound, "NotFound"},
	{KindPollInactive, ErrPollInactive, "PollInactive"},
	{KindAlreadyVoted, ErrAlreadyVoted, "AlreadyVoted"},
	{KindInvalidCandidate, ErrInvalidCandidate, "InvalidCandidate"},
	{KindUnauthorized, ErrUnauthorized, "Unauthorized"},
}

func (k Kind) String() string {
	for _, e := range kinds {
		if e.kind == k {
			return e.name
		}
	}
	return "None"
}

// KindOf returns the ledger kind wrapped in err, or KindNone for anything else
// (storage failures included).
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, e := range kinds {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindNone
}

// NotFound wraps ErrNotFound with the poll id.
func NotFound(pollID string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, pollID)
}

// DuplicateID wraps ErrDuplicateID with the poll id.
func DuplicateID(pollID string) error {
	return fmt.Errorf("%w: %q", ErrDuplicateID, pollID)
}

func unauthorized(pollID, caller string) error {
	return fmt.Errorf("%w: %q is not the creator of %q", ErrUnauthorized, caller, pollID)
}
