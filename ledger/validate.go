// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	nsPerHour = int64(time.Hour)
	nsPerDay  = 24 * nsPerHour
)

// DurationOf converts a days/hours pair into a validity window.
// It fails with ErrInvalidDuration on negative components, hours above 23,
// a zero total, or a total that overflows int64 nanoseconds.
func DurationOf(days, hours int) (time.Duration, error) {
	if days < 0 || hours < 0 {
		return 0, fmt.Errorf("%w: components cannot be negative", ErrInvalidDuration)
	}
	if hours > 23 {
		return 0, fmt.Errorf("%w: hours must be between 0 and 23", ErrInvalidDuration)
	}
	if days == 0 && hours == 0 {
		return 0, fmt.Errorf("%w: at least one hour is required", ErrInvalidDuration)
	}
	return addDuration(0, days, hours)
}

// ExtendedDuration returns current extended by days and hours. Unlike
// DurationOf, hours are not capped at 23.
func ExtendedDuration(current time.Duration, days, hours int) (time.Duration, error) {
	if days < 0 || hours < 0 {
		return 0, fmt.Errorf("%w: components cannot be negative", ErrInvalidDuration)
	}
	if days == 0 && hours == 0 {
		return 0, fmt.Errorf("%w: extension must add time", ErrInvalidDuration)
	}
	return addDuration(current, days, hours)
}

func addDuration(base time.Duration, days, hours int) (time.Duration, error) {
	d, h := int64(days), int64(hours)
	if d > math.MaxInt64/nsPerDay || h > math.MaxInt64/nsPerHour {
		return 0, fmt.Errorf("%w: duration too large", ErrInvalidDuration)
	}
	total := int64(base)
	for _, part := range []int64{d * nsPerDay, h * nsPerHour} {
		if total > math.MaxInt64-part {
			return 0, fmt.Errorf("%w: duration too large", ErrInvalidDuration)
		}
		total += part
	}
	return time.Duration(total), nil
}

// BuildPoll validates in and returns the poll a successful createPoll stores.
// Prompt uniqueness is the caller's job since only the store can check it.
func BuildPoll(in NewPoll, caller string, now time.Time) (Poll, error) {
	if len(in.Candidates) < 2 {
		return Poll{}, fmt.Errorf("%w: got %d", ErrInsufficientCandidates, len(in.Candidates))
	}
	for i, c := range in.Candidates {
		if c.Name == "" {
			return Poll{}, fmt.Errorf("%w: candidate %d has no name", ErrInvalidCandidate, i)
		}
	}
	duration, err := DurationOf(in.DurationDays, in.DurationHours)
	if err != nil {
		return Poll{}, err
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	p := Poll{
		ID:          in.Prompt,
		Instance:    uuid.New(),
		Prompt:      in.Prompt,
		Description: in.Description,
		Category:    in.Category,
		Tags:        tags,
		CreatedBy:   caller,
		CreatedAt:   now,
		Duration:    duration,
		Candidates:  in.Candidates,
		VoteCounts:  make([]uint64, len(in.Candidates)),
	}
	return p.Clone(), nil
}

// CheckVote applies the vote preconditions that depend only on the poll:
// activity and candidate bounds. hasVoted is the caller's existing-vote state,
// checked between the two so the first failing precondition wins.
func CheckVote(p Poll, candidateIndex int, hasVoted bool, now time.Time) error {
	if !p.IsActive(now) {
		return fmt.Errorf("%w: %q", ErrPollInactive, p.ID)
	}
	if hasVoted {
		return fmt.Errorf("%w: %q", ErrAlreadyVoted, p.ID)
	}
	if candidateIndex < 0 || candidateIndex >= len(p.Candidates) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidCandidate, candidateIndex, len(p.Candidates))
	}
	return nil
}

// CheckOwner fails with ErrUnauthorized unless caller created p.
func CheckOwner(p Poll, caller string) error {
	if p.CreatedBy != caller {
		return unauthorized(p.ID, caller)
	}
	return nil
}

// CategoryKey is the index key for case-insensitive category matching.
func CategoryKey(category string) string {
	return strings.ToLower(category)
}
