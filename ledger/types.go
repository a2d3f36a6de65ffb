// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"time"

	"github.com/google/uuid"
)

// NotVoted is returned by UserVote when the caller has no vote on the poll.
const NotVoted = -1

// Poll status values reported by Poll.Status
const (
	StatusActive  = "active"
	StatusPaused  = "paused"
	StatusExpired = "expired"
)

type Candidate struct {
	Name        string `json:"name"`
	Slogan      string `json:"slogan,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Poll is a question with candidates and a time-bounded voting window.
// The ID is the prompt text. Instance identifies this particular incarnation
// of the ID, so a poll deleted and re-created under the same prompt is a
// different instance.
type Poll struct {
	ID          string        `json:"id"`
	Instance    uuid.UUID     `json:"instance"`
	Prompt      string        `json:"prompt"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Tags        []string      `json:"tags"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	Duration    time.Duration `json:"duration_ns"`
	Candidates  []Candidate   `json:"candidates"`
	VoteCounts  []uint64      `json:"vote_counts"`
	Paused      bool          `json:"paused"`
}

// VoteRecord is the permanent record of one caller's vote on one poll instance.
type VoteRecord struct {
	PollID         string    `json:"poll_id"`
	Instance       uuid.UUID `json:"instance"`
	CandidateIndex int       `json:"candidate_index"`
	CastAt         time.Time `json:"cast_at"`
}

// NewPoll carries the caller-supplied fields of createPoll.
type NewPoll struct {
	Prompt        string
	Description   string
	Category      string
	Candidates    []Candidate
	DurationDays  int
	DurationHours int
	Tags          []string
}

func (p Poll) ExpiresAt() time.Time {
	return p.CreatedAt.Add(p.Duration)
}

// IsActive reports whether the poll accepts votes at now.
func (p Poll) IsActive(now time.Time) bool {
	return now.Before(p.ExpiresAt()) && !p.Paused
}

// Status reports the poll state at now. Expiry wins over pause.
func (p Poll) Status(now time.Time) string {
	switch {
	case !now.Before(p.ExpiresAt()):
		return StatusExpired
	case p.Paused:
		return StatusPaused
	default:
		return StatusActive
	}
}

// Remaining returns the time left until expiry, or 0 once expired.
func (p Poll) Remaining(now time.Time) time.Duration {
	left := p.ExpiresAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (p Poll) TotalVotes() uint64 {
	var total uint64
	for _, n := range p.VoteCounts {
		total += n
	}
	return total
}

// Clone returns a deep copy; mutating it never affects the original.
func (p Poll) Clone() Poll {
	c := p
	if p.Tags != nil {
		c.Tags = make([]string, len(p.Tags))
		copy(c.Tags, p.Tags)
	}
	c.Candidates = append([]Candidate(nil), p.Candidates...)
	c.VoteCounts = append([]uint64(nil), p.VoteCounts...)
	return c
}
