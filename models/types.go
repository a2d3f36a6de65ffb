package models

import (
	"encoding/json"
	"time"

	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/dustin/go-humanize"
)

// Request types

type CreatePollRequest struct {
	Prompt        string             `json:"prompt"`
	Description   string             `json:"description"`
	Category      string             `json:"category"`
	Candidates    []ledger.Candidate `json:"candidates"`
	DurationDays  int                `json:"duration_days"`
	DurationHours int                `json:"duration_hours"`
	Tags          []string           `json:"tags"`
}

// nil CandidateIndex means the field was missing
type VoteRequest struct {
	CandidateIndex *int `json:"candidate_index"`
}

type ExtendPollRequest struct {
	AdditionalDays  int `json:"additional_days"`
	AdditionalHours int `json:"additional_hours"`
}

// RPCRequest names one ledger operation and its camelCase arguments
type RPCRequest struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

// Response types

// PollView is a poll as the API shows it: the stored fields plus values
// derived from the request clock.
type PollView struct {
	ID          string             `json:"id"`
	Prompt      string             `json:"prompt"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Tags        []string           `json:"tags"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	DurationNs  int64              `json:"duration_ns"`
	ExpiresAt   time.Time          `json:"expires_at"`
	ExpiresIn   string             `json:"expires_in"`
	Status      string             `json:"status"`
	Paused      bool               `json:"paused"`
	Candidates  []ledger.Candidate `json:"candidates"`
	VoteCounts  []uint64           `json:"vote_counts"`
	TotalVotes  uint64             `json:"total_votes"`
	Results     []ledger.Standing  `json:"results"`
	Leader      *int               `json:"leader,omitempty"` // absent while tied or empty
}

func NewPollView(p ledger.Poll, now time.Time) PollView {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	v := PollView{
		ID:          p.ID,
		Prompt:      p.Prompt,
		Description: p.Description,
		Category:    p.Category,
		Tags:        tags,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		DurationNs:  int64(p.Duration),
		ExpiresAt:   p.ExpiresAt(),
		ExpiresIn:   humanize.RelTime(p.ExpiresAt(), now, "ago", "from now"),
		Status:      p.Status(now),
		Paused:      p.Paused,
		Candidates:  p.Candidates,
		VoteCounts:  p.VoteCounts,
		TotalVotes:  p.TotalVotes(),
		Results:     ledger.Tally(p),
	}
	if idx, ok := ledger.Leader(p); ok {
		v.Leader = &idx
	}
	return v
}

type PollsResponse struct {
	Polls []PollView `json:"polls"`
	Count int        `json:"count"`
}

func NewPollsResponse(polls []ledger.Poll, now time.Time) PollsResponse {
	views := make([]PollView, 0, len(polls))
	for _, p := range polls {
		views = append(views, NewPollView(p, now))
	}
	return PollsResponse{Polls: views, Count: len(views)}
}

type DeletePollResponse struct {
	PollID  string `json:"poll_id"`
	Deleted bool   `json:"deleted"`
}

// CandidateIndex is ledger.NotVoted when Voted is false
type UserVoteResponse struct {
	PollID         string `json:"poll_id"`
	Caller         string `json:"caller"`
	Voted          bool   `json:"voted"`
	CandidateIndex int    `json:"candidate_index"`
}

type VoteHistoryResponse struct {
	Caller string              `json:"caller"`
	Votes  []ledger.VoteRecord `json:"votes"`
	Count  int                 `json:"count"`
}

type StatsResponse struct {
	TotalPolls   int    `json:"total_polls"`
	ActivePolls  int    `json:"active_polls"`
	TotalVotes   uint64 `json:"total_votes"`
	VotesDisplay string `json:"votes_display"` // e.g. "1,234"
}

func NewStatsResponse(s ledger.Stats) StatsResponse {
	return StatsResponse{
		TotalPolls:   s.TotalPolls,
		ActivePolls:  s.ActivePolls,
		TotalVotes:   s.TotalVotes,
		VotesDisplay: humanize.Comma(int64(s.TotalVotes)),
	}
}

type RPCResponse struct {
	Method string          `json:"method"`
	Result ledger.Response `json:"result"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"` // ledger error kind, e.g. "AlreadyVoted"
}
