// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestDurationOf(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		hours   int
		want    time.Duration
		wantErr bool
	}{
		{"one day", 1, 0, 24 * time.Hour, false},
		{"one hour", 0, 1, time.Hour, false},
		{"mixed", 2, 23, 71 * time.Hour, false},
		{"zero", 0, 0, 0, true},
		{"negative days", -1, 2, 0, true},
		{"negative hours", 1, -2, 0, true},
		{"both negative", -1, -1, 0, true},
		{"hours over 23", 0, 24, 0, true},
		{"days overflow", math.MaxInt64/int(24*time.Hour) + 1, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DurationOf(tt.days, tt.hours)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDuration) {
					t.Fatalf("Expected ErrInvalidDuration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDurationOf_Nanoseconds(t *testing.T) {
	got, err := DurationOf(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if int64(got) != 86400e9 {
		t.Errorf("Expected 86400e9 ns, got %d", int64(got))
	}
}

func TestExtendedDuration(t *testing.T) {
	got, err := ExtendedDuration(time.Hour, 0, 48)
	if err != nil {
		t.Fatal(err)
	}
	if got != 49*time.Hour {
		t.Errorf("Expected 49h, got %v", got)
	}

	for _, c := range []struct{ days, hours int }{{0, 0}, {-1, 5}, {5, -1}} {
		if _, err := ExtendedDuration(time.Hour, c.days, c.hours); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("ExtendedDuration(%d, %d): expected ErrInvalidDuration, got %v", c.days, c.hours, err)
		}
	}

	if _, err := ExtendedDuration(time.Duration(math.MaxInt64-1), 0, 1); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("Expected overflow to fail, got %v", err)
	}
}

func TestBuildPoll(t *testing.T) {
	in := NewPoll{
		Prompt:        "Best color?",
		Category:      "general",
		Candidates:    []Candidate{{Name: "Red"}, {Name: "Blue"}},
		DurationDays:  1,
		DurationHours: 0,
	}

	p, err := BuildPoll(in, "alice", t0)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != in.Prompt {
		t.Errorf("Expected id to be the prompt, got %q", p.ID)
	}
	if p.Tags == nil {
		t.Error("Expected non-nil tags")
	}
	if p.Instance.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("Expected a fresh instance id")
	}
	if !p.ExpiresAt().Equal(t0.Add(86400e9)) {
		t.Errorf("Unexpected expiry %v", p.ExpiresAt())
	}
	if len(p.VoteCounts) != 2 || p.VoteCounts[0] != 0 || p.VoteCounts[1] != 0 {
		t.Errorf("Expected zeroed counts, got %v", p.VoteCounts)
	}

	// Result does not alias the input
	in.Candidates[0].Name = "Green"
	if p.Candidates[0].Name != "Red" {
		t.Error("BuildPoll result aliases input candidates")
	}

	other, err := BuildPoll(in, "alice", t0)
	if err != nil {
		t.Fatal(err)
	}
	if other.Instance == p.Instance {
		t.Error("Expected distinct instance ids")
	}
}

func TestBuildPoll_ErrorOrder(t *testing.T) {
	tests := []struct {
		name string
		in   NewPoll
		want error
	}{
		{"insufficient before duration", NewPoll{Candidates: []Candidate{{Name: "A"}}}, ErrInsufficientCandidates},
		{"insufficient before name", NewPoll{Candidates: []Candidate{{}}, DurationDays: 1}, ErrInsufficientCandidates},
		{"name before duration", NewPoll{Candidates: []Candidate{{Name: "A"}, {}}}, ErrInvalidCandidate},
		{"duration last", NewPoll{Candidates: []Candidate{{Name: "A"}, {Name: "B"}}}, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildPoll(tt.in, "alice", t0); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckVote(t *testing.T) {
	p := Poll{
		ID:         "Q",
		CreatedAt:  t0,
		Duration:   time.Hour,
		Candidates: []Candidate{{Name: "A"}, {Name: "B"}},
		VoteCounts: []uint64{0, 0},
	}
	paused := p
	paused.Paused = true

	tests := []struct {
		name     string
		poll     Poll
		idx      int
		hasVoted bool
		now      time.Time
		want     error
	}{
		{"ok first", p, 0, false, t0, nil},
		{"ok last", p, 1, false, t0.Add(time.Hour - 1), nil},
		{"expired", p, 0, false, t0.Add(time.Hour), ErrPollInactive},
		{"paused", paused, 0, false, t0, ErrPollInactive},
		{"inactive beats voted", p, 0, true, t0.Add(2 * time.Hour), ErrPollInactive},
		{"inactive beats bad index", p, 7, false, t0.Add(2 * time.Hour), ErrPollInactive},
		{"voted beats bad index", p, 7, true, t0, ErrAlreadyVoted},
		{"negative index", p, -1, false, t0, ErrInvalidCandidate},
		{"index too large", p, 2, false, t0, ErrInvalidCandidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVote(tt.poll, tt.idx, tt.hasVoted, tt.now)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckOwner(t *testing.T) {
	p := Poll{ID: "Q", CreatedBy: "alice"}
	if err := CheckOwner(p, "alice"); err != nil {
		t.Errorf("Expected owner to pass, got %v", err)
	}
	if err := CheckOwner(p, "bob"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
		name string
	}{
		{DuplicateID("x"), KindDuplicateID, "DuplicateId"},
		{ErrInsufficientCandidates, KindInsufficientCandidates, "InsufficientCandidates"},
		{ErrInvalidDuration, KindInvalidDuration, "InvalidDuration"},
		{NotFound("x"), KindNotFound, "NotFound"},
		{ErrPollInactive, KindPollInactive, "PollInactive"},
		{ErrAlreadyVoted, KindAlreadyVoted, "AlreadyVoted"},
		{ErrInvalidCandidate, KindInvalidCandidate, "InvalidCandidate"},
		{unauthorized("x", "y"), KindUnauthorized, "Unauthorized"},
		{errors.New("disk full"), KindNone, "None"},
		{nil, KindNone, "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KindOf(tt.err)
			if got != tt.kind {
				t.Errorf("Expected %v, got %v", tt.kind, got)
			}
			if got.String() != tt.name {
				t.Errorf("Expected name %q, got %q", tt.name, got.String())
			}
		})
	}
}

func TestPollStatus(t *testing.T) {
	p := Poll{CreatedAt: t0, Duration: time.Hour}

	if s := p.Status(t0); s != StatusActive {
		t.Errorf("Expected active, got %s", s)
	}
	if r := p.Remaining(t0.Add(15 * time.Minute)); r != 45*time.Minute {
		t.Errorf("Expected 45m remaining, got %v", r)
	}
	if s := p.Status(t0.Add(time.Hour)); s != StatusExpired {
		t.Errorf("Expected expired at expiry, got %s", s)
	}
	if r := p.Remaining(t0.Add(2 * time.Hour)); r != 0 {
		t.Errorf("Expected no time remaining, got %v", r)
	}

	p.Paused = true
	if s := p.Status(t0); s != StatusPaused {
		t.Errorf("Expected paused, got %s", s)
	}
	if p.IsActive(t0) {
		t.Error("Paused poll should not be active")
	}
	// Expiry wins over pause
	if s := p.Status(t0.Add(time.Hour)); s != StatusExpired {
		t.Errorf("Expected expired, got %s", s)
	}
}

func TestCategoryKey(t *testing.T) {
	if CategoryKey("Sports") != CategoryKey("SPORTS") {
		t.Error("Expected case-insensitive keys")
	}
	if CategoryKey("sports") == CategoryKey("sport") {
		t.Error("Expected distinct keys")
	}
}

func TestPollClone(t *testing.T) {
	p := Poll{
		ID:         "Q",
		Tags:       []string{},
		Candidates: []Candidate{{Name: "a"}, {Name: "b"}},
		VoteCounts: []uint64{1, 2},
	}

	c := p.Clone()
	if c.Tags == nil {
		t.Error("Expected empty tags to stay non-nil")
	}

	p.Tags = []string{"x"}
	c = p.Clone()
	c.Tags[0] = "y"
	c.VoteCounts[0] = 9
	c.Candidates[0].Name = "z"
	if p.Tags[0] != "x" || p.VoteCounts[0] != 1 || p.Candidates[0].Name != "a" {
		t.Errorf("Clone shares memory with the original: %+v", p)
	}

	p.Tags = nil
	if c := p.Clone(); c.Tags != nil {
		t.Errorf("Expected nil tags to stay nil, got %v", c.Tags)
	}
}
