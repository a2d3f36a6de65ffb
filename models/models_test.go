package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/poll-ledger/ledger"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func testPoll() ledger.Poll {
	return ledger.Poll{
		ID:         "Best color?",
		Prompt:     "Best color?",
		Category:   "Misc",
		CreatedBy:  "alice",
		CreatedAt:  t0,
		Duration:   24 * time.Hour,
		Candidates: []ledger.Candidate{{Name: "Red"}, {Name: "Blue"}},
		VoteCounts: []uint64{3, 1},
	}
}

func TestNewPollView(t *testing.T) {
	v := NewPollView(testPoll(), t0.Add(time.Hour))

	if v.Status != ledger.StatusActive {
		t.Errorf("Expected active, got %s", v.Status)
	}
	if v.TotalVotes != 4 {
		t.Errorf("Expected 4 total votes, got %d", v.TotalVotes)
	}
	if !v.ExpiresAt.Equal(t0.Add(24 * time.Hour)) {
		t.Errorf("Unexpected expiry %v", v.ExpiresAt)
	}
	if !strings.HasSuffix(v.ExpiresIn, "from now") {
		t.Errorf("Expected future expiry text, got %q", v.ExpiresIn)
	}
	if v.Leader == nil || *v.Leader != 0 {
		t.Errorf("Expected leader 0, got %v", v.Leader)
	}
	if v.Tags == nil {
		t.Error("Expected non-nil tags")
	}

	expired := NewPollView(testPoll(), t0.Add(48*time.Hour))
	if expired.Status != ledger.StatusExpired || !strings.HasSuffix(expired.ExpiresIn, "ago") {
		t.Errorf("Expected expired view, got %s / %q", expired.Status, expired.ExpiresIn)
	}
}

func TestNewPollView_TieHasNoLeader(t *testing.T) {
	p := testPoll()
	p.VoteCounts = []uint64{2, 2}

	data, err := json.Marshal(NewPollView(p, t0))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"leader"`) {
		t.Errorf("Expected leader to be omitted on a tie: %s", data)
	}
}

func TestNewPollsResponse_Empty(t *testing.T) {
	data, err := json.Marshal(NewPollsResponse(nil, t0))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"polls":[],"count":0}` {
		t.Errorf("Unexpected JSON %s", data)
	}
}

func TestNewStatsResponse(t *testing.T) {
	s := NewStatsResponse(ledger.Stats{TotalPolls: 3, ActivePolls: 2, TotalVotes: 1234})
	if s.VotesDisplay != "1,234" {
		t.Errorf("Expected 1,234, got %q", s.VotesDisplay)
	}
	if s.TotalPolls != 3 || s.ActivePolls != 2 || s.TotalVotes != 1234 {
		t.Errorf("Unexpected stats %+v", s)
	}
}
