// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"testing"
	"time"
)

func queryFixture() []Poll {
	mk := func(id, by, category, desc string, created time.Time, dur time.Duration, counts ...uint64) Poll {
		return Poll{
			ID: id, Prompt: id, Description: desc, Category: category, CreatedBy: by,
			CreatedAt: created, Duration: dur, VoteCounts: counts,
			Candidates: make([]Candidate, len(counts)),
		}
	}
	return []Poll{
		mk("Best pizza topping?", "alice", "Food", "", t0, 48*time.Hour, 3, 1),
		mk("Favorite sport?", "bob", "Sports", "weekend league", t0.Add(time.Hour), 2*time.Hour, 0, 0),
		mk("Tabs or spaces?", "carol", "Tech", "the eternal question", t0.Add(2*time.Hour), 24*time.Hour, 10, 12),
		mk("Expired?", "alice", "food", "", t0.Add(-48*time.Hour), time.Hour, 5, 0),
	}
}

func ids(polls []Poll) []string {
	out := make([]string, len(polls))
	for i, p := range polls {
		out[i] = p.ID
	}
	return out
}

func TestSearch(t *testing.T) {
	now := t0.Add(2 * time.Hour)

	tests := []struct {
		name string
		q    SearchQuery
		want []string
	}{
		{"everything newest first", SearchQuery{}, []string{"Tabs or spaces?", "Favorite sport?", "Best pizza topping?", "Expired?"}},
		{"text in prompt", SearchQuery{Text: "PIZZA"}, []string{"Best pizza topping?"}},
		{"text in description", SearchQuery{Text: "league"}, []string{"Favorite sport?"}},
		{"text in creator", SearchQuery{Text: "carol"}, []string{"Tabs or spaces?"}},
		{"category any case", SearchQuery{Category: "FOOD"}, []string{"Best pizza topping?", "Expired?"}},
		{"active only", SearchQuery{ActiveOnly: true}, []string{"Tabs or spaces?", "Favorite sport?", "Best pizza topping?"}},
		{"oldest", SearchQuery{Sort: SortOldest}, []string{"Expired?", "Best pizza topping?", "Favorite sport?", "Tabs or spaces?"}},
		{"most voted", SearchQuery{Sort: SortMostVoted}, []string{"Tabs or spaces?", "Expired?", "Best pizza topping?", "Favorite sport?"}},
		{"ending soon", SearchQuery{Sort: SortEndingSoon}, []string{"Favorite sport?", "Tabs or spaces?", "Best pizza topping?", "Expired?"}},
		{"no match", SearchQuery{Text: "nothing like this"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Search(queryFixture(), tt.q, now))
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	for in, want := range map[string]SortOrder{
		"":           SortLatest,
		"latest":     SortLatest,
		"oldest":     SortOldest,
		"mostVoted":  SortMostVoted,
		"endingSoon": SortEndingSoon,
	} {
		got, err := ParseSortOrder(in)
		if err != nil || got != want {
			t.Errorf("ParseSortOrder(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSortOrder("random"); err == nil {
		t.Error("Expected error for unknown sort order")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(queryFixture(), t0.Add(2*time.Hour))
	if s.TotalPolls != 4 {
		t.Errorf("Expected 4 polls, got %d", s.TotalPolls)
	}
	if s.ActivePolls != 3 {
		t.Errorf("Expected 3 active polls, got %d", s.ActivePolls)
	}
	if s.TotalVotes != 31 {
		t.Errorf("Expected 31 votes, got %d", s.TotalVotes)
	}

	if empty := Summarize(nil, t0); empty != (Stats{}) {
		t.Errorf("Expected zero stats, got %+v", empty)
	}
}
