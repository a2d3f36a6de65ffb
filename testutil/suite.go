// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/poll-ledger/ledger"
)

// Factory returns an empty ledger. It is called once per subtest.
type Factory func(t *testing.T) ledger.Service

// RunLedgerSuite checks that a ledger.Service backend behaves like every
// other backend. Backend packages call it from their own tests.
func RunLedgerSuite(t *testing.T, newService Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, svc ledger.Service)
	}{
		{"CreatePollFields", testCreatePollFields},
		{"CreatePollValidation", testCreatePollValidation},
		{"DuplicatePrompt", testDuplicatePrompt},
		{"ExactlyOnceVoting", testExactlyOnceVoting},
		{"ExpiryGating", testExpiryGating},
		{"Authorization", testAuthorization},
		{"CandidateBounds", testCandidateBounds},
		{"EndToEnd", testEndToEnd},
		{"GetPollMissing", testGetPollMissing},
		{"PauseResume", testPauseResume},
		{"ExtendPoll", testExtendPoll},
		{"DeleteAndRecreate", testDeleteAndRecreate},
		{"ListQueries", testListQueries},
		{"VoteHistory", testVoteHistory},
		{"CopyIsolation", testCopyIsolation},
		{"ConcurrentVotes", testConcurrentVotes},
		{"ManyDistinctVoters", testManyDistinctVoters},
		{"PauseWhileVoting", testPauseWhileVoting},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newService(t))
		})
	}
}

var bg = context.Background()

func mustVote(t *testing.T, svc ledger.Service, pollID string, idx int, caller string, now time.Time) {
	t.Helper()
	if err := svc.Vote(bg, pollID, idx, caller, now); err != nil {
		t.Fatalf("vote(%q, %d, %q) failed: %v", pollID, idx, caller, err)
	}
}

func mustGet(t *testing.T, svc ledger.Service, pollID string) ledger.Poll {
	t.Helper()
	p, err := svc.GetPoll(bg, pollID)
	if err != nil {
		t.Fatalf("getPoll(%q) failed: %v", pollID, err)
	}
	if p == nil {
		t.Fatalf("getPoll(%q) returned nil", pollID)
	}
	return *p
}

func assertCounts(t *testing.T, p ledger.Poll, want ...uint64) {
	t.Helper()
	if len(p.VoteCounts) != len(want) {
		t.Fatalf("Expected %d vote counts, got %v", len(want), p.VoteCounts)
	}
	for i := range want {
		if p.VoteCounts[i] != want[i] {
			t.Fatalf("Expected vote counts %v, got %v", want, p.VoteCounts)
		}
	}
}

func assertIDs(t *testing.T, polls []ledger.Poll, want ...string) {
	t.Helper()
	if len(polls) != len(want) {
		ids := make([]string, len(polls))
		for i, p := range polls {
			ids[i] = p.ID
		}
		t.Fatalf("Expected polls %v, got %v", want, ids)
	}
	for i := range want {
		if polls[i].ID != want[i] {
			t.Fatalf("Expected poll %d to be %q, got %q", i, want[i], polls[i].ID)
		}
	}
}

func testCreatePollFields(t *testing.T, svc ledger.Service) {
	in := ledger.NewPoll{
		Prompt:      "Lunch?",
		Description: "Friday team lunch",
		Category:    "Food",
		Candidates: []ledger.Candidate{
			{Name: "Pizza", Slogan: "cheesy", Description: "thin crust", ImageURL: "https://example.com/p.png"},
			{Name: "Sushi"},
			{Name: "Tacos"},
		},
		DurationDays:  1,
		DurationHours: 2,
		Tags:          []string{"team", "friday"},
	}
	created, err := svc.CreatePoll(bg, in, "alice", T0)
	if err != nil {
		t.Fatalf("createPoll failed: %v", err)
	}

	for _, p := range []ledger.Poll{created, mustGet(t, svc, "Lunch?")} {
		if p.ID != "Lunch?" || p.Prompt != "Lunch?" {
			t.Errorf("Expected id and prompt 'Lunch?', got %q / %q", p.ID, p.Prompt)
		}
		if p.Description != "Friday team lunch" || p.Category != "Food" {
			t.Errorf("Unexpected description/category: %q / %q", p.Description, p.Category)
		}
		if p.CreatedBy != "alice" {
			t.Errorf("Expected created_by alice, got %q", p.CreatedBy)
		}
		if !p.CreatedAt.Equal(T0) {
			t.Errorf("Expected created_at %v, got %v", T0, p.CreatedAt)
		}
		if p.Duration != 26*time.Hour {
			t.Errorf("Expected duration 26h, got %v", p.Duration)
		}
		if p.Paused {
			t.Error("New poll should not be paused")
		}
		if len(p.Candidates) != 3 || p.Candidates[0] != in.Candidates[0] || p.Candidates[2].Name != "Tacos" {
			t.Errorf("Unexpected candidates: %+v", p.Candidates)
		}
		if len(p.Tags) != 2 || p.Tags[0] != "team" || p.Tags[1] != "friday" {
			t.Errorf("Unexpected tags: %v", p.Tags)
		}
		assertCounts(t, p, 0, 0, 0)
	}

	// Tags default to empty
	p, err := svc.CreatePoll(bg, NewPoll("No tags", "A", "B"), "alice", T0)
	if err != nil {
		t.Fatalf("createPoll failed: %v", err)
	}
	if len(p.Tags) != 0 {
		t.Errorf("Expected no tags, got %v", p.Tags)
	}
}

func testCreatePollValidation(t *testing.T, svc ledger.Service) {
	withDuration := func(days, hours int) ledger.NewPoll {
		in := NewPoll("Q", "A", "B")
		in.DurationDays, in.DurationHours = days, hours
		return in
	}

	cases := []struct {
		name string
		in   ledger.NewPoll
		want ledger.Kind
	}{
		{"no candidates", NewPoll("Q"), ledger.KindInsufficientCandidates},
		{"one candidate", NewPoll("Q", "A"), ledger.KindInsufficientCandidates},
		{"one unnamed candidate", NewPoll("Q", ""), ledger.KindInsufficientCandidates},
		{"unnamed candidate", NewPoll("Q", "A", ""), ledger.KindInvalidCandidate},
		{"zero duration", withDuration(0, 0), ledger.KindInvalidDuration},
		{"negative days", withDuration(-1, 5), ledger.KindInvalidDuration},
		{"negative hours", withDuration(1, -1), ledger.KindInvalidDuration},
		{"hours over 23", withDuration(0, 24), ledger.KindInvalidDuration},
		{"overflow", withDuration(1<<40, 0), ledger.KindInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePoll(bg, tc.in, "alice", T0)
			AssertKind(t, err, tc.want)
		})
	}

	// Insufficient candidates is reported before a bad duration
	in := NewPoll("Q", "A")
	in.DurationDays = 0
	_, err := svc.CreatePoll(bg, in, "alice", T0)
	AssertKind(t, err, ledger.KindInsufficientCandidates)

	// Nothing was stored
	if p, err := svc.GetPoll(bg, "Q"); err != nil || p != nil {
		t.Errorf("Expected no poll after failed creates, got %v, %v", p, err)
	}
	all, err := svc.AllPolls(bg)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("Expected no polls, got %d", len(all))
	}

	// Hour-only and day-only durations are both fine
	for i, in := range []ledger.NewPoll{withDuration(0, 1), withDuration(7, 23)} {
		in.Prompt = fmt.Sprintf("Q%d", i)
		if _, err := svc.CreatePoll(bg, in, "alice", T0); err != nil {
			t.Errorf("Expected %dd%dh to be accepted, got %v", in.DurationDays, in.DurationHours, err)
		}
	}
}

func testDuplicatePrompt(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Best color?", T0)

	got, err := svc.CreatePoll(bg, NewPoll("Best color?", "X", "Y"), "alice", T0)
	AssertKind(t, err, ledger.KindDuplicateID)
	if got.ID != "" || got.Candidates != nil {
		t.Errorf("Expected a zero poll alongside the error, got %+v", got)
	}

	// Another caller cannot take the prompt either
	_, err = svc.CreatePoll(bg, NewPoll("Best color?", "X", "Y"), "bob", T0.Add(time.Hour))
	AssertKind(t, err, ledger.KindDuplicateID)

	// Duplicate wins over other validation failures
	_, err = svc.CreatePoll(bg, NewPoll("Best color?", "X"), "bob", T0)
	AssertKind(t, err, ledger.KindDuplicateID)

	// Prompts are matched exactly
	if _, err := svc.CreatePoll(bg, NewPoll("best color?", "X", "Y"), "bob", T0); err != nil {
		t.Errorf("Expected differently cased prompt to be accepted, got %v", err)
	}

	p := mustGet(t, svc, "Best color?")
	if p.CreatedBy != "alice" || p.Candidates[0].Name != "Red" {
		t.Errorf("Original poll was modified: %+v", p)
	}
}

func testExactlyOnceVoting(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Q", T0)

	mustVote(t, svc, "Q", 1, "bob", T0.Add(time.Second))

	for i, idx := range []int{1, 0, 1, 5, -1} {
		err := svc.Vote(bg, "Q", idx, "bob", T0.Add(time.Duration(i+2)*time.Second))
		AssertKind(t, err, ledger.KindAlreadyVoted)
	}

	p := mustGet(t, svc, "Q")
	assertCounts(t, p, 0, 1)
	if p.TotalVotes() != 1 {
		t.Errorf("Expected 1 total vote, got %d", p.TotalVotes())
	}

	voted, err := svc.HasUserVoted(bg, "Q", "bob")
	if err != nil || !voted {
		t.Errorf("Expected bob to have voted, got %v, %v", voted, err)
	}
	if idx, err := svc.UserVote(bg, "Q", "bob"); err != nil || idx != 1 {
		t.Errorf("Expected bob's vote 1, got %d, %v", idx, err)
	}

	// The creator votes like anyone else
	mustVote(t, svc, "Q", 0, "alice", T0.Add(time.Minute))
	assertCounts(t, mustGet(t, svc, "Q"), 1, 1)
}

func testExpiryGating(t *testing.T, svc ledger.Service) {
	p := CreateTestPoll(t, svc, "alice", "Q", T0)
	expiry := p.ExpiresAt()

	mustVote(t, svc, "Q", 0, "early", expiry.Add(-time.Nanosecond))

	for _, idx := range []int{0, 1, -1, 2} {
		err := svc.Vote(bg, "Q", idx, "late", expiry)
		AssertKind(t, err, ledger.KindPollInactive)
		err = svc.Vote(bg, "Q", idx, "late", expiry.Add(time.Hour))
		AssertKind(t, err, ledger.KindPollInactive)
	}

	// Expiry also beats AlreadyVoted
	err := svc.Vote(bg, "Q", 0, "early", expiry)
	AssertKind(t, err, ledger.KindPollInactive)

	assertCounts(t, mustGet(t, svc, "Q"), 1, 0)
	if voted, _ := svc.HasUserVoted(bg, "Q", "late"); voted {
		t.Error("Rejected vote should not be recorded")
	}
}

func testAuthorization(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Q", T0)

	ops := []struct {
		name string
		fn   func(caller string) error
	}{
		{"pause", func(c string) error { return svc.PausePoll(bg, "Q", c) }},
		{"resume", func(c string) error { return svc.ResumePoll(bg, "Q", c) }},
		{"extend", func(c string) error { return svc.ExtendPoll(bg, "Q", c, 1, 0) }},
		{"delete", func(c string) error { return svc.DeletePoll(bg, "Q", c) }},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			AssertKind(t, op.fn("mallory"), ledger.KindUnauthorized)
			AssertKind(t, op.fn(""), ledger.KindUnauthorized)
			if err := op.fn("alice"); err != nil {
				t.Errorf("Expected owner %s to succeed, got %v", op.name, err)
			}
		})
	}

	// Missing poll is NotFound for everyone
	for _, op := range []func() error{
		func() error { return svc.PausePoll(bg, "missing", "alice") },
		func() error { return svc.ResumePoll(bg, "missing", "alice") },
		func() error { return svc.ExtendPoll(bg, "missing", "alice", 1, 0) },
		func() error { return svc.DeletePoll(bg, "missing", "alice") },
	} {
		AssertKind(t, op(), ledger.KindNotFound)
	}
}

func testCandidateBounds(t *testing.T, svc ledger.Service) {
	in := NewPoll("Q", "A", "B", "C", "D")
	if _, err := svc.CreatePoll(bg, in, "alice", T0); err != nil {
		t.Fatal(err)
	}
	now := T0.Add(time.Minute)

	AssertKind(t, svc.Vote(bg, "Q", -1, "x", now), ledger.KindInvalidCandidate)
	AssertKind(t, svc.Vote(bg, "Q", 4, "x", now), ledger.KindInvalidCandidate)

	// The rejected caller may still vote
	for idx, caller := range []string{"x", "y", "z", "w"} {
		mustVote(t, svc, "Q", idx, caller, now)
	}
	assertCounts(t, mustGet(t, svc, "Q"), 1, 1, 1, 1)

	AssertKind(t, svc.Vote(bg, "missing", 0, "x", now), ledger.KindNotFound)
}

func testEndToEnd(t *testing.T, svc ledger.Service) {
	in := ledger.NewPoll{
		Prompt:       "Best color?",
		Description:  "",
		Category:     "general",
		Candidates:   Candidates("Red", "Blue"),
		DurationDays: 1,
		Tags:         []string{},
	}
	p, err := svc.CreatePoll(bg, in, "creator", T0)
	if err != nil {
		t.Fatalf("createPoll failed: %v", err)
	}
	if want := T0.Add(86400e9); !p.ExpiresAt().Equal(want) {
		t.Fatalf("Expected expiresAt %v, got %v", want, p.ExpiresAt())
	}

	mustVote(t, svc, p.ID, 0, "A", T0.Add(10))
	assertCounts(t, mustGet(t, svc, p.ID), 1, 0)

	AssertKind(t, svc.Vote(bg, p.ID, 0, "A", T0.Add(20)), ledger.KindAlreadyVoted)
	AssertKind(t, svc.Vote(bg, p.ID, 1, "B", T0.Add(86400e9+1)), ledger.KindPollInactive)

	if idx, err := svc.UserVote(bg, p.ID, "A"); err != nil || idx != 0 {
		t.Errorf("Expected getUserVote(A) == 0, got %d, %v", idx, err)
	}
	if idx, err := svc.UserVote(bg, p.ID, "B"); err != nil || idx != ledger.NotVoted {
		t.Errorf("Expected getUserVote(B) == -1, got %d, %v", idx, err)
	}
	assertCounts(t, mustGet(t, svc, p.ID), 1, 0)
}

func testGetPollMissing(t *testing.T, svc ledger.Service) {
	p, err := svc.GetPoll(bg, "nope")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p != nil {
		t.Errorf("Expected nil poll, got %+v", p)
	}
	if voted, err := svc.HasUserVoted(bg, "nope", "bob"); err != nil || voted {
		t.Errorf("Expected false for missing poll, got %v, %v", voted, err)
	}
	if idx, err := svc.UserVote(bg, "nope", "bob"); err != nil || idx != ledger.NotVoted {
		t.Errorf("Expected NotVoted for missing poll, got %d, %v", idx, err)
	}
}

func testPauseResume(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Q", T0)
	now := T0.Add(time.Hour)

	if err := svc.PausePoll(bg, "Q", "alice"); err != nil {
		t.Fatal(err)
	}
	if !mustGet(t, svc, "Q").Paused {
		t.Error("Expected poll to be paused")
	}
	AssertKind(t, svc.Vote(bg, "Q", 0, "bob", now), ledger.KindPollInactive)
	// Paused beats an invalid index
	AssertKind(t, svc.Vote(bg, "Q", 9, "bob", now), ledger.KindPollInactive)

	// Pausing twice is fine
	if err := svc.PausePoll(bg, "Q", "alice"); err != nil {
		t.Errorf("Expected idempotent pause, got %v", err)
	}

	if err := svc.ResumePoll(bg, "Q", "alice"); err != nil {
		t.Fatal(err)
	}
	if mustGet(t, svc, "Q").Paused {
		t.Error("Expected poll to be resumed")
	}
	if err := svc.ResumePoll(bg, "Q", "alice"); err != nil {
		t.Errorf("Expected idempotent resume, got %v", err)
	}
	mustVote(t, svc, "Q", 0, "bob", now)

	// Resuming does not revive an expired poll
	p := mustGet(t, svc, "Q")
	if err := svc.PausePoll(bg, "Q", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ResumePoll(bg, "Q", "alice"); err != nil {
		t.Fatal(err)
	}
	AssertKind(t, svc.Vote(bg, "Q", 0, "carol", p.ExpiresAt()), ledger.KindPollInactive)
}

func testExtendPoll(t *testing.T, svc ledger.Service) {
	p := CreateTestPoll(t, svc, "alice", "Q", T0)
	expiry := p.ExpiresAt()

	AssertKind(t, svc.Vote(bg, "Q", 0, "bob", expiry), ledger.KindPollInactive)

	// An expired poll can be extended back open
	if err := svc.ExtendPoll(bg, "Q", "alice", 0, 2); err != nil {
		t.Fatal(err)
	}
	p = mustGet(t, svc, "Q")
	if p.Duration != 26*time.Hour {
		t.Errorf("Expected duration 26h, got %v", p.Duration)
	}
	if !p.ExpiresAt().Equal(expiry.Add(2 * time.Hour)) {
		t.Errorf("Expected expiry moved by 2h, got %v", p.ExpiresAt())
	}
	mustVote(t, svc, "Q", 0, "bob", expiry.Add(time.Hour))

	// Extension hours are not capped
	if err := svc.ExtendPoll(bg, "Q", "alice", 1, 30); err != nil {
		t.Errorf("Expected 1d30h extension to succeed, got %v", err)
	}
	if d := mustGet(t, svc, "Q").Duration; d != 26*time.Hour+54*time.Hour {
		t.Errorf("Expected duration 80h, got %v", d)
	}

	for _, tc := range []struct{ days, hours int }{{0, 0}, {-1, 0}, {0, -1}, {1 << 40, 0}} {
		AssertKind(t, svc.ExtendPoll(bg, "Q", "alice", tc.days, tc.hours), ledger.KindInvalidDuration)
	}
	// Authorization is checked before the duration
	AssertKind(t, svc.ExtendPoll(bg, "Q", "bob", 0, 0), ledger.KindUnauthorized)

	if d := mustGet(t, svc, "Q").Duration; d != 80*time.Hour {
		t.Errorf("Rejected extensions changed duration to %v", d)
	}
	assertCounts(t, mustGet(t, svc, "Q"), 1, 0)
}

func testDeleteAndRecreate(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Q", T0)
	CreateTestPoll(t, svc, "alice", "Other", T0)
	mustVote(t, svc, "Q", 1, "bob", T0.Add(time.Second))
	mustVote(t, svc, "Other", 0, "bob", T0.Add(2*time.Second))

	if err := svc.DeletePoll(bg, "Q", "alice"); err != nil {
		t.Fatal(err)
	}

	if p, err := svc.GetPoll(bg, "Q"); err != nil || p != nil {
		t.Errorf("Expected deleted poll to be gone, got %v, %v", p, err)
	}
	AssertKind(t, svc.Vote(bg, "Q", 0, "carol", T0.Add(time.Minute)), ledger.KindNotFound)
	AssertKind(t, svc.DeletePoll(bg, "Q", "alice"), ledger.KindNotFound)
	AssertKind(t, svc.PausePoll(bg, "Q", "alice"), ledger.KindNotFound)

	if voted, err := svc.HasUserVoted(bg, "Q", "bob"); err != nil || voted {
		t.Errorf("Expected no visible vote on deleted poll, got %v, %v", voted, err)
	}
	history, err := svc.UserVoteHistory(bg, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].PollID != "Other" {
		t.Errorf("Expected only the live poll in history, got %+v", history)
	}

	for name, list := range map[string]func() ([]ledger.Poll, error){
		"all":      func() ([]ledger.Poll, error) { return svc.AllPolls(bg) },
		"user":     func() ([]ledger.Poll, error) { return svc.UserPolls(bg, "alice") },
		"category": func() ([]ledger.Poll, error) { return svc.PollsByCategory(bg, "general") },
	} {
		polls, err := list()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(polls) != 1 || polls[0].ID != "Other" {
			t.Errorf("%s: expected only 'Other', got %d polls", name, len(polls))
		}
	}

	// The prompt is free again and the new poll starts clean
	p, err := svc.CreatePoll(bg, NewPoll("Q", "Yes", "No"), "carol", T0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Expected prompt to be reusable after delete, got %v", err)
	}
	assertCounts(t, p, 0, 0)
	if idx, _ := svc.UserVote(bg, "Q", "bob"); idx != ledger.NotVoted {
		t.Errorf("Old vote leaked into recreated poll: %d", idx)
	}
	mustVote(t, svc, "Q", 0, "bob", T0.Add(2*time.Hour))
	assertCounts(t, mustGet(t, svc, "Q"), 1, 0)

	history, err = svc.UserVoteHistory(bg, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[1].PollID != "Q" || history[1].CandidateIndex != 0 {
		t.Errorf("Expected history [Other, Q:0], got %+v", history)
	}

	// Only the new owner controls it
	AssertKind(t, svc.DeletePoll(bg, "Q", "alice"), ledger.KindUnauthorized)
}

func testListQueries(t *testing.T, svc ledger.Service) {
	create := func(prompt, caller, category string, at time.Time) {
		in := NewPoll(prompt, "A", "B")
		in.Category = category
		if _, err := svc.CreatePoll(bg, in, caller, at); err != nil {
			t.Fatalf("createPoll(%q) failed: %v", prompt, err)
		}
	}
	create("a", "alice", "Sports", T0)
	create("c", "bob", "sports", T0.Add(time.Minute))
	create("b", "alice", "Music", T0.Add(time.Minute))
	create("d", "carol", "", T0.Add(2*time.Minute))

	all, err := svc.AllPolls(bg)
	if err != nil {
		t.Fatal(err)
	}
	// Newest first, equal times by id
	assertIDs(t, all, "d", "b", "c", "a")

	mine, err := svc.UserPolls(bg, "alice")
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, mine, "b", "a")

	none, err := svc.UserPolls(bg, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no polls for unknown user, got %d", len(none))
	}

	for _, q := range []string{"sports", "SPORTS", "Sports"} {
		polls, err := svc.PollsByCategory(bg, q)
		if err != nil {
			t.Fatal(err)
		}
		assertIDs(t, polls, "c", "a")
	}

	uncategorized, err := svc.PollsByCategory(bg, "")
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, uncategorized, "d")
}

func testVoteHistory(t *testing.T, svc ledger.Service) {
	for _, prompt := range []string{"first", "second", "third"} {
		CreateTestPoll(t, svc, "alice", prompt, T0)
	}

	mustVote(t, svc, "third", 1, "bob", T0.Add(1*time.Second))
	mustVote(t, svc, "first", 0, "bob", T0.Add(2*time.Second))
	mustVote(t, svc, "second", 1, "carol", T0.Add(3*time.Second))

	history, err := svc.UserVoteHistory(bg, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %+v", history)
	}
	if history[0].PollID != "third" || history[0].CandidateIndex != 1 {
		t.Errorf("Unexpected first record: %+v", history[0])
	}
	if history[1].PollID != "first" || history[1].CandidateIndex != 0 {
		t.Errorf("Unexpected second record: %+v", history[1])
	}
	if !history[0].CastAt.Equal(T0.Add(time.Second)) {
		t.Errorf("Expected cast_at %v, got %v", T0.Add(time.Second), history[0].CastAt)
	}

	empty, err := svc.UserVoteHistory(bg, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty history, got %+v", empty)
	}
}

func testCopyIsolation(t *testing.T, svc ledger.Service) {
	in := NewPoll("Q", "Red", "Blue")
	in.Tags = []string{"x"}
	created, err := svc.CreatePoll(bg, in, "alice", T0)
	if err != nil {
		t.Fatal(err)
	}
	in.Candidates[0].Name = "changed input"
	in.Tags[0] = "changed input"
	created.VoteCounts[0] = 42
	created.Candidates[1].Name = "changed output"

	p := mustGet(t, svc, "Q")
	p.VoteCounts[1] = 7
	p.Tags[0] = "changed output"

	all, err := svc.AllPolls(bg)
	if err != nil {
		t.Fatal(err)
	}
	all[0].Candidates[0].Name = "changed list"

	p = mustGet(t, svc, "Q")
	assertCounts(t, p, 0, 0)
	if p.Candidates[0].Name != "Red" || p.Candidates[1].Name != "Blue" {
		t.Errorf("Stored candidates were modified: %+v", p.Candidates)
	}
	if p.Tags[0] != "x" {
		t.Errorf("Stored tags were modified: %v", p.Tags)
	}
}

func testConcurrentVotes(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Q", T0)
	now := T0.Add(time.Minute)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Vote(bg, "Q", i%2, "racer", now)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ledger.ErrAlreadyVoted):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("Expected exactly 1 successful vote, got %d", successes)
	}

	callers := []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9"}
	for i, caller := range callers {
		wg.Add(1)
		go func(i int, caller string) {
			defer wg.Done()
			errs[i] = svc.Vote(bg, "Q", 0, caller, now)
		}(i, caller)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Errorf("Unexpected error for distinct caller: %v", err)
		}
	}

	p := mustGet(t, svc, "Q")
	if p.TotalVotes() != n+1 {
		t.Errorf("Expected %d total votes, got %d (%v)", n+1, p.TotalVotes(), p.VoteCounts)
	}
}

// testManyDistinctVoters races first votes from many callers on one poll.
// None of them may be turned away.
func testManyDistinctVoters(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Q", T0)
	now := T0.Add(time.Minute)

	const n = 100
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Vote(bg, "Q", i%2, fmt.Sprintf("voter-%d", i), now)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("voter-%d: unexpected error: %v", i, err)
		}
	}
	p := mustGet(t, svc, "Q")
	assertCounts(t, p, n/2, n/2)
}

// testPauseWhileVoting pauses a poll in the middle of a vote race. The pause
// must land, and every vote is either counted or refused as inactive.
func testPauseWhileVoting(t *testing.T, svc ledger.Service) {
	CreateTestPoll(t, svc, "alice", "Q", T0)
	now := T0.Add(time.Minute)

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	var pauseErr error
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Vote(bg, "Q", 0, fmt.Sprintf("voter-%d", i), now)
		}()
		if i == n/2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pauseErr = svc.PausePoll(bg, "Q", "alice")
			}()
		}
	}
	wg.Wait()

	if pauseErr != nil {
		t.Fatalf("Pause failed under load: %v", pauseErr)
	}
	var counted uint64
	for i, err := range errs {
		switch {
		case err == nil:
			counted++
		case errors.Is(err, ledger.ErrPollInactive):
		default:
			t.Errorf("voter-%d: unexpected error: %v", i, err)
		}
	}

	p := mustGet(t, svc, "Q")
	if !p.Paused {
		t.Error("Expected poll to be paused")
	}
	assertCounts(t, p, counted, 0)
	if err := svc.Vote(bg, "Q", 0, "late", now); !errors.Is(err, ledger.ErrPollInactive) {
		t.Errorf("Expected PollInactive after pause, got %v", err)
	}
}
