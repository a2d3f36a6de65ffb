// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/models"
	"github.com/danielhkuo/poll-ledger/testutil"
)

func TestVote(t *testing.T) {
	env := newTestEnv(t)
	env.createPoll(t, "alice", "Best color?")
	env.clock.Advance(10 * time.Second)

	w := env.vote("A", "Best color?", 0)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var resp models.UserVoteResponse
	testutil.AssertJSON(t, w, &resp)
	if !resp.Voted || resp.CandidateIndex != 0 || resp.Caller != "A" {
		t.Errorf("Unexpected vote response %+v", resp)
	}

	env.clock.Advance(10 * time.Second)
	assertErrorKind(t, env.vote("A", "Best color?", 1), http.StatusConflict, "AlreadyVoted")
	assertErrorKind(t, env.vote("B", "Best color?", 2), http.StatusBadRequest, "InvalidCandidate")
	assertErrorKind(t, env.vote("B", "Best color?", -1), http.StatusBadRequest, "InvalidCandidate")
	assertErrorKind(t, env.vote("B", "missing", 0), http.StatusNotFound, "NotFound")

	env.clock.Set(testutil.T0.Add(24*time.Hour + time.Nanosecond))
	assertErrorKind(t, env.vote("B", "Best color?", 1), http.StatusConflict, "PollInactive")

	p, err := env.svc.GetPoll(t.Context(), "Best color?")
	if err != nil || p == nil {
		t.Fatal(err)
	}
	if p.VoteCounts[0] != 1 || p.VoteCounts[1] != 0 {
		t.Errorf("Expected counts [1 0], got %v", p.VoteCounts)
	}
}

func TestVote_BadBody(t *testing.T) {
	env := newTestEnv(t)
	env.createPoll(t, "alice", "Q")

	for name, body := range map[string]string{
		"invalid JSON":  "{",
		"missing index": `{}`,
		"wrong type":    `{"candidate_index":"first"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/polls/Q/votes", strings.NewReader(body))
			req.SetPathValue("id", "Q")
			w := httptest.NewRecorder()
			env.voting.Vote(w, asCaller(req, "bob"))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestGetUserVote(t *testing.T) {
	env := newTestEnv(t)
	env.createPoll(t, "alice", "Q")
	testutil.AssertStatus(t, env.vote("A", "Q", 1), http.StatusCreated)

	testCases := []struct {
		caller    string
		pollID    string
		wantVoted bool
		wantIndex int
	}{
		{"A", "Q", true, 1},
		{"B", "Q", false, ledger.NotVoted},
		{"A", "missing", false, ledger.NotVoted},
	}

	for _, tc := range testCases {
		t.Run(tc.caller+"/"+tc.pollID, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/polls/"+tc.pollID+"/votes/"+tc.caller, nil, nil)
			req.SetPathValue("id", tc.pollID)
			req.SetPathValue("caller", tc.caller)
			w := httptest.NewRecorder()
			env.voting.GetUserVote(w, req)

			testutil.AssertStatus(t, w, http.StatusOK)
			var resp models.UserVoteResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Voted != tc.wantVoted || resp.CandidateIndex != tc.wantIndex {
				t.Errorf("Expected voted=%v index=%d, got %+v", tc.wantVoted, tc.wantIndex, resp)
			}
		})
	}
}

func TestGetUserVoteHistory(t *testing.T) {
	env := newTestEnv(t)
	env.createPoll(t, "alice", "First")
	env.createPoll(t, "alice", "Second")

	env.clock.Advance(time.Second)
	testutil.AssertStatus(t, env.vote("bob", "Second", 1), http.StatusCreated)
	env.clock.Advance(time.Second)
	testutil.AssertStatus(t, env.vote("bob", "First", 0), http.StatusCreated)

	get := func(caller string) models.VoteHistoryResponse {
		req := testutil.MakeRequest("GET", "/users/"+caller+"/votes", nil, nil)
		req.SetPathValue("caller", caller)
		w := httptest.NewRecorder()
		env.voting.GetUserVoteHistory(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.VoteHistoryResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}

	resp := get("bob")
	if resp.Count != 2 || resp.Votes[0].PollID != "Second" || resp.Votes[1].PollID != "First" {
		t.Errorf("Expected [Second, First], got %+v", resp.Votes)
	}
	if resp.Votes[0].CandidateIndex != 1 {
		t.Errorf("Expected first record to be index 1, got %d", resp.Votes[0].CandidateIndex)
	}

	// Deleted polls drop out of history
	if err := env.svc.DeletePoll(t.Context(), "Second", "alice"); err != nil {
		t.Fatal(err)
	}
	if resp := get("bob"); resp.Count != 1 || resp.Votes[0].PollID != "First" {
		t.Errorf("Expected only First after delete, got %+v", resp.Votes)
	}

	if resp := get("nobody"); resp.Count != 0 || resp.Votes == nil {
		t.Errorf("Expected empty non-nil history, got %+v", resp)
	}
}
