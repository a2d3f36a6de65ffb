// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/middleware"
	"github.com/danielhkuo/poll-ledger/models"
	"github.com/danielhkuo/poll-ledger/testutil"
)

// testEnv wires every handler to one in-memory ledger and a manual clock
type testEnv struct {
	svc     ledger.Service
	clock   *testutil.Clock
	polls   *PollHandler
	voting  *VotingHandler
	queries *QueryHandler
	rpc     *RPCHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := ledger.NewMemory()
	clock := testutil.NewClock(testutil.T0)
	return &testEnv{
		svc:     svc,
		clock:   clock,
		polls:   NewPollHandler(svc, clock.Now),
		voting:  NewVotingHandler(svc, clock.Now),
		queries: NewQueryHandler(svc, clock.Now),
		rpc:     NewRPCHandler(svc, clock.Now),
	}
}

// asCaller attaches an authenticated caller the way middleware.Authenticate does
func asCaller(req *http.Request, caller string) *http.Request {
	return req.WithContext(middleware.WithCaller(req.Context(), caller))
}

// createPoll creates a one-day Red/Blue poll through the handler
func (e *testEnv) createPoll(t *testing.T, caller, prompt string) models.PollView {
	t.Helper()
	req := testutil.MakeRequest("POST", "/polls", models.CreatePollRequest{
		Prompt:       prompt,
		Category:     "general",
		Candidates:   testutil.Candidates("Red", "Blue"),
		DurationDays: 1,
	}, nil)
	w := httptest.NewRecorder()
	e.polls.CreatePoll(w, asCaller(req, caller))

	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create poll %q: %d - %s", prompt, w.Code, w.Body.String())
	}
	var view models.PollView
	testutil.AssertJSON(t, w, &view)
	return view
}

// vote casts a vote through the handler and returns the recorder
func (e *testEnv) vote(caller, pollID string, idx int) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/polls/"+url.PathEscape(pollID)+"/votes", models.VoteRequest{CandidateIndex: &idx}, nil)
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()
	e.voting.Vote(w, asCaller(req, caller))
	return w
}

// assertErrorKind checks status and the ledger kind in an error body
func assertErrorKind(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	testutil.AssertStatus(t, w, status)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Kind != kind {
		t.Errorf("Expected kind %q, got %q (%s)", kind, resp.Kind, resp.Message)
	}
}
