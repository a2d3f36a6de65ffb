// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/middleware"
	"github.com/danielhkuo/poll-ledger/models"
)

type VotingHandler struct {
	svc   ledger.Service
	clock Clock
}

func NewVotingHandler(svc ledger.Service, clock Clock) *VotingHandler {
	return &VotingHandler{svc: svc, clock: clock}
}

// Vote handles POST /polls/{id}/votes
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	caller, _ := middleware.CallerFrom(r.Context())

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateIndex == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_index is required")
		return
	}

	idx := *req.CandidateIndex
	if err := h.svc.Vote(r.Context(), pollID, idx, caller, h.clock.now()); err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	slog.Info("vote cast", "poll_id", pollID)

	middleware.JSONResponse(w, http.StatusCreated, models.UserVoteResponse{
		PollID:         pollID,
		Caller:         caller,
		Voted:          true,
		CandidateIndex: idx,
	})
}

// GetUserVote handles GET /polls/{id}/votes/{caller}
func (h *VotingHandler) GetUserVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	caller := r.PathValue("caller")

	voted, err := h.svc.HasUserVoted(r.Context(), pollID, caller)
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	idx := ledger.NotVoted
	if voted {
		if idx, err = h.svc.UserVote(r.Context(), pollID, caller); err != nil {
			middleware.LedgerError(w, r, err)
			return
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.UserVoteResponse{
		PollID:         pollID,
		Caller:         caller,
		Voted:          idx != ledger.NotVoted,
		CandidateIndex: idx,
	})
}

// GetUserVoteHistory handles GET /users/{caller}/votes
func (h *VotingHandler) GetUserVoteHistory(w http.ResponseWriter, r *http.Request) {
	caller := r.PathValue("caller")

	records, err := h.svc.UserVoteHistory(r.Context(), caller)
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}
	if records == nil {
		records = []ledger.VoteRecord{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteHistoryResponse{
		Caller: caller,
		Votes:  records,
		Count:  len(records),
	})
}
