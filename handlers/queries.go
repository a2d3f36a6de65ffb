// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/middleware"
	"github.com/danielhkuo/poll-ledger/models"
)

// QueryHandler serves the read-only listings
type QueryHandler struct {
	svc   ledger.Service
	clock Clock
}

func NewQueryHandler(svc ledger.Service, clock Clock) *QueryHandler {
	return &QueryHandler{svc: svc, clock: clock}
}

// GetUserPolls handles GET /users/{caller}/polls
func (h *QueryHandler) GetUserPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.svc.UserPolls(r.Context(), r.PathValue("caller"))
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.NewPollsResponse(polls, h.clock.now()))
}

// GetPollsByCategory handles GET /categories/{category}/polls
// Category matching ignores case.
func (h *QueryHandler) GetPollsByCategory(w http.ResponseWriter, r *http.Request) {
	polls, err := h.svc.PollsByCategory(r.Context(), r.PathValue("category"))
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.NewPollsResponse(polls, h.clock.now()))
}

// GetStats handles GET /stats
func (h *QueryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	polls, err := h.svc.AllPolls(r.Context())
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}
	stats := ledger.Summarize(polls, h.clock.now())
	middleware.JSONResponse(w, http.StatusOK, models.NewStatsResponse(stats))
}
