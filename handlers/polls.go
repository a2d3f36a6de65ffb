// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/middleware"
	"github.com/danielhkuo/poll-ledger/models"
)

// Clock supplies the current time to handlers. nil means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

type PollHandler struct {
	svc   ledger.Service
	clock Clock
}

func NewPollHandler(svc ledger.Service, clock Clock) *PollHandler {
	return &PollHandler{svc: svc, clock: clock}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFrom(r.Context())

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "prompt is required")
		return
	}

	now := h.clock.now()
	p, err := h.svc.CreatePoll(r.Context(), ledger.NewPoll{
		Prompt:        req.Prompt,
		Description:   req.Description,
		Category:      req.Category,
		Candidates:    req.Candidates,
		DurationDays:  req.DurationDays,
		DurationHours: req.DurationHours,
		Tags:          req.Tags,
	}, caller, now)
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	slog.Info("poll created", "poll_id", p.ID, "creator", caller, "candidates", len(p.Candidates))

	middleware.JSONResponse(w, http.StatusCreated, models.NewPollView(p, now))
}

// ListPolls handles GET /polls
// Optional query parameters: q, category, sort, active
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	order, err := ledger.ParseSortOrder(params.Get("sort"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var activeOnly bool
	if raw := params.Get("active"); raw != "" {
		if activeOnly, err = strconv.ParseBool(raw); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "active must be a boolean")
			return
		}
	}

	polls, err := h.svc.AllPolls(r.Context())
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	now := h.clock.now()
	polls = ledger.Search(polls, ledger.SearchQuery{
		Text:       params.Get("q"),
		Category:   params.Get("category"),
		ActiveOnly: activeOnly,
		Sort:       order,
	}, now)

	middleware.JSONResponse(w, http.StatusOK, models.NewPollsResponse(polls, now))
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	p, err := h.svc.GetPoll(r.Context(), pollID)
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}
	if p == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.NewPollView(*p, h.clock.now()))
}

// DeletePoll handles DELETE /polls/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	caller, _ := middleware.CallerFrom(r.Context())

	if err := h.svc.DeletePoll(r.Context(), pollID, caller); err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	slog.Info("poll deleted", "poll_id", pollID, "caller", caller)

	middleware.JSONResponse(w, http.StatusOK, models.DeletePollResponse{
		PollID:  pollID,
		Deleted: true,
	})
}

// PausePoll handles POST /polls/{id}/pause
func (h *PollHandler) PausePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	caller, _ := middleware.CallerFrom(r.Context())

	if err := h.svc.PausePoll(r.Context(), pollID, caller); err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	slog.Info("poll paused", "poll_id", pollID)
	h.respondWithPoll(w, r, pollID)
}

// ResumePoll handles POST /polls/{id}/resume
func (h *PollHandler) ResumePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	caller, _ := middleware.CallerFrom(r.Context())

	if err := h.svc.ResumePoll(r.Context(), pollID, caller); err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	slog.Info("poll resumed", "poll_id", pollID)
	h.respondWithPoll(w, r, pollID)
}

// ExtendPoll handles POST /polls/{id}/extend
func (h *PollHandler) ExtendPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	caller, _ := middleware.CallerFrom(r.Context())

	var req models.ExtendPollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	err := h.svc.ExtendPoll(r.Context(), pollID, caller, req.AdditionalDays, req.AdditionalHours)
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	slog.Info("poll extended", "poll_id", pollID,
		"additional_days", req.AdditionalDays, "additional_hours", req.AdditionalHours)
	h.respondWithPoll(w, r, pollID)
}

// respondWithPoll writes the current state of a poll after an owner action
func (h *PollHandler) respondWithPoll(w http.ResponseWriter, r *http.Request, pollID string) {
	p, err := h.svc.GetPoll(r.Context(), pollID)
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}
	if p == nil {
		// Deleted between the action and the read
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.NewPollView(*p, h.clock.now()))
}
