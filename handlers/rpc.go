// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/middleware"
	"github.com/danielhkuo/poll-ledger/models"
)

// RPCHandler exposes every ledger operation behind a single endpoint using
// the operation names and camelCase arguments of the ledger call boundary.
type RPCHandler struct {
	svc   ledger.Service
	clock Clock
}

func NewRPCHandler(svc ledger.Service, clock Clock) *RPCHandler {
	return &RPCHandler{svc: svc, clock: clock}
}

// Call handles POST /rpc
func (h *RPCHandler) Call(w http.ResponseWriter, r *http.Request) {
	var req models.RPCRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	call, err := ledger.DecodeRequest(req.Method, req.Args)
	if errors.Is(err, ledger.ErrUnknownMethod) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "unknown method "+req.Method)
		return
	}
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	caller, ok := middleware.CallerFrom(r.Context())
	if call.Method().Mutates() && !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Caller token required for "+req.Method)
		return
	}
	if create, isCreate := call.(ledger.CreatePollRequest); isCreate && strings.TrimSpace(create.Prompt) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "prompt is required")
		return
	}

	resp, err := ledger.Execute(r.Context(), h.svc, ledger.Env{Caller: caller, Now: h.clock.now()}, call)
	if err != nil {
		middleware.LedgerError(w, r, err)
		return
	}

	if call.Method().Mutates() {
		slog.Info("ledger call", "method", req.Method, "caller", caller)
	}

	middleware.JSONResponse(w, http.StatusOK, models.RPCResponse{
		Method: req.Method,
		Result: resp,
	})
}
