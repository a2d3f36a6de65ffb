// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"time"

	"github.com/danielhkuo/poll-ledger/cliparse"
	"github.com/danielhkuo/poll-ledger/handlers"
	"github.com/danielhkuo/poll-ledger/ledger"
	"github.com/danielhkuo/poll-ledger/middleware"
)

func NewRouter(svc ledger.Service, cfg cliparse.Config) *http.ServeMux {
	return NewRouterWithClock(svc, cfg, time.Now)
}

// NewRouterWithClock is NewRouter with the time source used for expiry and
// timestamps replaced.
func NewRouterWithClock(svc ledger.Service, cfg cliparse.Config, clock handlers.Clock) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(svc, clock)
	votingHandler := handlers.NewVotingHandler(svc, clock)
	queryHandler := handlers.NewQueryHandler(svc, clock)
	rpcHandler := handlers.NewRPCHandler(svc, clock)

	// Reads accept an optional caller token, mutations require one
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.Authenticate(cfg.JWTSecret, h))
	}
	owned := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.Authenticate(cfg.JWTSecret, middleware.RequireCaller(h)))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll lifecycle
	mux.HandleFunc("POST /polls", owned(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls", public(pollHandler.ListPolls))
	mux.HandleFunc("GET /polls/{id}", public(pollHandler.GetPoll))
	mux.HandleFunc("DELETE /polls/{id}", owned(pollHandler.DeletePoll))
	mux.HandleFunc("POST /polls/{id}/pause", owned(pollHandler.PausePoll))
	mux.HandleFunc("POST /polls/{id}/resume", owned(pollHandler.ResumePoll))
	mux.HandleFunc("POST /polls/{id}/extend", owned(pollHandler.ExtendPoll))

	// Voting
	mux.HandleFunc("POST /polls/{id}/votes", owned(votingHandler.Vote))
	mux.HandleFunc("GET /polls/{id}/votes/{caller}", public(votingHandler.GetUserVote))
	mux.HandleFunc("GET /users/{caller}/votes", public(votingHandler.GetUserVoteHistory))

	// Listings
	mux.HandleFunc("GET /users/{caller}/polls", public(queryHandler.GetUserPolls))
	mux.HandleFunc("GET /categories/{category}/polls", public(queryHandler.GetPollsByCategory))
	mux.HandleFunc("GET /stats", public(queryHandler.GetStats))

	// Operation-named calls; the handler checks the caller for mutations
	mux.HandleFunc("POST /rpc", public(rpcHandler.Call))

	// Root endpoint, exact match only so unknown paths 404
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("poll-ledger API v1"))
	})

	return mux
}
