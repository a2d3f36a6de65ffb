// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the poll ledger API.

# Route Registration

NewRouter creates a configured http.ServeMux over any ledger backend:

	mux := router.NewRouter(svc, cfg)

NewRouterWithClock does the same with a substitute time source, which the
tests use to move polls past expiry.

# Endpoints

Health:

	GET /health

Poll lifecycle (mutations require a caller token):

	POST   /polls              - Create poll (prompt is the id)
	GET    /polls              - List polls (q, category, sort, active)
	GET    /polls/{id}         - Poll with tally
	DELETE /polls/{id}         - Delete poll (creator only)
	POST   /polls/{id}/pause   - Pause voting (creator only)
	POST   /polls/{id}/resume  - Resume voting (creator only)
	POST   /polls/{id}/extend  - Extend duration (creator only)

Voting:

	POST /polls/{id}/votes          - Cast a vote
	GET  /polls/{id}/votes/{caller} - A caller's vote on a poll
	GET  /users/{caller}/votes      - A caller's vote history

Listings:

	GET /users/{caller}/polls          - Polls created by caller
	GET /categories/{category}/polls   - Polls in a category
	GET /stats                         - Totals

Operation calls:

	POST /rpc - {"method": "vote", "args": {"pollId": "...", "candidateIndex": 0}}

# Authentication

Every route except /health and / passes through middleware.Authenticate.
A request with "Authorization: Bearer <token>" acts as the caller named in
the token; without the header it is anonymous. Routes that change state
wrap their handler in middleware.RequireCaller.
*/
package router
