// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /polls", middleware.WithLogging(handler))

Logs request start (method, path, remote, request_id) and completion
(duration_ms). The request id is taken from X-Request-ID when present,
otherwise generated, and is echoed on the response.

# Caller Identity

Authenticate turns an "Authorization: Bearer <token>" header into the
caller id the ledger sees. RequireCaller guards routes that mutate:

	mux.HandleFunc("POST /polls",
		middleware.WithLogging(middleware.Authenticate(secret,
			middleware.RequireCaller(h.CreatePoll))))

	caller, ok := middleware.CallerFrom(r.Context())

A missing header leaves the request anonymous. A malformed, expired or
foreign token is always a 401.

# Errors

	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.LedgerError(w, r, err)

LedgerError maps ledger error kinds onto status codes (see StatusForKind)
and includes the kind name in the body. Any other error is logged and
reported as a 500 without details.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, DELETE, OPTIONS with headers Content-Type,
Authorization and X-Request-ID.

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Handles X-Forwarded-For and X-Real-IP; used for the remote field of
request logs.
*/
package middleware
