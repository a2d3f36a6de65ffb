// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth is the caller identity provider.

# Caller Tokens

Callers authenticate with HS256 JWTs whose subject is the caller id:

	token, err := auth.IssueCallerToken("alice.near", secret, 24*time.Hour, time.Now())
	caller, err := auth.ParseCallerToken(token, secret, time.Now())

Tokens must carry an expiry. Tokens signed with any other algorithm,
expired, not yet valid, or without a subject fail with ErrInvalidToken.

The ledger never sees tokens: the HTTP layer resolves the caller id once per
request and passes it to every ledger operation.
*/
package auth
