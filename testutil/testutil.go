// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/poll-ledger/auth"
	"github.com/danielhkuo/poll-ledger/cliparse"
	"github.com/danielhkuo/poll-ledger/ledger"
)

// TestSecret signs caller tokens in tests
const TestSecret = "test-jwt-secret"

// T0 is the reference instant most tests start their clock at
var T0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:      3318,
		Backend:   cliparse.BackendMemory,
		JWTSecret: TestSecret,
		TokenTTL:  time.Hour,
	}
}

// Clock is a manually advanced clock safe for concurrent use
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// CallerToken issues a valid bearer token for caller
func CallerToken(t *testing.T, caller string) string {
	t.Helper()
	token, err := auth.IssueCallerToken(caller, TestSecret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue caller token: %v", err)
	}
	return token
}

// AuthHeader returns request headers authenticating as caller
func AuthHeader(t *testing.T, caller string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + CallerToken(t, caller)}
}

// Candidates builds a candidate list from names
func Candidates(names ...string) []ledger.Candidate {
	out := make([]ledger.Candidate, len(names))
	for i, n := range names {
		out[i] = ledger.Candidate{Name: n}
	}
	return out
}

// NewPoll returns a one-day poll in category "general" with the named candidates
func NewPoll(prompt string, names ...string) ledger.NewPoll {
	return ledger.NewPoll{
		Prompt:       prompt,
		Category:     "general",
		Candidates:   Candidates(names...),
		DurationDays: 1,
	}
}

// CreateTestPoll creates a two-candidate poll owned by caller
func CreateTestPoll(t *testing.T, svc ledger.Service, caller, prompt string, now time.Time) ledger.Poll {
	t.Helper()
	p, err := svc.CreatePoll(context.Background(), NewPoll(prompt, "Red", "Blue"), caller, now)
	if err != nil {
		t.Fatalf("Failed to create test poll %q: %v", prompt, err)
	}
	return p
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertKind fails unless err carries the expected ledger error kind
func AssertKind(t *testing.T, err error, want ledger.Kind) {
	t.Helper()
	if got := ledger.KindOf(err); got != want {
		t.Errorf("Expected %s error, got %s (%v)", want, got, err)
	}
}
