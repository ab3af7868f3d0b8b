package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

// followFlood sends POST /api/users/follow/:id until the global limiter's
// budget is spent. The first call creates the request and the rest are
// idempotent repeats.
func followFlood(t *testing.T, ts *testServer, path, token string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Origin", testOrigin)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		status, body := ts.send(t, req)
		require.Contains(t, []int{http.StatusCreated, http.StatusOK}, status, string(body))
	}
}

func TestRateLimitedFollowKeepsCORSHeaders(t *testing.T) {
	ts := newTestServer(t, nil)
	_, tok := ts.user(t)
	target, _ := ts.user(t)
	path := fmt.Sprintf("/api/users/follow/%d", target.ID)

	followFlood(t, ts, path, tok)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"follow_request_received", "follow_request_sent"}, ts.sink.types(),
		"repeats past the first request emit nothing")
}

func TestFollowPreflightBypassesLimiter(t *testing.T) {
	ts := newTestServer(t, nil)
	_, tok := ts.user(t)
	target, _ := ts.user(t)
	path := fmt.Sprintf("/api/users/follow/%d", target.ID)

	followFlood(t, ts, path, tok)

	preflight := httptest.NewRequest(http.MethodOptions, path, nil)
	preflight.Header.Set("Origin", testOrigin)
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	resp, err := ts.app.Test(preflight, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
