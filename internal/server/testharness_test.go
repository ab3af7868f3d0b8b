package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"orbit/internal/config"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingSink captures events delivered by the server's event bus.
type recordingSink struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, e notifications.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type testServer struct {
	*Server
	app   *fiber.App
	db    *gorm.DB
	sink  *recordingSink
	media *testutil.MediaStoreStub
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                   "0",
		Env:                    "test",
		JWTSecret:              "test-secret-key-12345678901234567890123456789012",
		JWTIssuer:              "orbit-api",
		JWTAudience:            "orbit-client",
		AllowedOrigins:         "http://localhost:5173",
		RelationshipMaxRetries: 5,
		PinLimit:               models.MaxPinnedPosts,
		FeedPageSize:           20,
		MediaMaxUploadMB:       5,
	}
}

func newTestServer(t *testing.T, rdb *redis.Client) *testServer {
	t.Helper()
	db := testutil.NewTestDB(t)
	sink := &recordingSink{}
	store := testutil.NewMediaStoreStub()

	srv, err := NewServerWithDeps(testConfig(), db, rdb, WithMediaStore(store), WithEventSinks(sink))
	require.NoError(t, err)
	return &testServer{Server: srv, app: srv.NewApp(), db: db, sink: sink, media: store}
}

func (ts *testServer) user(t *testing.T) (*models.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, ts.db, models.AccountKindUser)
	return u, ts.token(t, u.ID)
}

func (ts *testServer) creator(t *testing.T) (*models.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, ts.db, models.AccountKindCreator)
	return u, ts.token(t, u.ID)
}

func (ts *testServer) token(t *testing.T, userID uint) string {
	t.Helper()
	tok, _, err := ts.verifier.Issue(userID, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request and returns the status and raw body. body may be nil,
// a []byte, or a value to encode as JSON.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
		contentType = fiber.MIMEApplicationJSON
	}

	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return ts.send(t, req)
}

func (ts *testServer) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	return decode[models.ErrorResponse](t, raw).Code
}
