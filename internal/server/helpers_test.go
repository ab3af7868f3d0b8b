package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"orbit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"postId", "post ID"},
		{"commentId", "comment ID"},
		{"targetUserId", "target user ID"},
		{"category", "category"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func paginationApp(defaultLimit int) *fiber.App {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, defaultLimit)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})
	return app
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		limit  float64
		offset float64
	}{
		{"defaults", "", 25, 0},
		{"custom", "?limit=10&offset=30", 10, 30},
		{"non-positive limit", "?limit=0", 25, 0},
		{"clamped limit", "?limit=1000", maxPaginationLimit, 0},
		{"negative offset", "?offset=-5", 25, 0},
		{"garbage", "?limit=ten&offset=x", 25, 0},
	}
	app := paginationApp(25)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		param   string
		path    string
		status  int
		wantMsg string
	}{
		{"id", "/items/42", http.StatusOK, ""},
		{"id", "/items/abc", http.StatusBadRequest, "Invalid ID"},
		{"id", "/items/0", http.StatusBadRequest, "Invalid ID"},
		{"id", "/items/-3", http.StatusBadRequest, "Invalid ID"},
		{"userId", "/items/abc", http.StatusBadRequest, "Invalid user ID"},
		{"commentId", "/items/abc", http.StatusBadRequest, "Invalid comment ID"},
	}
	for _, tt := range tests {
		t.Run(tt.param+tt.path, func(t *testing.T) {
			app := fiber.New()
			s := &Server{}
			app.Get("/items/:"+tt.param, func(c *fiber.Ctx) error {
				id, err := s.parseID(c, tt.param)
				if err != nil {
					assert.True(t, errors.Is(err, errResponseWritten))
					return nil
				}
				return c.JSON(fiber.Map{"id": id})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.wantMsg == "" {
				return
			}
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.Equal(t, models.CodeValidation, body.Code)
		})
	}
}

func TestFeedPageSize(t *testing.T) {
	assert.Equal(t, 20, (&Server{}).feedPageSize())
	s := &Server{config: testConfig()}
	s.config.FeedPageSize = 7
	assert.Equal(t, 7, s.feedPageSize())
}
