package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orbit/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testAuthConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, JWTIssuer: "orbit-api", JWTAudience: "orbit-client"}
}

func TestTokenVerifier_IssueAndVerify(t *testing.T) {
	v := NewTokenVerifier(testAuthConfig(), nil)

	token, jti, err := v.Issue(42, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	userID, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestTokenVerifier_RejectsForeignClaims(t *testing.T) {
	v := NewTokenVerifier(testAuthConfig(), nil)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "7",
			"iss": "orbit-api",
			"aud": "orbit-client",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := base()
	wrongAudience["aud"] = "other-client"
	expired := base()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	badSubject := base()
	badSubject["sub"] = "not-a-number"

	tests := map[string]string{
		"wrong issuer":   sign(wrongIssuer, testSecret),
		"wrong audience": sign(wrongAudience, testSecret),
		"expired":        sign(expired, testSecret),
		"bad subject":    sign(badSubject, testSecret),
		"wrong secret":   sign(base(), "another-secret-another-secret-1234"),
		"garbage":        "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenVerifier_Revoke(t *testing.T) {
	_, rdb := newTestRedis(t)
	v := NewTokenVerifier(testAuthConfig(), rdb)
	ctx := context.Background()

	token, jti, err := v.Issue(9, time.Hour)
	require.NoError(t, err)
	require.NoError(t, v.Revoke(ctx, jti, time.Hour))

	_, err = v.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthRequired(t *testing.T) {
	v := NewTokenVerifier(testAuthConfig(), nil)
	app := fiber.New()
	app.Get("/test", AuthRequired(v), func(c *fiber.Ctx) error {
		uid := c.Locals("userID").(uint)
		ctxUID, _ := c.UserContext().Value(UserIDKey).(uint)
		return c.JSON(fiber.Map{"userID": uid, "ctxUserID": ctxUID})
	})

	valid, _, err := v.Issue(123, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"Happy Path", "Bearer " + valid, "", http.StatusOK},
		{"Query token", "", valid, http.StatusOK},
		{"Missing header", "", "", http.StatusUnauthorized},
		{"Wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"Invalid token", "Bearer nope", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/test"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(123), body["userID"])
				assert.Equal(t, float64(123), body["ctxUserID"])
			}
		})
	}
}
