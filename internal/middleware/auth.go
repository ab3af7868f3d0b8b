// Package middleware provides logging, authentication, metrics, tracing and
// rate limiting for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"orbit/internal/config"
	"orbit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BlacklistKeyPrefix prefixes revoked token IDs in Redis.
const BlacklistKeyPrefix = "blacklist:"

var (
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenVerifier validates bearer tokens issued for this API. Tokens are HS256
// JWTs whose subject is the numeric user ID.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
	rdb      *redis.Client
}

// NewTokenVerifier builds a verifier from the JWT settings in cfg. rdb may be
// nil, in which case revocation is not checked.
func NewTokenVerifier(cfg *config.Config, rdb *redis.Client) *TokenVerifier {
	return &TokenVerifier{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		rdb:      rdb,
	}
}

// Issue signs a token for userID and returns it with its jti.
func (v *TokenVerifier) Issue(userID uint, ttl time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    v.issuer,
		Audience:  jwt.ClaimStrings{v.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return signed, jti, nil
}

// Verify parses the token and returns the authenticated user ID.
func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, ErrTokenInvalid
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrTokenInvalid
	}

	if claims.ID != "" && v.rdb != nil {
		n, err := v.rdb.Exists(ctx, BlacklistKeyPrefix+claims.ID).Result()
		if err == nil && n > 0 {
			return 0, ErrTokenRevoked
		}
	}

	return uint(userID), nil
}

// Revoke blacklists a token ID until ttl elapses.
func (v *TokenVerifier) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if v.rdb == nil {
		return errors.New("token revocation requires redis")
	}
	return v.rdb.Set(ctx, BlacklistKeyPrefix+jti, "1", ttl).Err()
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The token query parameter is accepted as a fallback so browser
// WebSocket clients can authenticate.
func BearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// AuthRequired rejects requests without a valid token and stores the caller's
// ID in c.Locals("userID") and the request context.
func AuthRequired(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := BearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, err := v.Verify(c.UserContext(), tokenString)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, ErrTokenRevoked) {
				msg = "Token has been revoked"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}

		c.Locals("userID", userID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
		return c.Next()
	}
}
