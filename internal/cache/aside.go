package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orbit/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix = "user:%d"

	// ReportedPostIDsKey prefixes the cached list of reported post IDs. The
	// list lives at "<prefix>:<generation>".
	ReportedPostIDsKey = "feed:reported_post_ids"

	// ReportedVersionKey holds the current reported-posts generation.
	ReportedVersionKey = "feed:reported_ver"
)

const (
	UserTTL     = 5 * time.Minute
	ReportedTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// Aside reads key into dest. On a miss it calls fetch, which must populate
// dest, and stores the result for ttl. Redis failures fall through to fetch
// so the cache never turns a read into an error.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(raw, dest); jerr == nil {
			return nil
		}
		middleware.Logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := fetch(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate drops key from the cache.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// ReportedKey returns the key of the current reported-posts generation.
// Callers must resolve the key before reading the database, so a list
// loaded before a report lands under an older generation. ok is false when
// there is no cache or Redis cannot name the generation; callers then read
// the database directly.
func ReportedKey(ctx context.Context) (key string, ok bool) {
	if client == nil {
		return "", false
	}
	ver, err := client.Get(ctx, ReportedVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "reported generation read failed", slog.String("error", err.Error()))
		return "", false
	}
	return fmt.Sprintf("%s:%d", ReportedPostIDsKey, ver), true
}

// InvalidateReported starts a new reported-posts generation. Lists cached
// under older generations are never read again and expire on their TTL.
func InvalidateReported(ctx context.Context) error {
	if client == nil {
		return nil
	}
	if err := client.Incr(ctx, ReportedVersionKey).Err(); err != nil {
		middleware.Logger.ErrorContext(ctx, "reported generation bump failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
