package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_LoadsOnceThenServesCache(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	calls := 0
	load := func(dest *[]uint) func() error {
		return func() error {
			calls++
			*dest = []uint{3, 1, 2}
			return nil
		}
	}

	var first []uint
	require.NoError(t, Aside(ctx, ReportedPostIDsKey, &first, ReportedTTL, load(&first)))
	var second []uint
	require.NoError(t, Aside(ctx, ReportedPostIDsKey, &second, ReportedTTL, load(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []uint{3, 1, 2}, second)
	assert.True(t, mr.Exists(ReportedPostIDsKey))

	mr.FastForward(ReportedTTL + time.Second)
	var third []uint
	require.NoError(t, Aside(ctx, ReportedPostIDsKey, &third, ReportedTTL, load(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("db down")

	var ids []uint
	err := Aside(context.Background(), UserKey(1), &ids, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(UserKey(1)))
}

func TestAside_WithoutRedisCallsFetch(t *testing.T) {
	SetClient(nil)
	var v string
	require.NoError(t, Aside(context.Background(), UserKey(1), &v, UserTTL, func() error {
		v = "loaded"
		return nil
	}))
	assert.Equal(t, "loaded", v)
}

func TestInvalidate(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set(UserKey(4), "{}"))

	InvalidateUser(context.Background(), 4)
	assert.False(t, mr.Exists(UserKey(4)))
}

func TestReportedKey_FollowsGeneration(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	key, ok := ReportedKey(ctx)
	require.True(t, ok)
	assert.Equal(t, ReportedPostIDsKey+":0", key)

	require.NoError(t, InvalidateReported(ctx))
	require.NoError(t, InvalidateReported(ctx))
	key, ok = ReportedKey(ctx)
	require.True(t, ok)
	assert.Equal(t, ReportedPostIDsKey+":2", key)

	ver, err := mr.Get(ReportedVersionKey)
	require.NoError(t, err)
	assert.Equal(t, "2", ver)
}

func TestReportedKey_LateFillUnderOldGenerationIsNotServed(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	staleKey, ok := ReportedKey(ctx)
	require.True(t, ok)
	require.NoError(t, InvalidateReported(ctx))

	// A reader that resolved its key before the bump stores its list afterwards.
	var stale []uint
	require.NoError(t, Aside(ctx, staleKey, &stale, ReportedTTL, func() error {
		stale = []uint{}
		return nil
	}))

	key, ok := ReportedKey(ctx)
	require.True(t, ok)
	calls := 0
	var fresh []uint
	require.NoError(t, Aside(ctx, key, &fresh, ReportedTTL, func() error {
		calls++
		fresh = []uint{9}
		return nil
	}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []uint{9}, fresh)
}

func TestReportedKey_UnavailableWithoutClient(t *testing.T) {
	SetClient(nil)
	_, ok := ReportedKey(context.Background())
	assert.False(t, ok)
	assert.NoError(t, InvalidateReported(context.Background()))
}

func TestReportedKey_UnavailableWhenRedisDown(t *testing.T) {
	mr := useMiniredis(t)
	mr.Close()
	_, ok := ReportedKey(context.Background())
	assert.False(t, ok)
	assert.Error(t, InvalidateReported(context.Background()))
}
