package seed

import (
	"context"
	"testing"

	"orbit/internal/models"
	"orbit/internal/repository"
	"orbit/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_BuildUser(t *testing.T) {
	f := NewFactory(nil, 7, 30)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		u, err := f.BuildUser(models.AccountKindUser)
		require.NoError(t, err)
		assert.True(t, u.IsUser)
		assert.False(t, seen[u.Username], "usernames are unique")
		seen[u.Username] = true
	}

	creator, err := f.BuildUser(models.AccountKindCreator, func(p *models.UserParams) { p.Name = "Named" })
	require.NoError(t, err)
	assert.True(t, creator.IsCreator)
	assert.Equal(t, "Named", creator.Name)
	assert.NotEmpty(t, creator.Website)
}

func TestFactory_BuildPost(t *testing.T) {
	f := NewFactory(nil, 7, 30)
	author := &models.User{ID: 9}

	tests := []struct {
		kind PostKind
		want models.MediaType
	}{
		{PostKindImage, models.MediaImage},
		{PostKindVideo, models.MediaVideo},
		{PostKindBlog, models.MediaBlog},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p := f.BuildPost(author, tt.kind)
			assert.Equal(t, author.ID, p.UserID)
			assert.Equal(t, tt.want, models.ClassifyMedia(p))
			assert.NotEmpty(t, p.Categories)
			assert.LessOrEqual(t, len(p.Categories), 3)
			assert.False(t, p.CreatedAt.IsZero())
		})
	}
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, Options{Users: 12, Posts: 30, FollowDegree: 3, Seed: 1})

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, res.Users)
	assert.Equal(t, 3, res.Creators)
	assert.Equal(t, 30, res.Posts)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.EqualValues(t, 30, posts)

	// Every confirmed edge must be mirrored on the other side.
	var recs []*models.RelationshipRecord
	require.NoError(t, db.Find(&recs).Error)
	byID := map[uint]*models.RelationshipRecord{}
	for _, r := range recs {
		byID[r.UserID] = r
	}
	edges := 0
	for _, r := range recs {
		for _, id := range r.Following {
			require.Contains(t, byID, id)
			assert.True(t, byID[id].Followers.Has(r.UserID))
			edges++
		}
		for _, id := range r.FollowRequestsSent {
			assert.True(t, byID[id].FollowRequestsReceived.Has(r.UserID))
		}
	}
	assert.Equal(t, res.Follows, edges)

	var pinned int64
	require.NoError(t, db.Model(&models.Post{}).Where("is_pinned = ?", true).Count(&pinned).Error)
	assert.EqualValues(t, res.Pins, pinned)
}

func TestSeeder_ClearAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, Options{Users: 4, Posts: 5, Seed: 3})
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())

	for _, m := range []any{&models.User{}, &models.Post{}, &models.RelationshipRecord{}, &models.Comment{}} {
		var n int64
		require.NoError(t, db.Model(m).Unscoped().Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}

	rec, err := repository.NewRelationshipRepository(db).Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, rec.Following.Len())
}
