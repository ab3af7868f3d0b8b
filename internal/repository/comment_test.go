package repository

import (
	"context"
	"testing"

	"orbit/internal/models"
	"orbit/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Lifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, models.AccountKindUser)
	p := testutil.CreatePost(t, db, u.ID, nil)

	first := &models.Comment{PostID: p.ID, UserID: u.ID, Body: "first"}
	second := &models.Comment{PostID: p.ID, UserID: u.ID, Body: "second"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, u.Username, first.User.Username)

	list, err := repo.ListByPost(ctx, p.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Body)

	stored, err := posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CommentsCount)

	require.NoError(t, repo.Delete(ctx, first))
	assert.True(t, models.HasCode(repo.Delete(ctx, first), models.CodeNotFound))

	stored, err = posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CommentsCount)
}

func TestCommentRepository_CreateOnMissingPost(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)

	err := repo.Create(context.Background(), &models.Comment{PostID: 404, UserID: 1, Body: "hello"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
