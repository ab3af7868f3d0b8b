package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"orbit/internal/models"
	"orbit/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	post := &models.Post{UserID: 1, Title: "Test Post", Categories: models.StringList{"Food"}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListVisible_Exclusions(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.AccountKindUser)
	hiddenAuthor := testutil.CreateUser(t, db, models.AccountKindUser)

	visible := testutil.CreatePost(t, db, author.ID, nil)
	reported := testutil.CreatePost(t, db, author.ID, nil)
	testutil.CreatePost(t, db, author.ID, func(p *models.Post) { p.IsArchived = true })
	testutil.CreatePost(t, db, author.ID, func(p *models.Post) { p.IsBlocked = true })
	testutil.CreatePost(t, db, hiddenAuthor.ID, nil)

	posts, err := repo.ListVisible(ctx, FeedFilter{
		ExcludePostIDs:   []uint{reported.ID},
		ExcludeAuthorIDs: []uint{hiddenAuthor.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{visible.ID}, postIDs(posts))
	assert.Equal(t, author.Username, posts[0].Author.Username)
}

func TestPostRepository_ListVisible_Ordering(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, models.AccountKindUser)

	base := time.Now().Add(-time.Hour)
	older := testutil.CreatePost(t, db, author.ID, func(p *models.Post) {
		p.CreatedAt = base
		p.Categories = models.StringList{"Food", "Travel"}
	})
	newer := testutil.CreatePost(t, db, author.ID, func(p *models.Post) {
		p.CreatedAt = base.Add(time.Minute)
		p.Categories = models.StringList{"food"}
	})
	pinnedAt := base.Add(2 * time.Minute)
	pinned := testutil.CreatePost(t, db, author.ID, func(p *models.Post) {
		p.CreatedAt = base.Add(-time.Minute)
		p.IsPinned = true
		p.PinnedAt = &pinnedAt
		p.Categories = models.StringList{"Food"}
	})
	testutil.CreatePost(t, db, author.ID, func(p *models.Post) {
		p.CreatedAt = base.Add(3 * time.Minute)
		p.Categories = models.StringList{"Seafood"}
	})

	t.Run("pinned first without category", func(t *testing.T) {
		posts, err := repo.ListVisible(ctx, FeedFilter{AuthorID: author.ID})
		require.NoError(t, err)
		require.Len(t, posts, 4)
		assert.Equal(t, pinned.ID, posts[0].ID)
	})

	t.Run("category is case-insensitive and newest first", func(t *testing.T) {
		posts, err := repo.ListVisible(ctx, FeedFilter{Category: "FOOD"})
		require.NoError(t, err)
		assert.Equal(t, []uint{newer.ID, older.ID, pinned.ID}, postIDs(posts))
	})

	t.Run("pagination", func(t *testing.T) {
		posts, err := repo.ListVisible(ctx, FeedFilter{Category: "food", Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []uint{older.ID}, postIDs(posts))
	})
}

func TestPostRepository_ListVisible_CategoryWithAmpersand(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, models.AccountKindUser)

	drinks := testutil.CreatePost(t, db, author.ID, func(p *models.Post) {
		p.Categories = models.StringList{"Travel", "Food & Drink"}
	})
	testutil.CreatePost(t, db, author.ID, func(p *models.Post) {
		p.Categories = models.StringList{"Food"}
	})

	posts, err := repo.ListVisible(context.Background(), FeedFilter{Category: "food & drink"})
	require.NoError(t, err)
	assert.Equal(t, []uint{drinks.ID}, postIDs(posts))
}

func TestPostRepository_PinLocksOwnerRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE "users"."id" = \$1 .*FOR UPDATE`).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_pinned"}).AddRow(3, 7, false))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts" WHERE \(?user_id = \$1 AND is_pinned = \$2`).
		WithArgs(7, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	_, err := repo.Pin(context.Background(), 7, 3, 5)
	assert.True(t, models.HasCode(err, models.CodePinLimitExceeded), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_PinLimit(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, models.AccountKindUser)
	other := testutil.CreateUser(t, db, models.AccountKindUser)

	var posts []*models.Post
	for i := 0; i < 3; i++ {
		posts = append(posts, testutil.CreatePost(t, db, owner.ID, nil))
	}

	for _, p := range posts[:2] {
		changed, err := repo.Pin(ctx, owner.ID, p.ID, 2)
		require.NoError(t, err)
		assert.True(t, changed)
	}

	changed, err := repo.Pin(ctx, owner.ID, posts[0].ID, 2)
	require.NoError(t, err)
	assert.False(t, changed, "re-pinning is a no-op")

	_, err = repo.Pin(ctx, owner.ID, posts[2].ID, 2)
	assert.True(t, models.HasCode(err, models.CodePinLimitExceeded), "got %v", err)

	_, err = repo.Pin(ctx, other.ID, posts[2].ID, 2)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized), "someone else's post: %v", err)
	assert.True(t, models.HasCode(repo.Unpin(ctx, other.ID, posts[0].ID), models.CodeUnauthorized))
	_, err = repo.Pin(ctx, owner.ID, 9999, 2)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, repo.Unpin(ctx, owner.ID, posts[0].ID))
	stored, err := repo.GetByID(ctx, posts[0].ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPinned)
	assert.Nil(t, stored.PinnedAt)

	changed, err = repo.Pin(ctx, owner.ID, posts[2].ID, 2)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestPostRepository_LikeUnlike(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, models.AccountKindUser)
	p := testutil.CreatePost(t, db, u.ID, nil)

	require.NoError(t, repo.Like(ctx, u.ID, p.ID))
	err := repo.Like(ctx, u.ID, p.ID)
	assert.True(t, models.HasCode(err, models.CodeAlreadyLiked))

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LikesCount)

	liked, err := repo.IsLiked(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	require.NoError(t, repo.Unlike(ctx, u.ID, p.ID))
	err = repo.Unlike(ctx, u.ID, p.ID)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	stored, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LikesCount)
}

func TestPostRepository_SavedPosts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, models.AccountKindUser)
	p := testutil.CreatePost(t, db, u.ID, nil)

	require.NoError(t, repo.Save(ctx, u.ID, p.ID))
	assert.True(t, models.HasCode(repo.Save(ctx, u.ID, p.ID), models.CodeAlreadySaved))

	saved, err := repo.ListSaved(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, postIDs(saved))

	require.NoError(t, repo.Unsave(ctx, u.ID, p.ID))
	assert.True(t, models.HasCode(repo.Unsave(ctx, u.ID, p.ID), models.CodeNotFound))
}

func TestPostRepository_ArchiveAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, models.AccountKindUser)
	p := testutil.CreatePost(t, db, u.ID, nil)

	require.NoError(t, repo.SetArchived(ctx, p.ID, true))
	archived, err := repo.ListArchived(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, postIDs(archived))

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Delete(ctx, p.ID), models.CodeNotFound))
}
