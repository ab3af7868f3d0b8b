package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"orbit/internal/media"
	"orbit/internal/models"
	"orbit/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput(userID uint) CreatePostInput {
	return CreatePostInput{
		UserID:      userID,
		Title:       "  Lisbon at dusk ",
		Description: "Tram 28 all the way up",
		Media:       []string{"https://cdn.test/a.jpg"},
		Categories:  []string{"Travel", " "},
	}
}

func TestPostService_CreatePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t)

	post, err := e.postSvc.CreatePost(ctx, validInput(owner.ID))
	require.NoError(t, err)
	assert.Equal(t, "Lisbon at dusk", post.Title)
	assert.Equal(t, models.StringList{"Travel"}, post.Categories)
	assert.Equal(t, owner.ID, post.Author.ID)
}

func TestPostService_CreatePostValidation(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t)

	tests := []struct {
		name   string
		mutate func(*CreatePostInput)
	}{
		{"missing title", func(in *CreatePostInput) { in.Title = "  " }},
		{"long title", func(in *CreatePostInput) { in.Title = strings.Repeat("t", maxTitleLen+1) }},
		{"long description", func(in *CreatePostInput) { in.Description = strings.Repeat("d", maxDescriptionLen+1) }},
		{"no category", func(in *CreatePostInput) { in.Categories = nil }},
		{"bad category", func(in *CreatePostInput) { in.Categories = []string{"50%"} }},
		{"non http media", func(in *CreatePostInput) { in.Media = []string{"ftp://cdn.test/a.jpg"} }},
		{"bad cover", func(in *CreatePostInput) { in.CoverPhoto = "cover.jpg" }},
		{"too much media", func(in *CreatePostInput) {
			in.Media = make([]string, maxMediaItems+1)
			for i := range in.Media {
				in.Media[i] = "https://cdn.test/a.jpg"
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(owner.ID)
			tt.mutate(&in)
			_, err := e.postSvc.CreatePost(context.Background(), in)
			requireCode(t, err, models.CodeValidation)
		})
	}
}

func TestPostService_CreatePostUploads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t)

	in := validInput(owner.ID)
	in.Media = nil
	in.Uploads = []media.Upload{{Filename: "clip.mp4", ContentType: "video/mp4", Body: strings.NewReader("vid")}}
	post, err := e.postSvc.CreatePost(ctx, in)
	require.NoError(t, err)
	require.Len(t, post.Media, 1)
	assert.True(t, strings.HasPrefix(post.Media[0], "https://media.test/posts/"))
	assert.Equal(t, models.MediaVideo, models.ClassifyMedia(post))
	assert.Len(t, e.media.Objects, 1)

	in.Uploads = []media.Upload{{Filename: "doc.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")}}
	_, err = e.postSvc.CreatePost(ctx, in)
	requireCode(t, err, models.CodeValidation)

	e.media.Err = errors.New("bucket offline")
	in.Uploads = []media.Upload{{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("png")}}
	_, err = e.postSvc.CreatePost(ctx, in)
	requireCode(t, err, models.CodeInternal)

	noStore := NewPostService(e.posts, e.comments, nil, nil, 0)
	_, err = noStore.CreatePost(ctx, in)
	requireCode(t, err, models.CodeValidation)
}

func TestPostService_PinLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner, other := e.user(t), e.user(t)

	var pinned []uint
	for i := 0; i < models.MaxPinnedPosts; i++ {
		p := e.post(t, owner.ID, nil)
		ok, err := e.postSvc.PinPost(ctx, owner.ID, p.ID)
		require.NoError(t, err)
		require.True(t, ok)
		pinned = append(pinned, p.ID)
	}

	// Re-pinning is a no-op even at the limit.
	ok, err := e.postSvc.PinPost(ctx, owner.ID, pinned[0])
	require.NoError(t, err)
	assert.False(t, ok)

	extra := e.post(t, owner.ID, nil)
	_, err = e.postSvc.PinPost(ctx, owner.ID, extra.ID)
	requireCode(t, err, models.CodePinLimitExceeded)
	assert.Equal(t, http.StatusBadRequest, models.StatusFor(err))

	for _, id := range pinned {
		p, err := e.posts.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, p.IsPinned)
	}
	p, err := e.posts.GetByID(ctx, extra.ID)
	require.NoError(t, err)
	assert.False(t, p.IsPinned)

	require.NoError(t, e.postSvc.UnpinPost(ctx, owner.ID, pinned[0]))
	ok, err = e.postSvc.PinPost(ctx, owner.ID, extra.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Only the owner can pin.
	_, err = e.postSvc.PinPost(ctx, other.ID, pinned[1])
	requireCode(t, err, models.CodeUnauthorized)
	requireCode(t, e.postSvc.UnpinPost(ctx, other.ID, pinned[1]), models.CodeUnauthorized)
}

func TestPostService_ArchiveLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner, other := e.user(t), e.user(t)
	p := e.post(t, owner.ID, nil)

	requireCode(t, e.postSvc.ArchivePost(ctx, other.ID, p.ID), models.CodeUnauthorized)
	requireCode(t, e.postSvc.UnarchivePost(ctx, owner.ID, p.ID), models.CodeValidation)

	require.NoError(t, e.postSvc.ArchivePost(ctx, owner.ID, p.ID))
	require.NoError(t, e.postSvc.ArchivePost(ctx, owner.ID, p.ID))
	archived, err := e.postSvc.ListArchived(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, p.ID, archived[0].ID)

	require.NoError(t, e.postSvc.UnarchivePost(ctx, owner.ID, p.ID))
	archived, err = e.postSvc.ListArchived(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestPostService_LikesAndComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner, fan := e.user(t), e.user(t)
	p := e.post(t, owner.ID, nil)

	require.NoError(t, e.postSvc.LikePost(ctx, fan.ID, p.ID))
	requireCode(t, e.postSvc.LikePost(ctx, fan.ID, p.ID), models.CodeAlreadyLiked)
	require.NoError(t, e.postSvc.LikePost(ctx, owner.ID, p.ID))

	c, err := e.postSvc.AddComment(ctx, fan.ID, p.ID, "  lovely  ")
	require.NoError(t, err)
	assert.Equal(t, "lovely", c.Body)
	_, err = e.postSvc.AddComment(ctx, fan.ID, p.ID, " ")
	requireCode(t, err, models.CodeValidation)

	got, err := e.posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LikesCount)
	assert.Equal(t, 1, got.CommentsCount)

	// Self-likes notify nobody.
	assert.Equal(t, []string{notifications.EventPostLiked, notifications.EventCommentCreated}, e.events.types())

	comments, err := e.postSvc.ListComments(ctx, owner.ID, p.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, fan.ID, comments[0].User.ID)

	stranger := e.user(t)
	requireCode(t, e.postSvc.DeleteComment(ctx, stranger.ID, p.ID, c.ID), models.CodeUnauthorized)
	requireCode(t, e.postSvc.DeleteComment(ctx, owner.ID, p.ID+1, c.ID), models.CodeNotFound)
	require.NoError(t, e.postSvc.DeleteComment(ctx, owner.ID, p.ID, c.ID))

	require.NoError(t, e.postSvc.UnlikePost(ctx, fan.ID, p.ID))
	got, err = e.posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 0, got.CommentsCount)
}

func TestPostService_HiddenPostsRejectInteraction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner, fan := e.user(t), e.user(t)
	archived := e.post(t, owner.ID, func(p *models.Post) { p.IsArchived = true })
	moderated := e.post(t, owner.ID, func(p *models.Post) { p.IsBlocked = true })

	requireCode(t, e.postSvc.LikePost(ctx, fan.ID, archived.ID), models.CodeNotFound)
	requireCode(t, e.postSvc.SavePost(ctx, fan.ID, moderated.ID), models.CodeNotFound)
	_, err := e.postSvc.AddComment(ctx, fan.ID, archived.ID, "hi")
	requireCode(t, err, models.CodeNotFound)

	require.NoError(t, e.postSvc.LikePost(ctx, owner.ID, archived.ID))
}

func TestPostService_SavedList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner, fan := e.user(t), e.user(t)
	keep := e.post(t, owner.ID, nil)
	later := e.post(t, owner.ID, nil)

	require.NoError(t, e.postSvc.SavePost(ctx, fan.ID, keep.ID))
	require.NoError(t, e.postSvc.SavePost(ctx, fan.ID, later.ID))
	requireCode(t, e.postSvc.SavePost(ctx, fan.ID, keep.ID), models.CodeAlreadySaved)

	require.NoError(t, e.postSvc.ArchivePost(ctx, owner.ID, later.ID))
	saved, err := e.postSvc.ListSaved(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, keep.ID, saved[0].ID)

	require.NoError(t, e.postSvc.UnsavePost(ctx, fan.ID, keep.ID))
	requireCode(t, e.postSvc.UnsavePost(ctx, fan.ID, keep.ID), models.CodeNotFound)
}

func TestPostService_DeletePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner, other := e.user(t), e.user(t)
	p := e.post(t, owner.ID, nil)

	err := e.postSvc.DeletePost(ctx, other.ID, p.ID)
	requireCode(t, err, models.CodeUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, models.StatusFor(err))

	require.NoError(t, e.postSvc.DeletePost(ctx, owner.ID, p.ID))
	_, err = e.posts.GetByID(ctx, p.ID)
	requireCode(t, err, models.CodeNotFound)
}
