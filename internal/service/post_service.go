package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"orbit/internal/media"
	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/repository"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 5000
	maxCommentLen     = 2000
	maxCategories     = 10
	maxMediaItems     = 10
)

// PostService owns the post lifecycle: creation, pinning, archiving,
// likes, comments and saves.
type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	store       media.Store
	events      EventPublisher
	pinLimit    int
}

// CreatePostInput is the payload for CreatePost. Uploads are stored first
// and their URLs appended to Media.
type CreatePostInput struct {
	UserID        uint
	Title         string
	Description   string
	Location      string
	Media         []string
	Uploads       []media.Upload
	CoverPhoto    string
	Video         string
	Categories    []string
	SubCategories []string
	IsBlog        bool
	Sensitive     bool
}

// NewPostService returns a new PostService. store may be nil when uploads
// are not configured; pinLimit defaults to models.MaxPinnedPosts.
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	store media.Store,
	events EventPublisher,
	pinLimit int,
) *PostService {
	if pinLimit < 1 {
		pinLimit = models.MaxPinnedPosts
	}
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		store:       store,
		events:      publisherOrDiscard(events),
		pinLimit:    pinLimit,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 5000 characters)")
	}
	categories := cleanList(in.Categories)
	if len(categories) == 0 {
		return nil, models.NewValidationError("At least one category is required")
	}
	if len(categories) > maxCategories {
		return nil, models.NewValidationError("Too many categories (max 10)")
	}
	for _, c := range categories {
		if !validCategory(c) {
			return nil, models.NewValidationError("Invalid category: " + c)
		}
	}
	if len(in.Media)+len(in.Uploads) > maxMediaItems {
		return nil, models.NewValidationError("Too many media items (max 10)")
	}

	mediaURLs := cleanList(in.Media)
	links := append(nonEmpty(in.CoverPhoto, in.Video), mediaURLs...)
	for _, raw := range links {
		if !isHTTPURL(raw) {
			return nil, models.NewValidationError("Media must be http(s) URLs")
		}
	}
	if len(in.Uploads) > 0 && s.store == nil {
		return nil, models.NewValidationError("File uploads are not enabled")
	}
	for _, u := range in.Uploads {
		link, err := s.store.Put(ctx, in.UserID, u)
		if err != nil {
			if errors.Is(err, media.ErrUnsupportedType) {
				return nil, models.NewValidationError("Unsupported media type: " + u.ContentType)
			}
			return nil, models.NewInternalError(err)
		}
		mediaURLs = append(mediaURLs, link)
	}

	post := &models.Post{
		UserID:        in.UserID,
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Location:      strings.TrimSpace(in.Location),
		Media:         models.StringList(mediaURLs),
		CoverPhoto:    strings.TrimSpace(in.CoverPhoto),
		Video:         strings.TrimSpace(in.Video),
		Categories:    models.StringList(categories),
		SubCategories: models.StringList(cleanList(in.SubCategories)),
		IsBlog:        in.IsBlog,
		Sensitive:     in.Sensitive,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Int("media", len(post.Media)),
	)
	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes a post owned by userID.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, postID)
}

// PinPost pins a post of userID's. Pinning an already pinned post is a
// no-op; pinning past the limit fails with PIN_LIMIT_EXCEEDED.
func (s *PostService) PinPost(ctx context.Context, userID, postID uint) (bool, error) {
	return s.postRepo.Pin(ctx, userID, postID, s.pinLimit)
}

func (s *PostService) UnpinPost(ctx context.Context, userID, postID uint) error {
	return s.postRepo.Unpin(ctx, userID, postID)
}

// ArchivePost hides a post from every feed. Archiving twice is a no-op.
func (s *PostService) ArchivePost(ctx context.Context, userID, postID uint) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.IsArchived {
		return nil
	}
	return s.postRepo.SetArchived(ctx, postID, true)
}

// UnarchivePost restores an archived post.
func (s *PostService) UnarchivePost(ctx context.Context, userID, postID uint) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !post.IsArchived {
		return models.NewValidationError("Post is not archived")
	}
	return s.postRepo.SetArchived(ctx, postID, false)
}

func (s *PostService) ListArchived(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListArchived(ctx, userID)
}

func (s *PostService) LikePost(ctx context.Context, userID, postID uint) error {
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if err := s.postRepo.Like(ctx, userID, postID); err != nil {
		return err
	}
	if post.UserID != userID {
		s.events.Publish(ctx, notifications.Event{
			Type:       notifications.EventPostLiked,
			ActorID:    userID,
			TargetID:   post.UserID,
			PostID:     postID,
			Recipients: []uint{post.UserID},
		})
	}
	return nil
}

func (s *PostService) UnlikePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.visiblePost(ctx, userID, postID); err != nil {
		return err
	}
	return s.postRepo.Unlike(ctx, userID, postID)
}

func (s *PostService) AddComment(ctx context.Context, userID, postID uint, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Comment body is required")
	}
	if len(body) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Body: body}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	if post.UserID != userID {
		s.events.Publish(ctx, notifications.Event{
			Type:       notifications.EventCommentCreated,
			ActorID:    userID,
			TargetID:   post.UserID,
			PostID:     postID,
			Recipients: []uint{post.UserID},
			Payload:    map[string]any{"comment": models.NewCommentView(comment)},
		})
	}
	return comment, nil
}

// DeleteComment removes a comment. The comment's author and the post's
// owner may delete it.
func (s *PostService) DeleteComment(ctx context.Context, userID, postID, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.PostID != postID {
		return models.NewNotFoundError("Comment", commentID)
	}
	if comment.UserID != userID {
		post, err := s.postRepo.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return models.NewUnauthorizedError("You can only delete your own comments")
		}
	}
	return s.commentRepo.Delete(ctx, comment)
}

func (s *PostService) ListComments(ctx context.Context, userID, postID uint, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.visiblePost(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID, limit, offset)
}

func (s *PostService) SavePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.visiblePost(ctx, userID, postID); err != nil {
		return err
	}
	return s.postRepo.Save(ctx, userID, postID)
}

func (s *PostService) UnsavePost(ctx context.Context, userID, postID uint) error {
	return s.postRepo.Unsave(ctx, userID, postID)
}

// ListSaved returns saved posts that are still visible to userID.
func (s *PostService) ListSaved(ctx context.Context, userID uint) ([]*models.Post, error) {
	posts, err := s.postRepo.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := posts[:0]
	for _, p := range posts {
		if !p.IsBlocked && (!p.IsArchived || p.UserID == userID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ownedPost loads postID and checks that userID owns it.
func (s *PostService) ownedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewUnauthorizedError("You can only modify your own posts")
	}
	return post, nil
}

// visiblePost loads postID unless it is blocked, or archived and not owned
// by userID.
func (s *PostService) visiblePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsBlocked || (post.IsArchived && post.UserID != userID) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonEmpty(vals ...string) []string {
	return cleanList(vals)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
