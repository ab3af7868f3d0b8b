package service

import (
	"context"
	"strings"
	"unicode"

	"orbit/internal/models"
	"orbit/internal/observability"
	"orbit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxCategoryLen = 64

// FeedQuery narrows a feed. Zero values mean "all".
type FeedQuery struct {
	Category string
	AuthorID uint
	Limit    int
	Offset   int
}

// FeedService composes personalised feeds.
type FeedService struct {
	postRepo   repository.PostRepository
	userRepo   repository.UserRepository
	relRepo    repository.RelationshipRepository
	visibility *VisibilityService
}

// NewFeedService returns a new FeedService.
func NewFeedService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	relRepo repository.RelationshipRepository,
	visibility *VisibilityService,
) *FeedService {
	return &FeedService{
		postRepo:   postRepo,
		userRepo:   userRepo,
		relRepo:    relRepo,
		visibility: visibility,
	}
}

// ComposeFeed returns the posts viewerID may see, each with its author's
// counts and the viewer's relationship to that author. A viewer looking at
// their own posts sees all of them except archived ones.
func (s *FeedService) ComposeFeed(ctx context.Context, viewerID uint, q FeedQuery) (views []models.PostView, err error) {
	q.Category = strings.TrimSpace(q.Category)
	if q.Category != "" && !validCategory(q.Category) {
		return nil, models.NewValidationError("Invalid category")
	}

	defer observability.ObserveFeed(q.Category != "" || q.AuthorID != 0)()
	ctx, span := observability.StartSpan(ctx, "feed", "compose",
		attribute.Int64("viewer.id", int64(viewerID)),
		attribute.String("feed.category", q.Category),
		attribute.Int64("feed.author_id", int64(q.AuthorID)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("feed.size", len(views)))
		observability.EndSpan(span, err)
	}()

	if q.AuthorID != 0 {
		if _, err = s.userRepo.GetByID(ctx, q.AuthorID); err != nil {
			return nil, err
		}
	}

	var excl Exclusions
	if q.AuthorID == 0 || q.AuthorID != viewerID {
		if excl, err = s.visibility.ComputeExclusions(ctx, viewerID); err != nil {
			return nil, err
		}
	}

	posts, err := s.postRepo.ListVisible(ctx, repository.FeedFilter{
		ExcludePostIDs:   excl.PostIDs,
		ExcludeAuthorIDs: excl.ExcludedAuthors(),
		Category:         q.Category,
		AuthorID:         q.AuthorID,
		Limit:            q.Limit,
		Offset:           q.Offset,
	})
	if err != nil {
		return nil, err
	}

	kept := posts[:0]
	for _, p := range posts {
		if !excl.Allows(p) || p.Author.ID == 0 {
			continue
		}
		if q.Category != "" && !p.Categories.ContainsFold(q.Category) {
			continue
		}
		kept = append(kept, p)
	}
	return s.viewsFor(ctx, viewerID, kept)
}

// GetPost returns one post as viewerID sees it. Blocked posts, and archived
// posts of other users, are reported as missing.
func (s *FeedService) GetPost(ctx context.Context, viewerID, postID uint) (models.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return models.PostView{}, err
	}
	if post.IsBlocked || (post.IsArchived && post.UserID != viewerID) || post.Author.ID == 0 {
		return models.PostView{}, models.NewNotFoundError("Post", postID)
	}
	views, err := s.viewsFor(ctx, viewerID, []*models.Post{post})
	if err != nil {
		return models.PostView{}, err
	}
	return views[0], nil
}

// PostViews maps posts that were already authorised for viewerID, such as
// the viewer's own archive or saved list.
func (s *FeedService) PostViews(ctx context.Context, viewerID uint, posts []*models.Post) ([]models.PostView, error) {
	kept := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.Author.ID != 0 {
			kept = append(kept, p)
		}
	}
	return s.viewsFor(ctx, viewerID, kept)
}

// viewsFor loads the viewer's record and every author's record in one batch.
func (s *FeedService) viewsFor(ctx context.Context, viewerID uint, posts []*models.Post) ([]models.PostView, error) {
	views := make([]models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	ids := models.IDSet{viewerID}
	for _, p := range posts {
		ids.Add(p.UserID)
	}
	recs, err := s.relRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	viewer := recs[viewerID]
	for _, p := range posts {
		views = append(views, models.NewPostView(p, &p.Author, models.CountsOf(recs[p.UserID]), viewer.StatusToward(p.UserID)))
	}
	return views, nil
}

// validCategory keeps category names to characters that cannot act as SQL
// LIKE wildcards or break out of the quoted JSON element.
func validCategory(c string) bool {
	if len(c) > maxCategoryLen {
		return false
	}
	for _, r := range c {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == ' ', r == '-', r == '&', r == '\'':
		default:
			return false
		}
	}
	return true
}
