package service

import (
	"context"
	"log/slog"
	"strings"

	"orbit/internal/cache"
	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/observability"
	"orbit/internal/repository"
)

const maxReportDetails = 1000

// Exclusions is what a viewer must not see in a feed.
type Exclusions struct {
	PostIDs          []uint
	AuthorIDs        []uint
	BlockedAuthorIDs []uint

	posts   map[uint]struct{}
	authors map[uint]struct{}
}

func newExclusions(postIDs, authorIDs, blocked []uint) Exclusions {
	e := Exclusions{
		PostIDs:          postIDs,
		AuthorIDs:        authorIDs,
		BlockedAuthorIDs: blocked,
		posts:            make(map[uint]struct{}, len(postIDs)),
		authors:          make(map[uint]struct{}, len(authorIDs)+len(blocked)),
	}
	for _, id := range postIDs {
		e.posts[id] = struct{}{}
	}
	for _, id := range authorIDs {
		e.authors[id] = struct{}{}
	}
	for _, id := range blocked {
		e.authors[id] = struct{}{}
	}
	return e
}

// Allows reports whether p may appear in the viewer's feed.
func (e Exclusions) Allows(p *models.Post) bool {
	if p == nil || p.IsBlocked || p.IsArchived {
		return false
	}
	if _, ok := e.posts[p.ID]; ok {
		return false
	}
	_, ok := e.authors[p.UserID]
	return !ok
}

// ExcludedAuthors merges not-interested and blocked authors for SQL filtering.
func (e Exclusions) ExcludedAuthors() []uint {
	out := make([]uint, 0, len(e.authors))
	seen := make(map[uint]struct{}, len(e.authors))
	for _, ids := range [][]uint{e.AuthorIDs, e.BlockedAuthorIDs} {
		for _, id := range ids {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

// VisibilityService owns reports and not-interested marks and turns them,
// together with the viewer's blocked set, into feed exclusions.
type VisibilityService struct {
	feedbackRepo repository.FeedbackRepository
	postRepo     repository.PostRepository
	relRepo      repository.RelationshipRepository
	events       EventPublisher
}

// NewVisibilityService returns a new VisibilityService.
func NewVisibilityService(
	feedbackRepo repository.FeedbackRepository,
	postRepo repository.PostRepository,
	relRepo repository.RelationshipRepository,
	events EventPublisher,
) *VisibilityService {
	return &VisibilityService{
		feedbackRepo: feedbackRepo,
		postRepo:     postRepo,
		relRepo:      relRepo,
		events:       publisherOrDiscard(events),
	}
}

// ComputeExclusions gathers the globally reported posts, the viewer's
// not-interested posts and their authors, and the viewer's blocked users.
func (s *VisibilityService) ComputeExclusions(ctx context.Context, viewerID uint) (Exclusions, error) {
	reported, err := s.reportedPostIDs(ctx)
	if err != nil {
		return Exclusions{}, err
	}
	marks, err := s.feedbackRepo.ListNotInterested(ctx, viewerID)
	if err != nil {
		return Exclusions{}, err
	}
	rec, err := s.relRepo.Get(ctx, viewerID)
	if err != nil {
		return Exclusions{}, err
	}

	postIDs := make(models.IDSet, 0, len(reported)+len(marks))
	for _, id := range reported {
		postIDs.Add(id)
	}
	authorIDs := make(models.IDSet, 0, len(marks))
	for _, m := range marks {
		postIDs.Add(m.PostID)
		authorIDs.Add(m.AuthorID)
	}

	observability.FeedExclusions.WithLabelValues("posts").Observe(float64(postIDs.Len()))
	observability.FeedExclusions.WithLabelValues("authors").Observe(float64(authorIDs.Len() + rec.Blocked.Len()))
	return newExclusions(postIDs.Slice(), authorIDs.Slice(), rec.Blocked.Slice()), nil
}

func (s *VisibilityService) reportedPostIDs(ctx context.Context) ([]uint, error) {
	key, ok := cache.ReportedKey(ctx)
	if !ok {
		return s.feedbackRepo.ReportedPostIDs(ctx)
	}
	var ids []uint
	err := cache.Aside(ctx, key, &ids, cache.ReportedTTL, func() error {
		var ferr error
		ids, ferr = s.feedbackRepo.ReportedPostIDs(ctx)
		return ferr
	})
	return ids, err
}

// ReportPost files userID's report against postID.
func (s *VisibilityService) ReportPost(ctx context.Context, userID, postID uint, reason models.ReportReason, details string) (*models.ReportRecord, error) {
	if !reason.Valid() {
		return nil, models.NewValidationError("Invalid report reason")
	}
	details = strings.TrimSpace(details)
	if len(details) > maxReportDetails {
		return nil, models.NewValidationError("Report details too long (max 1000 characters)")
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	report := &models.ReportRecord{
		PostID:     post.ID,
		ReportedBy: userID,
		Reason:     reason,
		Details:    details,
	}
	if err := s.feedbackRepo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	_ = cache.InvalidateReported(ctx)

	middleware.Logger.InfoContext(ctx, "post reported",
		slog.Uint64("post_id", uint64(postID)),
		slog.String("reason", string(reason)),
	)
	s.events.Publish(ctx, notifications.Event{
		Type:    notifications.EventPostReported,
		ActorID: userID,
		PostID:  postID,
		Payload: map[string]any{"reason": reason},
	})
	return report, nil
}

// UnreportPost withdraws userID's report.
func (s *VisibilityService) UnreportPost(ctx context.Context, userID, postID uint) error {
	if err := s.feedbackRepo.DeleteReport(ctx, userID, postID); err != nil {
		return err
	}
	_ = cache.InvalidateReported(ctx)
	return nil
}

// MarkNotInterested hides postID, and every other post by its author, from
// userID's feed.
func (s *VisibilityService) MarkNotInterested(ctx context.Context, userID, postID uint, reason models.NotInterestedReason) (*models.NotInterestedRecord, error) {
	if !reason.Valid() {
		return nil, models.NewValidationError("Invalid reason")
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID == userID {
		return nil, models.NewSelfActionError("You cannot mark your own post as not interested")
	}

	rec := &models.NotInterestedRecord{
		UserID:   userID,
		PostID:   post.ID,
		AuthorID: post.UserID,
		Reason:   reason,
	}
	if err := s.feedbackRepo.CreateNotInterested(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RemoveNotInterested undoes MarkNotInterested.
func (s *VisibilityService) RemoveNotInterested(ctx context.Context, userID, postID uint) error {
	return s.feedbackRepo.DeleteNotInterested(ctx, userID, postID)
}

// ListMyReports returns the reports userID filed, newest first.
func (s *VisibilityService) ListMyReports(ctx context.Context, userID uint) ([]models.ReportRecord, error) {
	return s.feedbackRepo.ListReportsBy(ctx, userID)
}

// ListNotInterested returns userID's not-interested marks, newest first.
func (s *VisibilityService) ListNotInterested(ctx context.Context, userID uint) ([]models.NotInterestedRecord, error) {
	return s.feedbackRepo.ListNotInterested(ctx, userID)
}
