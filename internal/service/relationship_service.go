package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/observability"
	"orbit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FollowOutcome describes what SendFollowRequest did.
type FollowOutcome string

const (
	FollowOutcomeFollowed         FollowOutcome = "followed"
	FollowOutcomeRequested        FollowOutcome = "requested"
	FollowOutcomeAlreadyFollowing FollowOutcome = "already_following"
	FollowOutcomeAlreadyRequested FollowOutcome = "already_requested"
)

// Created reports whether the request added a new edge.
func (o FollowOutcome) Created() bool {
	return o == FollowOutcomeFollowed || o == FollowOutcomeRequested
}

// RequestDirection selects which pending list ListFollowRequests returns.
type RequestDirection string

const (
	RequestsReceived RequestDirection = "received"
	RequestsSent     RequestDirection = "sent"
)

const (
	defaultMaxRetries  = 5
	defaultBaseBackoff = 5 * time.Millisecond
)

// RelationshipService is the follow/block state machine. Every mutation
// reads both users' records, edits them together and writes them back in
// one transaction, retrying the whole operation when another writer got
// there first.
type RelationshipService struct {
	relRepo     repository.RelationshipRepository
	userRepo    repository.UserRepository
	events      EventPublisher
	maxRetries  int
	baseBackoff time.Duration
}

// RelationshipOption configures a RelationshipService.
type RelationshipOption func(*RelationshipService)

// WithMaxRetries bounds how many times a conflicting write is attempted.
func WithMaxRetries(n int) RelationshipOption {
	return func(s *RelationshipService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the first retry delay; later retries double it.
func WithBaseBackoff(d time.Duration) RelationshipOption {
	return func(s *RelationshipService) {
		if d >= 0 {
			s.baseBackoff = d
		}
	}
}

// NewRelationshipService returns a new RelationshipService.
func NewRelationshipService(
	relRepo repository.RelationshipRepository,
	userRepo repository.UserRepository,
	events EventPublisher,
	opts ...RelationshipOption,
) *RelationshipService {
	s := &RelationshipService{
		relRepo:     relRepo,
		userRepo:    userRepo,
		events:      publisherOrDiscard(events),
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendFollowRequest follows target directly when target is a creator and
// files a pending request otherwise.
func (s *RelationshipService) SendFollowRequest(ctx context.Context, actorID, targetID uint) (FollowOutcome, error) {
	if actorID == targetID {
		return "", models.NewSelfActionError("You cannot follow yourself")
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}

	var outcome FollowOutcome
	err = s.mutate(ctx, "send_follow_request", actorID, targetID, func(a, b *models.RelationshipRecord) error {
		if a.FollowRequestsReceived.Has(b.UserID) {
			return models.NewConflictError(models.CodeAlreadyRequested,
				"This user has already requested to follow you; accept their request instead")
		}
		if a.Following.Has(b.UserID) {
			outcome = FollowOutcomeAlreadyFollowing
			return nil
		}
		if target.IsCreator {
			a.FollowRequestsSent.Remove(b.UserID)
			b.FollowRequestsReceived.Remove(a.UserID)
			a.Following.Add(b.UserID)
			b.Followers.Add(a.UserID)
			outcome = FollowOutcomeFollowed
			return nil
		}
		if a.FollowRequestsSent.Has(b.UserID) {
			outcome = FollowOutcomeAlreadyRequested
			return nil
		}
		a.FollowRequestsSent.Add(b.UserID)
		b.FollowRequestsReceived.Add(a.UserID)
		outcome = FollowOutcomeRequested
		return nil
	})
	s.record("send_follow_request", outcome.Created(), err)
	if err != nil {
		return "", err
	}

	switch outcome {
	case FollowOutcomeFollowed:
		s.publish(ctx, notifications.EventFollowed, actorID, targetID, targetID)
	case FollowOutcomeRequested:
		s.publish(ctx, notifications.EventFollowRequestReceived, actorID, targetID, targetID)
		s.publish(ctx, notifications.EventFollowRequestSent, actorID, targetID, actorID)
	}
	return outcome, nil
}

// AcceptFollowRequest turns requester's pending request to actor into a
// confirmed follow.
func (s *RelationshipService) AcceptFollowRequest(ctx context.Context, actorID, requesterID uint) error {
	err := s.mutate(ctx, "accept_follow_request", actorID, requesterID, func(a, b *models.RelationshipRecord) error {
		if !a.FollowRequestsReceived.Has(b.UserID) {
			return models.NewRequestNotFoundError()
		}
		a.FollowRequestsReceived.Remove(b.UserID)
		b.FollowRequestsSent.Remove(a.UserID)
		a.Followers.Add(b.UserID)
		b.Following.Add(a.UserID)
		return nil
	})
	s.record("accept_follow_request", err == nil, err)
	if err != nil {
		return err
	}
	s.publish(ctx, notifications.EventFollowAccepted, actorID, requesterID, requesterID)
	return nil
}

// DeclineFollowRequest drops requester's pending request to actor.
func (s *RelationshipService) DeclineFollowRequest(ctx context.Context, actorID, requesterID uint) error {
	err := s.mutate(ctx, "decline_follow_request", actorID, requesterID, func(a, b *models.RelationshipRecord) error {
		if !a.FollowRequestsReceived.Has(b.UserID) {
			return models.NewRequestNotFoundError()
		}
		a.FollowRequestsReceived.Remove(b.UserID)
		b.FollowRequestsSent.Remove(a.UserID)
		return nil
	})
	s.record("decline_follow_request", err == nil, err)
	if err != nil {
		return err
	}
	s.publish(ctx, notifications.EventFollowDeclined, actorID, requesterID, requesterID)
	return nil
}

// CancelFollowRequest withdraws actor's pending request to target. Both
// sides of the pending edge must be present.
func (s *RelationshipService) CancelFollowRequest(ctx context.Context, actorID, targetID uint) error {
	err := s.mutate(ctx, "cancel_follow_request", actorID, targetID, func(a, b *models.RelationshipRecord) error {
		if !a.FollowRequestsSent.Has(b.UserID) || !b.FollowRequestsReceived.Has(a.UserID) {
			return models.NewRequestNotFoundError()
		}
		a.FollowRequestsSent.Remove(b.UserID)
		b.FollowRequestsReceived.Remove(a.UserID)
		return nil
	})
	s.record("cancel_follow_request", err == nil, err)
	if err != nil {
		return err
	}
	s.publish(ctx, notifications.EventFollowCancelled, actorID, targetID, targetID)
	return nil
}

// UnfollowUser removes the confirmed edge actor->target if there is one and
// reports whether anything changed.
func (s *RelationshipService) UnfollowUser(ctx context.Context, actorID, targetID uint) (bool, error) {
	var changed bool
	err := s.mutate(ctx, "unfollow", actorID, targetID, func(a, b *models.RelationshipRecord) error {
		removedA := a.Following.Remove(b.UserID)
		removedB := b.Followers.Remove(a.UserID)
		changed = removedA || removedB
		return nil
	})
	s.record("unfollow", changed, err)
	if err != nil {
		return false, err
	}
	if changed {
		s.publish(ctx, notifications.EventUnfollowed, actorID, targetID)
	}
	return changed, nil
}

// BlockUser adds target to actor's blocked set. Existing follow edges are
// kept; feeds hide blocked authors regardless. It reports true when target
// was already blocked.
func (s *RelationshipService) BlockUser(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == targetID {
		return false, models.NewSelfActionError("You cannot block yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return false, err
	}

	var already bool
	err := s.mutate(ctx, "block", actorID, targetID, func(a, b *models.RelationshipRecord) error {
		already = !a.Blocked.Add(b.UserID)
		return nil
	})
	s.record("block", !already, err)
	if err != nil {
		return false, err
	}
	if !already {
		s.publish(ctx, notifications.EventUserBlocked, actorID, targetID)
	}
	return already, nil
}

// UnblockUser removes target from actor's blocked set.
func (s *RelationshipService) UnblockUser(ctx context.Context, actorID, targetID uint) error {
	err := s.mutate(ctx, "unblock", actorID, targetID, func(a, b *models.RelationshipRecord) error {
		if !a.Blocked.Remove(b.UserID) {
			return models.NewNotBlockedError()
		}
		return nil
	})
	s.record("unblock", err == nil, err)
	if err != nil {
		return err
	}
	s.publish(ctx, notifications.EventUserUnblocked, actorID, targetID)
	return nil
}

// GetBlockedUsers lists the users actor has blocked, in blocking order.
func (s *RelationshipService) GetBlockedUsers(ctx context.Context, actorID uint) ([]models.UserSummary, error) {
	rec, err := s.relRepo.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, rec.Blocked)
}

// GetRelationshipStatus derives actor's status toward target.
func (s *RelationshipService) GetRelationshipStatus(ctx context.Context, actorID, targetID uint) (models.RelationshipView, error) {
	view := models.RelationshipView{UserID: actorID, TargetID: targetID, RelationshipStatus: models.StatusNone}
	if actorID == targetID {
		return view, nil
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return view, err
	}
	rec, err := s.relRepo.Get(ctx, actorID)
	if err != nil {
		return view, err
	}
	view.RelationshipStatus = rec.StatusToward(targetID)
	view.Blocked = rec.Blocked.Has(targetID)
	return view, nil
}

// ListFollowers lists userID's followers annotated with viewer's status
// toward each of them.
func (s *RelationshipService) ListFollowers(ctx context.Context, viewerID, userID uint) ([]models.FollowListEntry, error) {
	return s.listEdges(ctx, viewerID, userID, func(r *models.RelationshipRecord) models.IDSet { return r.Followers })
}

// ListFollowing lists the users userID follows annotated with viewer's
// status toward each of them.
func (s *RelationshipService) ListFollowing(ctx context.Context, viewerID, userID uint) ([]models.FollowListEntry, error) {
	return s.listEdges(ctx, viewerID, userID, func(r *models.RelationshipRecord) models.IDSet { return r.Following })
}

// ListFollowRequests returns actor's pending requests in one direction.
func (s *RelationshipService) ListFollowRequests(ctx context.Context, actorID uint, dir RequestDirection) ([]models.UserSummary, error) {
	rec, err := s.relRepo.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	switch dir {
	case RequestsReceived, "":
		return s.summaries(ctx, rec.FollowRequestsReceived)
	case RequestsSent:
		return s.summaries(ctx, rec.FollowRequestsSent)
	default:
		return nil, models.NewValidationError("direction must be 'received' or 'sent'")
	}
}

// Counts returns userID's confirmed edge counts.
func (s *RelationshipService) Counts(ctx context.Context, userID uint) (models.EdgeCounts, error) {
	rec, err := s.relRepo.Get(ctx, userID)
	if err != nil {
		return models.EdgeCounts{}, err
	}
	return models.CountsOf(rec), nil
}

func (s *RelationshipService) listEdges(
	ctx context.Context, viewerID, userID uint, pick func(*models.RelationshipRecord) models.IDSet,
) ([]models.FollowListEntry, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	recs, err := s.relRepo.GetMany(ctx, []uint{userID, viewerID})
	if err != nil {
		return nil, err
	}
	ids := pick(recs[userID])
	users, err := s.userRepo.GetByIDs(ctx, ids.Slice())
	if err != nil {
		return nil, err
	}
	viewer := recs[viewerID]
	out := make([]models.FollowListEntry, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			continue
		}
		out = append(out, models.FollowListEntry{
			UserSummary:        models.NewUserSummary(u),
			RelationshipStatus: viewer.StatusToward(id),
		})
	}
	return out, nil
}

func (s *RelationshipService) summaries(ctx context.Context, ids models.IDSet) ([]models.UserSummary, error) {
	users, err := s.userRepo.GetByIDs(ctx, ids.Slice())
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, models.NewUserSummary(u))
		}
	}
	return out, nil
}

// mutate runs fn through UpdatePair, retrying on version conflicts with a
// jittered exponential backoff.
func (s *RelationshipService) mutate(ctx context.Context, op string, actorID, targetID uint, fn repository.PairMutation) (err error) {
	ctx, span := observability.StartSpan(ctx, "relationship", op,
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("target.id", int64(targetID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RelationshipRetries.WithLabelValues(op).Inc()
			if err = sleepCtx(ctx, s.backoff(attempt)); err != nil {
				return err
			}
		}
		err = s.relRepo.UpdatePair(ctx, actorID, targetID, fn)
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		middleware.Logger.DebugContext(ctx, "relationship write conflicted, retrying",
			slog.String("operation", op),
			slog.Int("attempt", attempt+1),
		)
	}

	middleware.Logger.WarnContext(ctx, "relationship retries exhausted",
		slog.String("operation", op),
		slog.Uint64("actor_id", uint64(actorID)),
		slog.Uint64("target_id", uint64(targetID)),
	)
	return &models.AppError{
		Code:    models.CodeConflictRetryExhausted,
		Message: "Relationship changed concurrently, please retry",
		Err:     fmt.Errorf("%s after %d attempts: %w", op, s.maxRetries, err),
	}
}

func (s *RelationshipService) backoff(attempt int) time.Duration {
	if s.baseBackoff == 0 {
		return 0
	}
	d := s.baseBackoff << (attempt - 1)
	return d + rand.N(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *RelationshipService) record(op string, applied bool, err error) {
	outcome := observability.OutcomeNoop
	switch {
	case err != nil:
		outcome = observability.OutcomeError
	case applied:
		outcome = observability.OutcomeApplied
	}
	observability.RelationshipOps.WithLabelValues(op, outcome).Inc()
}

func (s *RelationshipService) publish(ctx context.Context, eventType string, actorID, targetID uint, recipients ...uint) {
	e := notifications.Event{
		Type:       eventType,
		ActorID:    actorID,
		TargetID:   targetID,
		Recipients: recipients,
	}
	if actor, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		e.Payload = map[string]any{"user": models.NewUserSummary(actor)}
	}
	s.events.Publish(ctx, e)
}
