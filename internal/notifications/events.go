package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"orbit/internal/middleware"
	"orbit/internal/observability"

	"github.com/google/uuid"
)

// Event type constants prevent typos in event names.
const (
	EventFollowRequestReceived = "follow_request_received"
	EventFollowRequestSent     = "follow_request_sent"
	EventFollowAccepted        = "follow_accepted"
	EventFollowDeclined        = "follow_declined"
	EventFollowCancelled       = "follow_cancelled"
	EventFollowed              = "followed"
	EventUnfollowed            = "unfollowed"
	EventUserBlocked           = "user_blocked"
	EventUserUnblocked         = "user_unblocked"
	EventPostReported          = "post_reported"
	EventPostLiked             = "post_liked"
	EventCommentCreated        = "comment_created"
)

// Event is a committed change in the social graph or on a post.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ActorID    uint           `json:"actor_id"`
	TargetID   uint           `json:"target_id,omitempty"`
	PostID     uint           `json:"post_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`

	// Recipients are the users whose open sockets should see the event.
	Recipients []uint `json:"-"`
}

// wireMessage is the frame websocket clients receive.
type wireMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ClientFrame renders the event as a websocket frame.
func (e Event) ClientFrame() (string, error) {
	b, err := json.Marshal(wireMessage{Type: e.Type, Payload: e})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Sink receives published events.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// EventBus fans events out to every configured sink. Delivery failures are
// logged and counted; they never fail the operation that produced the event.
type EventBus struct {
	sinks []Sink
}

// NewEventBus returns a bus over the given sinks. Nil sinks are skipped.
func NewEventBus(sinks ...Sink) *EventBus {
	b := &EventBus{}
	for _, s := range sinks {
		if s != nil {
			b.sinks = append(b.sinks, s)
		}
	}
	return b
}

// Publish stamps and delivers e.
func (b *EventBus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	for _, s := range b.sinks {
		result := "ok"
		if err := s.Deliver(ctx, e); err != nil {
			result = "error"
			middleware.Logger.WarnContext(ctx, "event delivery failed",
				slog.String("sink", s.Name()),
				slog.String("event", e.Type),
				slog.String("error", err.Error()),
			)
		}
		observability.EventsPublished.WithLabelValues(s.Name(), result).Inc()
	}
}

// RealtimeSink pushes events to the recipients' websocket connections. With
// Redis available it publishes through the Notifier so every instance sees
// the event; otherwise it writes to the local hub directly.
type RealtimeSink struct {
	hub      *Hub
	notifier *Notifier
}

// NewRealtimeSink builds a sink over hub and notifier. Either may be nil.
func NewRealtimeSink(hub *Hub, notifier *Notifier) *RealtimeSink {
	return &RealtimeSink{hub: hub, notifier: notifier}
}

func (s *RealtimeSink) Name() string { return "realtime" }

func (s *RealtimeSink) Deliver(ctx context.Context, e Event) error {
	if len(e.Recipients) == 0 {
		return nil
	}
	frame, err := e.ClientFrame()
	if err != nil {
		return err
	}
	for _, userID := range e.Recipients {
		if s.notifier.Enabled() {
			if err := s.notifier.PublishUser(ctx, userID, frame); err != nil {
				return err
			}
			continue
		}
		if s.hub != nil {
			s.hub.Broadcast(userID, frame)
		}
	}
	return nil
}
