package service

import (
	"context"

	"orbit/internal/notifications"
)

// EventPublisher receives events after the change that produced them has
// been committed. *notifications.EventBus implements it.
type EventPublisher interface {
	Publish(ctx context.Context, e notifications.Event)
}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, notifications.Event) {}

func publisherOrDiscard(p EventPublisher) EventPublisher {
	if p == nil {
		return discardEvents{}
	}
	return p
}
