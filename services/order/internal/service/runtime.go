package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/pkg/logging"
)

// Runtime carries the side-effect collaborators shared by every service.
type Runtime struct {
	Events events.Publisher
	Mail   *EmailDispatcher
	Clock  func() time.Time
}

func (rt Runtime) now() time.Time {
	if rt.Clock != nil {
		return rt.Clock().UTC()
	}
	return time.Now().UTC()
}

// publish never fails the caller; a lost event is logged.
func (rt Runtime) publish(ctx context.Context, topic, key string, event any) {
	if rt.Events == nil {
		return
	}
	if err := rt.Events.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "topic", topic, "key", key, "error", err)
	}
}

func (rt Runtime) email(ctx context.Context, recipient, slug string, vars map[string]string) {
	if rt.Mail == nil || recipient == "" {
		return
	}
	rt.Mail.Send(ctx, recipient, slug, vars)
}
