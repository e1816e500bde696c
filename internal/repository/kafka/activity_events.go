package kafka

import (
	"context"

	"github.com/NordCoder/Alive/internal/domain/kafka"
)

const (
	EventUserPurged   = "user_purged"
	EventUserReminded = "user_reminded"
)

type ActivityEventsKafka struct {
	p *Producer
}

func NewActivityEventsKafka(p *Producer) *ActivityEventsKafka { return &ActivityEventsKafka{p: p} }

var _ kafka.ActivityEvents = (*ActivityEventsKafka)(nil)

func (e *ActivityEventsKafka) PublishUserPurged(ctx context.Context, ev kafka.UserPurged) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(ev.UserID), EventUserPurged, ev)
}

func (e *ActivityEventsKafka) PublishUserReminded(ctx context.Context, ev kafka.UserReminded) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(ev.UserID), EventUserReminded, ev)
}
