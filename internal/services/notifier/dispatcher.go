package notifier

import (
	"context"
	"fmt"

	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
)

// Dispatcher fans a user's message out to the channels the user has targets for.
type Dispatcher struct {
	webhook notification.Sender
	email   notification.Sender
}

func NewDispatcher(webhook, email notification.Sender) *Dispatcher {
	return &Dispatcher{webhook: webhook, email: email}
}

func (d *Dispatcher) targets(ch notification.Channel, u *user.User) (notification.Sender, []string) {
	switch ch {
	case notification.ChannelWebhook:
		return d.webhook, u.Webhooks
	case notification.ChannelEmail:
		return d.email, u.Emails
	default:
		return nil, nil
	}
}

// Remind sends the reminder through every configured channel of u. Channels are independent:
// each result carries its own per-target outcomes and nothing is returned as an error.
func (d *Dispatcher) Remind(ctx context.Context, u *user.User) []notification.DispatchResult {
	if u.Nickname == "" {
		return nil
	}
	msg := ReminderMessage(u.Nickname)

	var out []notification.DispatchResult
	for _, ch := range []notification.Channel{notification.ChannelWebhook, notification.ChannelEmail} {
		sender, targets := d.targets(ch, u)
		if sender == nil || len(targets) == 0 {
			continue
		}
		out = append(out, sender.Send(ctx, targets, msg))
	}
	return out
}

// Probe sends a test message through one channel and reports failure synchronously.
// A webhook probe passes when at least one target accepted it; an email probe mirrors the session.
func (d *Dispatcher) Probe(ctx context.Context, ch notification.Channel, u *user.User) (notification.DispatchResult, error) {
	if u.Nickname == "" {
		return notification.DispatchResult{Channel: ch}, user.ErrNotConfigured
	}
	sender, targets := d.targets(ch, u)
	if sender == nil {
		return notification.DispatchResult{Channel: ch}, fmt.Errorf("%w: unknown channel %q", user.ErrInvalidArgument, ch)
	}
	if len(targets) == 0 {
		return notification.DispatchResult{Channel: ch}, fmt.Errorf("%w: no %s targets", user.ErrNoNotificationChannel, ch)
	}

	res := sender.Send(ctx, targets, ProbeMessage(u.Nickname, ch))
	if ch == notification.ChannelWebhook && res.AnyOK() {
		return res, nil
	}
	return res, res.Err()
}
