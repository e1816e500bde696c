package notification

import (
	"errors"
	"fmt"
	"time"
)

type Channel string

const (
	ChannelWebhook Channel = "webhook"
	ChannelEmail   Channel = "email"
)

func ParseChannel(s string) (Channel, error) {
	switch s {
	case "wechat", string(ChannelWebhook):
		return ChannelWebhook, nil
	case string(ChannelEmail):
		return ChannelEmail, nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

type Kind string

const (
	KindReminder Kind = "reminder"
	KindProbe    Kind = "probe"
)

type Message struct {
	Subject string
	Body    string
}

// Outcome is the delivery result for a single target. Err is nil on success.
type Outcome struct {
	Target string
	Err    error
}

var ErrDispatch = errors.New("notification dispatch failed")

type DispatchResult struct {
	Channel  Channel
	Outcomes []Outcome
}

func (r DispatchResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

func (r DispatchResult) Failed() int { return len(r.Outcomes) - r.Succeeded() }

func (r DispatchResult) AnyOK() bool { return r.Succeeded() > 0 }

func (r DispatchResult) AllOK() bool { return r.Failed() == 0 }

// Err joins every per-target failure under ErrDispatch, or returns nil when all targets succeeded.
func (r DispatchResult) Err() error {
	if r.AllOK() {
		return nil
	}
	errs := []error{ErrDispatch}
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", r.Channel, o.Target, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Notification is one row of the dispatch log.
type Notification struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	Channel Channel   `json:"channel"`
	Kind    Kind      `json:"kind"`
	Target  string    `json:"target"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// FromResult flattens a dispatch result into log rows.
func FromResult(userID int64, kind Kind, res DispatchResult, at time.Time) []*Notification {
	out := make([]*Notification, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		n := &Notification{
			UserID:  userID,
			Channel: res.Channel,
			Kind:    kind,
			Target:  o.Target,
			OK:      o.Err == nil,
			SentAt:  at,
		}
		if o.Err != nil {
			n.Error = o.Err.Error()
		}
		out = append(out, n)
	}
	return out
}
