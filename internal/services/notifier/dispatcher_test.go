package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
)

// stubSender fails the targets listed in fail and records every message.
type stubSender struct {
	ch   notification.Channel
	fail map[string]bool
	msgs []notification.Message
}

func (s *stubSender) Channel() notification.Channel { return s.ch }

func (s *stubSender) Send(_ context.Context, targets []string, msg notification.Message) notification.DispatchResult {
	s.msgs = append(s.msgs, msg)
	res := notification.DispatchResult{Channel: s.ch}
	for _, t := range targets {
		var err error
		if s.fail[t] {
			err = errors.New("rejected")
		}
		res.Outcomes = append(res.Outcomes, notification.Outcome{Target: t, Err: err})
	}
	return res
}

func newStubs() (*stubSender, *stubSender) {
	return &stubSender{ch: notification.ChannelWebhook, fail: map[string]bool{}},
		&stubSender{ch: notification.ChannelEmail, fail: map[string]bool{}}
}

func TestDispatcher_RemindSkipsEmptyChannels(t *testing.T) {
	wh, em := newStubs()
	d := NewDispatcher(wh, em)

	res := d.Remind(context.Background(), &user.User{Nickname: "alice", Emails: []string{"a@example.com"}})
	require.Len(t, res, 1)
	assert.Equal(t, notification.ChannelEmail, res[0].Channel)
	assert.Empty(t, wh.msgs)
}

func TestDispatcher_RemindRequiresNickname(t *testing.T) {
	wh, em := newStubs()
	d := NewDispatcher(wh, em)

	res := d.Remind(context.Background(), &user.User{Webhooks: []string{"http://h"}, Emails: []string{"a@example.com"}})
	assert.Empty(t, res)
	assert.Empty(t, wh.msgs)
	assert.Empty(t, em.msgs)
}

func TestDispatcher_WebhookProbeNeedsOneSuccess(t *testing.T) {
	wh, em := newStubs()
	d := NewDispatcher(wh, em)
	u := &user.User{Nickname: "alice", Webhooks: []string{"http://a", "http://b"}}

	wh.fail["http://a"] = true
	res, err := d.Probe(context.Background(), notification.ChannelWebhook, u)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed())
	require.Len(t, wh.msgs, 1)
	assert.True(t, strings.HasPrefix(wh.msgs[0].Body, testMarker))

	wh.fail["http://b"] = true
	_, err = d.Probe(context.Background(), notification.ChannelWebhook, u)
	require.ErrorIs(t, err, notification.ErrDispatch)
}

func TestDispatcher_EmailProbeMirrorsSession(t *testing.T) {
	wh, em := newStubs()
	d := NewDispatcher(wh, em)
	u := &user.User{Nickname: "alice", Emails: []string{"a@example.com"}}

	_, err := d.Probe(context.Background(), notification.ChannelEmail, u)
	require.NoError(t, err)

	em.fail["a@example.com"] = true
	_, err = d.Probe(context.Background(), notification.ChannelEmail, u)
	require.ErrorIs(t, err, notification.ErrDispatch)
}

func TestDispatcher_ProbeValidation(t *testing.T) {
	wh, em := newStubs()
	d := NewDispatcher(wh, em)

	_, err := d.Probe(context.Background(), notification.ChannelEmail, &user.User{Emails: []string{"a@example.com"}})
	assert.ErrorIs(t, err, user.ErrNotConfigured)

	_, err = d.Probe(context.Background(), notification.ChannelEmail, &user.User{Nickname: "alice"})
	assert.ErrorIs(t, err, user.ErrNoNotificationChannel)
	assert.True(t, user.IsValidation(err))
}
