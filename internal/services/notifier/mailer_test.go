package notifier

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/NordCoder/Alive/internal/domain/notification"
)

type fakeSession struct {
	sent    []*mail.Msg
	sendErr error
	closed  bool
}

func (f *fakeSession) Send(msgs ...*mail.Msg) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msgs...)
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func testMailer(dial dialFunc) *Mailer {
	m := NewMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     465,
		Username: "bot@example.com",
		Password: "secret",
		FromName: "Alive",
		SSL:      true,
	})
	m.dial = dial
	return m
}

func TestMailer_SingleEnvelope(t *testing.T) {
	sess := &fakeSession{}
	dials := 0
	m := testMailer(func(context.Context) (session, error) {
		dials++
		return sess, nil
	})

	targets := []string{"a@example.com", "b@example.com"}
	res := m.Send(context.Background(), targets, ReminderMessage("alice"))

	require.True(t, res.AllOK())
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, notification.ChannelEmail, res.Channel)
	assert.Equal(t, 1, dials)
	assert.True(t, sess.closed)
	require.Len(t, sess.sent, 1)

	var buf bytes.Buffer
	_, err := sess.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, `"Alive" <bot@example.com>`)
	assert.Contains(t, raw, "<a@example.com>")
	assert.Contains(t, raw, "<b@example.com>")
	assert.Contains(t, raw, "alice check-in reminder")
}

func TestMailer_LoginFailureFailsEveryTarget(t *testing.T) {
	authErr := errors.New("535 authentication failed")
	m := testMailer(func(context.Context) (session, error) { return nil, authErr })

	res := m.Send(context.Background(), []string{"a@example.com", "b@example.com"}, ReminderMessage("alice"))

	require.Len(t, res.Outcomes, 2)
	for _, o := range res.Outcomes {
		assert.ErrorIs(t, o.Err, authErr)
	}
	assert.False(t, res.AnyOK())
	assert.ErrorIs(t, res.Err(), notification.ErrDispatch)
}

func TestMailer_SendFailureClosesSession(t *testing.T) {
	sess := &fakeSession{sendErr: errors.New("550 mailbox unavailable")}
	m := testMailer(func(context.Context) (session, error) { return sess, nil })

	res := m.Send(context.Background(), []string{"a@example.com"}, ReminderMessage("alice"))

	assert.False(t, res.AnyOK())
	assert.True(t, sess.closed)
}

func TestMailer_NotConfigured(t *testing.T) {
	m := NewMailer(SMTPConfig{Host: "smtp.example.com"})
	m.dial = func(context.Context) (session, error) {
		t.Fatal("must not dial without credentials")
		return nil, nil
	}

	res := m.Send(context.Background(), []string{"a@example.com"}, ReminderMessage("alice"))
	require.Len(t, res.Outcomes, 1)
	assert.ErrorIs(t, res.Outcomes[0].Err, ErrMailerNotConfigured)
}

func TestMailer_NoTargets(t *testing.T) {
	m := testMailer(func(context.Context) (session, error) {
		t.Fatal("must not dial without targets")
		return nil, nil
	})
	res := m.Send(context.Background(), nil, ReminderMessage("alice"))
	assert.Empty(t, res.Outcomes)
	assert.NoError(t, res.Err())
}
