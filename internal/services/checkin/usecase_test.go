package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Alive/internal/domain/clock"
	"github.com/NordCoder/Alive/internal/domain/kafka"
	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
	"github.com/NordCoder/Alive/internal/repository/memory"
	"github.com/NordCoder/Alive/internal/services/notifier"
)

const deviceID = "6f1c2a9e-3b7d-4c1e-9a55-0d2f8e7b1c44"

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type stubSender struct {
	ch   notification.Channel
	fail map[string]bool
}

func (s *stubSender) Channel() notification.Channel { return s.ch }

func (s *stubSender) Send(_ context.Context, targets []string, _ notification.Message) notification.DispatchResult {
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

type fixture struct {
	store *memory.Store
	hook  *stubSender
	mail  *stubSender
	uc    *Usecase
}

func newFixture() *fixture {
	f := &fixture{
		store: memory.New(),
		hook:  &stubSender{ch: notification.ChannelWebhook, fail: map[string]bool{}},
		mail:  &stubSender{ch: notification.ChannelEmail, fail: map[string]bool{}},
	}
	f.uc = New(Deps{
		Users:  f.store,
		Tx:     f.store,
		Prober: notifier.NewDispatcher(f.hook, f.mail),
		Notes:  f.store.Notifications(),
		Clock:  clock.NewFake(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)),
	})
	return f
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, created, err := f.uc.Login(ctx, "  <b>alice</b> ", deviceID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice", u.Nickname)
	assert.Zero(t, u.StreakDays)
	assert.Nil(t, u.LastCheckIn)

	again, created, err := f.uc.Login(ctx, "alice", deviceID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	other, created, err := f.uc.Login(ctx, "alice", "0b7e1d7c-1111-4a2b-8c3d-9e8f7a6b5c4d")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, u.ID, other.ID)
}

func TestLogin_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name, nick, device string
	}{
		{"empty nickname", "", deviceID},
		{"markup only", "<script></script>", deviceID},
		{"empty device", "bob", " "},
		{"bad device", "bob", "not-a-uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.uc.Login(context.Background(), tt.nick, tt.device)
			assert.ErrorIs(t, err, user.ErrInvalidArgument)
		})
	}
}

func TestCheckIn_Scenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.Put(&user.User{ID: 1, Nickname: "alice", Webhooks: []string{"http://hook"}})

	res, err := f.uc.CheckIn(ctx, 1, day(2024, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, Result{StreakDays: 1}, res)

	res, err = f.uc.CheckIn(ctx, 1, day(2024, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, Result{AlreadyCheckedIn: true, StreakDays: 1}, res)

	res, err = f.uc.CheckIn(ctx, 1, day(2024, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, Result{StreakDays: 2}, res)

	res, err = f.uc.CheckIn(ctx, 1, day(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, Result{StreakDays: 1}, res)

	u, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u.LastCheckIn)
	assert.Equal(t, day(2024, 1, 5), *u.LastCheckIn)
}

func TestCheckIn_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.Put(&user.User{ID: 1, Webhooks: []string{"http://hook"}})
	f.store.Put(&user.User{ID: 2, Nickname: "bob"})

	_, err := f.uc.CheckIn(ctx, 1, day(2024, 1, 1))
	assert.ErrorIs(t, err, user.ErrNotConfigured)

	_, err = f.uc.CheckIn(ctx, 2, day(2024, 1, 1))
	assert.ErrorIs(t, err, user.ErrNoNotificationChannel)

	_, err = f.uc.CheckIn(ctx, 42, day(2024, 1, 1))
	assert.ErrorIs(t, err, user.ErrNotFound)

	u, err := f.store.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, u.LastCheckIn)
}

func TestCheckIn_ConcurrentSameDay(t *testing.T) {
	f := newFixture()
	f.store.Put(&user.User{ID: 1, Nickname: "alice", Emails: []string{"a@example.com"},
		LastCheckIn: ptr(day(2024, 1, 1)), StreakDays: 3})

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.uc.CheckIn(context.Background(), 1, day(2024, 1, 2))
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	fresh := 0
	for _, r := range results {
		assert.Equal(t, 4, r.StreakDays)
		if !r.AlreadyCheckedIn {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
}

func TestStatusAndConfigure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.Put(&user.User{ID: 1, Nickname: "alice", LastCheckIn: ptr(day(2024, 1, 2)), StreakDays: 5})

	st, err := f.uc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Status{Nickname: "alice", StreakDays: 5, CheckedInToday: true}, st)

	hooks := "https://a.example/h, https://b.example/h,https://a.example/h"
	require.NoError(t, f.uc.Configure(ctx, 1, TargetsInput{Webhooks: &hooks}))

	emails := "x@example.com"
	require.NoError(t, f.uc.Configure(ctx, 1, TargetsInput{Emails: &emails}))

	u, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/h", "https://b.example/h"}, u.Webhooks)
	assert.Equal(t, []string{"x@example.com"}, u.Emails)

	none := ""
	require.NoError(t, f.uc.Configure(ctx, 1, TargetsInput{Webhooks: &none}))
	u, err = f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, u.Webhooks)
	assert.Equal(t, []string{"x@example.com"}, u.Emails)

	bad := "ftp://nope"
	assert.ErrorIs(t, f.uc.Configure(ctx, 1, TargetsInput{Webhooks: &bad}), user.ErrInvalidArgument)
	assert.ErrorIs(t, f.uc.Configure(ctx, 9, TargetsInput{}), user.ErrNotFound)

	_, err = f.uc.Status(ctx, 9)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.Put(&user.User{ID: 1, Nickname: "alice"})

	require.NoError(t, f.uc.Delete(ctx, 1))
	require.NoError(t, f.uc.Delete(ctx, 1))

	_, err := f.store.GetByID(ctx, 1)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestTestNotification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.Put(&user.User{ID: 1, Nickname: "alice",
		Webhooks: []string{"http://bad", "http://good"}, Emails: []string{"a@example.com"}})
	f.store.Put(&user.User{ID: 2, Nickname: "bob"})

	f.hook.fail["http://bad"] = true
	require.NoError(t, f.uc.TestNotification(ctx, 1, notification.ChannelWebhook))

	f.mail.fail["a@example.com"] = true
	err := f.uc.TestNotification(ctx, 1, notification.ChannelEmail)
	assert.ErrorIs(t, err, notification.ErrDispatch)

	err = f.uc.TestNotification(ctx, 2, notification.ChannelEmail)
	assert.ErrorIs(t, err, user.ErrNoNotificationChannel)

	err = f.uc.TestNotification(ctx, 3, notification.ChannelEmail)
	assert.ErrorIs(t, err, user.ErrNotFound)

	hist, err := f.uc.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, notification.ChannelEmail, hist[0].Channel)
	assert.False(t, hist[0].OK)
	assert.Equal(t, notification.KindProbe, hist[0].Kind)
}

func TestController_Handle(t *testing.T) {
	f := newFixture()
	f.store.Put(&user.User{ID: 1, Nickname: "alice", Webhooks: []string{"http://hook"}})
	c := &Controller{Log: f.uc.Log, UC: f.uc}
	ctx := context.Background()

	require.NoError(t, c.handle(ctx, nil, &kafka.CheckInRequested{UserID: 1}))
	require.NoError(t, c.handle(ctx, nil, &kafka.CheckInRequested{UserID: 0}))
	require.NoError(t, c.handle(ctx, nil, &kafka.CheckInRequested{UserID: 77}))

	u, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u.LastCheckIn)
	assert.Equal(t, day(2024, 1, 2), *u.LastCheckIn)
	assert.Equal(t, 1, u.StreakDays)
}

func ptr[T any](v T) *T { return &v }
