package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestUserRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(newStore(t))

	u := &user.User{Nickname: "alice", DeviceID: "d-1", Webhooks: []string{"https://hook/a"}}
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)
	require.Nil(t, u.LastCheckIn)
	require.Equal(t, 0, u.StreakDays)
	require.Empty(t, u.Emails)

	got, err := repo.GetByIdentity(ctx, "alice", "d-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, []string{"https://hook/a"}, got.Webhooks)

	require.NoError(t, repo.UpdateCheckIn(ctx, u.ID, day(2024, 3, 10), 3))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastCheckIn)
	require.Equal(t, day(2024, 3, 10), *got.LastCheckIn)
	require.Equal(t, 3, got.StreakDays)

	emails := []string{"a@example.com", "b@example.com"}
	require.NoError(t, repo.UpdateTargets(ctx, u.ID, user.Targets{Emails: &emails}))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, emails, got.Emails)
	require.Equal(t, []string{"https://hook/a"}, got.Webhooks, "webhooks untouched by partial update")
}

func TestUserRepo_Conflict(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(newStore(t))

	require.NoError(t, repo.Create(ctx, &user.User{Nickname: "bob", DeviceID: "d"}))
	err := repo.Create(ctx, &user.User{Nickname: "bob", DeviceID: "d"})
	require.ErrorIs(t, err, user.ErrConflict)
}

func TestUserRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(newStore(t))

	_, err := repo.GetByID(ctx, 42)
	require.ErrorIs(t, err, user.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, 42), user.ErrNotFound)
	require.ErrorIs(t, repo.UpdateCheckIn(ctx, 42, day(2024, 1, 1), 1), user.ErrNotFound)
}

func TestUserRepo_DeleteCascadesNotifications(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	users := NewUserRepo(s)
	notes := NewNotificationRepo(s)

	u := &user.User{Nickname: "carol", DeviceID: "d"}
	require.NoError(t, users.Create(ctx, u))
	require.NoError(t, notes.Create(ctx, &notification.Notification{
		UserID: u.ID, Channel: notification.ChannelEmail, Kind: notification.KindReminder,
		Target: "c@example.com", OK: false, Error: "auth failed",
	}))

	list, err := notes.ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, list[0].OK)
	require.Equal(t, "auth failed", list[0].Error)

	require.NoError(t, users.Delete(ctx, u.ID))
	list, err = notes.ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Empty(t, list)

	all, err := users.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	repo := NewUserRepo(s)

	u := &user.User{Nickname: "dave", DeviceID: "d"}
	require.NoError(t, repo.Create(ctx, u))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.UpdateCheckIn(ctx, u.ID, day(2024, 2, 2), 5))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.LastCheckIn)
	require.Equal(t, 0, got.StreakDays)
}
