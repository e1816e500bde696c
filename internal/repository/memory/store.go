package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
)

var (
	_ user.Repo         = (*Store)(nil)
	_ user.Transactor   = (*Store)(nil)
	_ notification.Repo = (*NotificationRepo)(nil)
)

// Store keeps users in process memory. All operations are serialized; a transaction holds the
// lock for its whole duration and restores the previous state on error.
type Store struct {
	mu     sync.Mutex
	users  map[int64]*user.User
	nextID int64
	notes  []*notification.Notification
	noteID int64
	now    func() time.Time
}

func New() *Store {
	return &Store{users: make(map[int64]*user.User), now: time.Now}
}

type txKey struct{}

func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithTx(ctx context.Context, function func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return function(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[int64]*user.User, len(s.users))
	for id, u := range s.users {
		users[id] = clone(u)
	}
	notes, nextID := append([]*notification.Notification(nil), s.notes...), s.nextID

	if err := function(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.users, s.notes, s.nextID = users, notes, nextID
		return err
	}
	return nil
}

func clone(u *user.User) *user.User {
	c := *u
	c.Webhooks = append([]string{}, u.Webhooks...)
	c.Emails = append([]string{}, u.Emails...)
	if u.LastCheckIn != nil {
		d := *u.LastCheckIn
		c.LastCheckIn = &d
	}
	return &c
}

func (s *Store) Create(ctx context.Context, u *user.User) error {
	defer s.lock(ctx)()
	for _, existing := range s.users {
		if existing.Nickname == u.Nickname && existing.DeviceID == u.DeviceID {
			return user.ErrConflict
		}
	}
	s.nextID++
	now := s.now().UTC()
	stored := clone(u)
	stored.ID = s.nextID
	stored.LastCheckIn = nil
	stored.StreakDays = 0
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.users[stored.ID] = stored
	*u = *clone(stored)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*user.User, error) {
	defer s.lock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return clone(u), nil
}

func (s *Store) GetForUpdate(ctx context.Context, id int64) (*user.User, error) {
	return s.GetByID(ctx, id)
}

func (s *Store) GetByIdentity(ctx context.Context, nickname, deviceID string) (*user.User, error) {
	defer s.lock(ctx)()
	for _, u := range s.users {
		if u.Nickname == nickname && u.DeviceID == deviceID {
			return clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *Store) ListAll(ctx context.Context) ([]*user.User, error) {
	defer s.lock(ctx)()
	out := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateCheckIn(ctx context.Context, id int64, lastCheckIn time.Time, streakDays int) error {
	defer s.lock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	d := lastCheckIn
	u.LastCheckIn = &d
	u.StreakDays = streakDays
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) UpdateTargets(ctx context.Context, id int64, t user.Targets) error {
	defer s.lock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	t.Apply(u)
	u.Webhooks = append([]string{}, u.Webhooks...)
	u.Emails = append([]string{}, u.Emails...)
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	defer s.lock(ctx)()
	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)
	kept := s.notes[:0]
	for _, n := range s.notes {
		if n.UserID != id {
			kept = append(kept, n)
		}
	}
	s.notes = kept
	return nil
}

// Put stores u as is, keeping its ID and check-in state. Used to seed fixtures.
func (s *Store) Put(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	s.users[u.ID] = clone(u)
}

// NotificationRepo shares the store's lock so that deletes cascade.
type NotificationRepo struct{ s *Store }

func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s: s} }

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	defer r.s.lock(ctx)()
	if n.SentAt.IsZero() {
		n.SentAt = r.s.now().UTC()
	}
	r.s.noteID++
	n.ID = r.s.noteID
	c := *n
	r.s.notes = append(r.s.notes, &c)
	return nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*notification.Notification, error) {
	defer r.s.lock(ctx)()
	if limit <= 0 {
		limit = 50
	}
	out := make([]*notification.Notification, 0)
	for i := len(r.s.notes) - 1; i >= 0 && len(out) < limit; i-- {
		if n := r.s.notes[i]; n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}
