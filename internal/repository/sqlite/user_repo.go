package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	perrors "github.com/pkg/errors"

	"github.com/NordCoder/Alive/internal/domain/activity"
	"github.com/NordCoder/Alive/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct{ s *Store }

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

var userColumns = []string{
	"id", "nickname", "device_id", "webhooks", "emails",
	"last_check_in", "streak_days", "created_at", "updated_at",
}

type userRow struct {
	ID          int64          `db:"id"`
	Nickname    string         `db:"nickname"`
	DeviceID    string         `db:"device_id"`
	Webhooks    string         `db:"webhooks"`
	Emails      string         `db:"emails"`
	LastCheckIn sql.NullString `db:"last_check_in"`
	StreakDays  int            `db:"streak_days"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (r userRow) toDomain() (*user.User, error) {
	u := &user.User{
		ID:         r.ID,
		Nickname:   r.Nickname,
		DeviceID:   r.DeviceID,
		Webhooks:   user.SplitList(r.Webhooks),
		Emails:     user.SplitList(r.Emails),
		StreakDays: r.StreakDays,
	}
	if r.LastCheckIn.Valid && r.LastCheckIn.String != "" {
		d, err := activity.ParseDate(r.LastCheckIn.String)
		if err != nil {
			return nil, perrors.Wrapf(err, "user %d: bad last_check_in", r.ID)
		}
		u.LastCheckIn = &d
	}
	var err error
	if u.CreatedAt, err = time.Parse(timeLayout, r.CreatedAt); err != nil {
		return nil, perrors.Wrapf(err, "user %d: bad created_at", r.ID)
	}
	if u.UpdatedAt, err = time.Parse(timeLayout, r.UpdatedAt); err != nil {
		return nil, perrors.Wrapf(err, "user %d: bad updated_at", r.ID)
	}
	return u, nil
}

func now() string { return time.Now().UTC().Format(timeLayout) }

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	ts := now()
	id, err := r.s.insertBuilder(ctx, r.s.builder.
		Insert("users").
		Columns("nickname", "device_id", "webhooks", "emails", "streak_days", "created_at", "updated_at").
		Values(u.Nickname, u.DeviceID, user.JoinList(u.Webhooks), user.JoinList(u.Emails), 0, ts, ts))
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return perrors.Wrap(err, "user insert")
	}

	created, err := r.getOne(ctx, sq.Eq{"id": id})
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetForUpdate reads the row; the single connection already serializes the surrounding transaction.
func (r *UserRepo) GetForUpdate(ctx context.Context, id int64) (*user.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepo) GetByIdentity(ctx context.Context, nickname, deviceID string) (*user.User, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()
	return r.getOne(ctx, sq.Eq{"nickname": nickname, "device_id": deviceID})
}

func (r *UserRepo) getOne(ctx context.Context, where sq.Eq) (*user.User, error) {
	var row userRow
	err := r.s.getBuilder(ctx, &row, r.s.builder.Select(userColumns...).From("users").Where(where))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, perrors.Wrap(err, "get user")
	}
	return row.toDomain()
}

func (r *UserRepo) ListAll(ctx context.Context) ([]*user.User, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	var rows []userRow
	if err := r.s.selectBuilder(ctx, &rows, r.s.builder.Select(userColumns...).From("users").OrderBy("id")); err != nil {
		return nil, perrors.Wrap(err, "list users")
	}
	out := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepo) UpdateCheckIn(ctx context.Context, id int64, lastCheckIn time.Time, streakDays int) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	return r.update(ctx, id, r.s.builder.Update("users").
		Set("last_check_in", activity.FormatDate(lastCheckIn)).
		Set("streak_days", streakDays))
}

func (r *UserRepo) UpdateTargets(ctx context.Context, id int64, t user.Targets) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	b := r.s.builder.Update("users")
	if t.Webhooks != nil {
		b = b.Set("webhooks", user.JoinList(*t.Webhooks))
	}
	if t.Emails != nil {
		b = b.Set("emails", user.JoinList(*t.Emails))
	}
	return r.update(ctx, id, b)
}

func (r *UserRepo) update(ctx context.Context, id int64, b sq.UpdateBuilder) error {
	n, err := r.s.execBuilder(ctx, b.Set("updated_at", now()).Where(sq.Eq{"id": id}))
	if err != nil {
		return perrors.Wrapf(err, "update user %d", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	n, err := r.s.execBuilder(ctx, r.s.builder.Delete("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return perrors.Wrapf(err, "delete user %d", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
