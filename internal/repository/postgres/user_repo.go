package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Alive/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, nickname, device_id, webhooks, emails, last_check_in, streak_days, created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (nickname, device_id, webhooks, emails)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns + `;`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByIDForUpdate = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
FOR UPDATE;`

	qUserByIdentity = `
SELECT ` + userColumns + `
FROM users
WHERE nickname = $1 AND device_id = $2;`

	qUserListAll = `
SELECT ` + userColumns + `
FROM users
ORDER BY id;`

	qUserUpdateCheckIn = `
UPDATE users
SET last_check_in = $2,
    streak_days   = $3,
    updated_at    = NOW()
WHERE id = $1;`

	qUserUpdateTargets = `
UPDATE users
SET webhooks   = COALESCE($2::text[], webhooks),
    emails     = COALESCE($3::text[], emails),
    updated_at = NOW()
WHERE id = $1;`

	qUserDelete = `DELETE FROM users WHERE id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.execQueryer(ctx).QueryRow(ctx, qUserInsert,
		u.Nickname, u.DeviceID, nonNil(u.Webhooks), nonNil(u.Emails))
	if err := scanUser(row, u); err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, qUserByID, id)
}

func (r *UserRepo) GetForUpdate(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, qUserByIDForUpdate, id)
}

func (r *UserRepo) GetByIdentity(ctx context.Context, nickname, deviceID string) (*user.User, error) {
	return r.getOne(ctx, qUserByIdentity, nickname, deviceID)
}

func (r *UserRepo) getOne(ctx context.Context, q string, args ...any) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, q, args...), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ListAll(ctx context.Context) ([]*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qUserListAll)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *UserRepo) UpdateCheckIn(ctx context.Context, id int64, lastCheckIn time.Time, streakDays int) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserUpdateCheckIn, id, lastCheckIn, streakDays)
	if err != nil {
		return fmt.Errorf("user update check-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) UpdateTargets(ctx context.Context, id int64, t user.Targets) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var webhooks, emails any
	if t.Webhooks != nil {
		webhooks = nonNil(*t.Webhooks)
	}
	if t.Emails != nil {
		emails = nonNil(*t.Emails)
	}

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserUpdateTargets, id, webhooks, emails)
	if err != nil {
		return fmt.Errorf("user update targets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserDelete, id)
	if err != nil {
		return fmt.Errorf("user delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(
		&out.ID,
		&out.Nickname,
		&out.DeviceID,
		&out.Webhooks,
		&out.Emails,
		&out.LastCheckIn,
		&out.StreakDays,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
