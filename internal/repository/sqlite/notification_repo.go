package sqlite

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	perrors "github.com/pkg/errors"

	"github.com/NordCoder/Alive/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ s *Store }

func NewNotificationRepo(s *Store) *NotificationRepo { return &NotificationRepo{s: s} }

type notificationRow struct {
	ID      int64  `db:"id"`
	UserID  int64  `db:"user_id"`
	Channel string `db:"channel"`
	Kind    string `db:"kind"`
	Target  string `db:"target"`
	OK      bool   `db:"ok"`
	Error   string `db:"error"`
	SentAt  string `db:"sent_at"`
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	id, err := r.s.insertBuilder(ctx, r.s.builder.
		Insert("notifications").
		Columns("user_id", "channel", "kind", "target", "ok", "error", "sent_at").
		Values(n.UserID, string(n.Channel), string(n.Kind), n.Target, n.OK, n.Error, n.SentAt.UTC().Format(timeLayout)))
	if err != nil {
		return perrors.Wrap(err, "insert notification")
	}
	n.ID = id
	return nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	var rows []notificationRow
	err := r.s.selectBuilder(ctx, &rows, r.s.builder.
		Select("id", "user_id", "channel", "kind", "target", "ok", "error", "sent_at").
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("sent_at DESC", "id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, perrors.Wrap(err, "query notifications")
	}

	out := make([]*notification.Notification, 0, len(rows))
	for _, row := range rows {
		sent, err := time.Parse(timeLayout, row.SentAt)
		if err != nil {
			return nil, perrors.Wrapf(err, "notification %d: bad sent_at", row.ID)
		}
		out = append(out, &notification.Notification{
			ID:      row.ID,
			UserID:  row.UserID,
			Channel: notification.Channel(row.Channel),
			Kind:    notification.Kind(row.Kind),
			Target:  row.Target,
			OK:      row.OK,
			Error:   row.Error,
			SentAt:  sent,
		})
	}
	return out, nil
}
