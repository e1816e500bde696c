package notification

import "context"

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Notification, error)
}

// Sender delivers one message to every target of a channel. Failures are reported per target.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, targets []string, msg Message) DispatchResult
}
