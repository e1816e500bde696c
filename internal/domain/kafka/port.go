package kafka

import (
	"context"
	"time"
)

type UserPurged struct {
	UserID      int64     `json:"user_id"`
	Nickname    string    `json:"nickname"`
	LastCheckIn time.Time `json:"last_check_in"`
	InactiveFor int       `json:"inactive_days"`
	At          time.Time `json:"at"`
}

type UserReminded struct {
	UserID      int64     `json:"user_id"`
	Nickname    string    `json:"nickname"`
	InactiveFor int       `json:"inactive_days"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
	At          time.Time `json:"at"`
}

// CheckInRequested is consumed from the check-ins topic.
type CheckInRequested struct {
	UserID int64 `json:"user_id"`
}

type ActivityEvents interface {
	PublishUserPurged(ctx context.Context, e UserPurged) error
	PublishUserReminded(ctx context.Context, e UserReminded) error
}
