package user

import "time"

type User struct {
	ID          int64      `json:"id"`
	Nickname    string     `json:"nickname"`
	DeviceID    string     `json:"device_id"`
	Webhooks    []string   `json:"webhooks"`
	Emails      []string   `json:"emails"`
	LastCheckIn *time.Time `json:"last_check_in"` // calendar date, UTC midnight
	StreakDays  int        `json:"streak_days"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) HasChannel() bool {
	return len(u.Webhooks) > 0 || len(u.Emails) > 0
}

// Targets is a partial update of the notification targets; nil fields are left untouched.
type Targets struct {
	Webhooks *[]string
	Emails   *[]string
}

func (t Targets) Empty() bool { return t.Webhooks == nil && t.Emails == nil }

func (t Targets) Apply(u *User) {
	if t.Webhooks != nil {
		u.Webhooks = *t.Webhooks
	}
	if t.Emails != nil {
		u.Emails = *t.Emails
	}
}
