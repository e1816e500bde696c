package activity

import (
	"fmt"
	"time"
)

type Action int

const (
	ActionNone Action = iota
	ActionNotify
	ActionPurge
)

func (a Action) String() string {
	switch a {
	case ActionNotify:
		return "notify"
	case ActionPurge:
		return "purge"
	default:
		return "none"
	}
}

type Thresholds struct {
	NotifyAfter int // days without check-in before reminders start
	PurgeAfter  int // days without check-in before the record is deleted
}

var DefaultThresholds = Thresholds{NotifyAfter: 2, PurgeAfter: 4}

func (t Thresholds) Validate() error {
	if t.NotifyAfter <= 0 || t.PurgeAfter <= t.NotifyAfter {
		return fmt.Errorf("invalid thresholds: notify_after=%d purge_after=%d", t.NotifyAfter, t.PurgeAfter)
	}
	return nil
}

// Classify maps the inactivity of a user to the monitor action. Purge dominates notify.
func Classify(today time.Time, lastCheckIn *time.Time, th Thresholds) Action {
	if lastCheckIn == nil {
		return ActionNone
	}
	return ClassifyDelta(DaysBetween(*lastCheckIn, today), th)
}

func ClassifyDelta(delta int, th Thresholds) Action {
	switch {
	case delta >= th.PurgeAfter:
		return ActionPurge
	case delta >= th.NotifyAfter:
		return ActionNotify
	default:
		return ActionNone
	}
}
