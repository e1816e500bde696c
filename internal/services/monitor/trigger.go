package monitor

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule yields the next firing time strictly after t.
type Schedule interface {
	Next(t time.Time) time.Time
}

type Interval time.Duration

func (i Interval) Next(t time.Time) time.Time { return t.Add(time.Duration(i)) }

type cronSchedule struct {
	s   cron.Schedule
	loc *time.Location
}

func (c cronSchedule) Next(t time.Time) time.Time { return c.s.Next(t.In(c.loc)) }

// ParseCron accepts a standard five-field expression or a descriptor such as "@daily",
// evaluated in loc.
func ParseCron(expr string, loc *time.Location) (Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return cronSchedule{s: s, loc: loc}, nil
}
