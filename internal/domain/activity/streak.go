package activity

import "time"

// Evaluate computes the state after a check-in on today.
// A repeated check-in on the same day changes nothing and reports already=true.
func Evaluate(today time.Time, lastCheckIn *time.Time, currentStreak int) (newLast time.Time, newStreak int, already bool) {
	today = Day(today)
	if lastCheckIn == nil {
		return today, 1, false
	}
	switch DaysBetween(*lastCheckIn, today) {
	case 0:
		return Day(*lastCheckIn), currentStreak, true
	case 1:
		return today, currentStreak + 1, false
	default:
		return today, 1, false
	}
}
