package session

import (
	"time"

	"dinepos/internal/domain"
)

// Lunch service runs 06:00 up to (but not including) 15:00 local time;
// everything else is the dinner session. The session tag drives both
// bill-number prefixes and settlement tagging.
const (
	lunchStartHour = 6
	lunchEndHour   = 15
)

// Of reports the business session active at t.
func Of(t time.Time) domain.Session {
	h := t.Hour()
	if h >= lunchStartHour && h < lunchEndHour {
		return domain.SessionLunch
	}
	return domain.SessionDinner
}

// Prefix is the bill-number prefix for a session tag.
func Prefix(s domain.Session) string {
	if s == domain.SessionLunch {
		return "L-"
	}
	return "D-"
}
