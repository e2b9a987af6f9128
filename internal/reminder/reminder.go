// Package reminder derives the reminder line shown under an event and decides
// on which days the scheduler sends one. Both are pure functions of the
// preference, the due date and the current time.
package reminder

import (
	"fmt"
	"time"

	"github.com/docutrack/docutrack/internal/types"
	"github.com/dustin/go-humanize"
)

// Thresholds in days for the "before" preferences.
const (
	ThreeDays = 3
	OneWeek   = 7
)

// DaysUntil counts calendar days from now to due, ignoring time of day. Both
// instants are read as dates in now's location.
func DaysUntil(due, now time.Time) int {
	return int(dateOf(due.In(now.Location())).Sub(dateOf(now)) / (24 * time.Hour))
}

// dateOf returns midnight UTC of t's calendar date, so differences between
// two results are whole days regardless of DST.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Relative renders a non-negative day count as "today", "tomorrow" or
// "in N days"-style text.
func Relative(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	}

	now := dateOf(time.Unix(0, 0).UTC())
	return humanize.RelTime(now.AddDate(0, 0, days), now, "ago", "from now")
}

// Text returns the reminder line for an event, or false when none applies:
// no preference, no due date, or a due date before today.
func Text(pref types.ReminderPreference, due *time.Time, now time.Time) (string, bool) {
	if pref == types.ReminderNone || pref == "" || due == nil {
		return "", false
	}

	days := DaysUntil(*due, now)
	if days < 0 {
		return "", false
	}
	rel := Relative(days)

	switch pref {
	case types.ReminderDaily:
		return fmt.Sprintf("Daily reminders active (due %s)", rel), true
	case types.ReminderEveryTwoDays:
		return fmt.Sprintf("Reminders every 2 days active (due %s)", rel), true
	case types.ReminderThreeDaysBefore:
		if days <= ThreeDays {
			return fmt.Sprintf("Reminder active (due %s)", rel), true
		}
		return "Reminder scheduled 3 days before the due date", true
	case types.ReminderOneWeekBefore:
		if days <= OneWeek {
			return fmt.Sprintf("Reminder active (due %s)", rel), true
		}
		return "Reminder scheduled 1 week before the due date", true
	default:
		return "", false
	}
}

// ShouldSend reports whether a reminder goes out on now's date.
func ShouldSend(pref types.ReminderPreference, due *time.Time, now time.Time) bool {
	if due == nil {
		return false
	}

	days := DaysUntil(*due, now)
	if days < 0 {
		return false
	}

	switch pref {
	case types.ReminderDaily:
		return true
	case types.ReminderEveryTwoDays:
		return days%2 == 0
	case types.ReminderThreeDaysBefore:
		return days == ThreeDays
	case types.ReminderOneWeekBefore:
		return days == OneWeek
	default:
		return false
	}
}
