package reminder

import (
	"testing"
	"time"

	"github.com/docutrack/docutrack/internal/types"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

func in(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{"same day earlier hour", time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC), 0},
		{"same day later hour", time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC), 0},
		{"tomorrow early", time.Date(2026, 10, 19, 0, 5, 0, 0, time.UTC), 1},
		{"yesterday late", time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC), -1},
		{"across month", time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.due, now))
		})
	}
}

func TestDaysUntil_UsesNowLocation(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	localNow := time.Date(2026, 10, 19, 1, 0, 0, 0, manila) // 17:00 UTC on the 18th

	due := time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC) // the 19th in Manila
	assert.Equal(t, 0, DaysUntil(due, localNow))
}

func TestRelative(t *testing.T) {
	assert.Equal(t, "today", Relative(0))
	assert.Equal(t, "tomorrow", Relative(1))
	assert.Equal(t, "2 days from now", Relative(2))
	assert.Equal(t, "5 days from now", Relative(5))
}

func TestText_Absent(t *testing.T) {
	tests := []struct {
		name string
		pref types.ReminderPreference
		due  *time.Time
	}{
		{"none preference", types.ReminderNone, in(2)},
		{"empty preference", "", in(2)},
		{"no due date", types.ReminderDaily, nil},
		{"past due daily", types.ReminderDaily, in(-1)},
		{"past due three days", types.ReminderThreeDaysBefore, in(-3)},
		{"past due one week", types.ReminderOneWeekBefore, in(-10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := Text(tt.pref, tt.due, now)
			assert.False(t, ok)
			assert.Empty(t, text)
		})
	}
}

func TestText_DueTodayStillShown(t *testing.T) {
	earlier := time.Date(2026, 10, 18, 0, 1, 0, 0, time.UTC)

	text, ok := Text(types.ReminderDaily, &earlier, now)
	assert.True(t, ok)
	assert.Equal(t, "Daily reminders active (due today)", text)
}

func TestText_Variants(t *testing.T) {
	tests := []struct {
		name string
		pref types.ReminderPreference
		due  *time.Time
		want string
	}{
		{"daily", types.ReminderDaily, in(5), "Daily reminders active (due 5 days from now)"},
		{"every two days", types.ReminderEveryTwoDays, in(1), "Reminders every 2 days active (due tomorrow)"},
		{"three days inside", types.ReminderThreeDaysBefore, in(2), "Reminder active (due 2 days from now)"},
		{"three days boundary", types.ReminderThreeDaysBefore, in(3), "Reminder active (due 3 days from now)"},
		{"three days outside", types.ReminderThreeDaysBefore, in(10), "Reminder scheduled 3 days before the due date"},
		{"one week inside", types.ReminderOneWeekBefore, in(6), "Reminder active (due 6 days from now)"},
		{"one week outside", types.ReminderOneWeekBefore, in(8), "Reminder scheduled 1 week before the due date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := Text(tt.pref, tt.due, now)
			assert.True(t, ok)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestShouldSend(t *testing.T) {
	tests := []struct {
		name string
		pref types.ReminderPreference
		due  *time.Time
		want bool
	}{
		{"daily future", types.ReminderDaily, in(9), true},
		{"daily today", types.ReminderDaily, in(0), true},
		{"daily past", types.ReminderDaily, in(-1), false},
		{"every two even", types.ReminderEveryTwoDays, in(4), true},
		{"every two odd", types.ReminderEveryTwoDays, in(3), false},
		{"three days exact", types.ReminderThreeDaysBefore, in(3), true},
		{"three days other", types.ReminderThreeDaysBefore, in(2), false},
		{"one week exact", types.ReminderOneWeekBefore, in(7), true},
		{"one week other", types.ReminderOneWeekBefore, in(6), false},
		{"none", types.ReminderNone, in(0), false},
		{"no due date", types.ReminderDaily, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSend(tt.pref, tt.due, now))
		})
	}
}
