package types

import "fmt"

type ReminderPreference string

const (
	ReminderNone            ReminderPreference = "none"
	ReminderDaily           ReminderPreference = "daily"
	ReminderEveryTwoDays    ReminderPreference = "every_2_days"
	ReminderThreeDaysBefore ReminderPreference = "three_days_before"
	ReminderOneWeekBefore   ReminderPreference = "one_week_before"
)

var ReminderPreferences = []ReminderPreference{
	ReminderNone,
	ReminderDaily,
	ReminderEveryTwoDays,
	ReminderThreeDaysBefore,
	ReminderOneWeekBefore,
}

func (p ReminderPreference) Valid() bool {
	for _, pref := range ReminderPreferences {
		if p == pref {
			return true
		}
	}
	return false
}

// ParseReminderPreference treats an empty value as none.
func ParseReminderPreference(value string) (ReminderPreference, error) {
	if value == "" {
		return ReminderNone, nil
	}

	pref := ReminderPreference(value)
	if !pref.Valid() {
		return "", fmt.Errorf("unknown reminder preference %q", value)
	}

	return pref, nil
}
