package recurrence

import (
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

// CustomResolver computes the next occurrence for rules with the "custom"
// frequency. The engine does not define a custom pattern language; callers
// that own one can plug it in through NextWithResolver.
type CustomResolver func(rule remindersTypes.RepeatRule, after time.Time) (time.Time, bool)

// Next computes the next occurrence after the given scheduled time. It returns
// false when the recurrence terminates: rule disabled, occurrence budget
// exhausted, end date exceeded, or an unsupported frequency. The function is
// pure; persisting the result or spawning a successor is up to the caller.
func Next(rule *remindersTypes.RepeatRule, after time.Time, triggerCount int) (time.Time, bool) {
	return NextWithResolver(rule, after, triggerCount, nil)
}

func NextWithResolver(rule *remindersTypes.RepeatRule, after time.Time, triggerCount int, customResolver CustomResolver) (time.Time, bool) {
	if rule == nil || !rule.Enabled {
		return time.Time{}, false
	}

	if rule.MaxOccurrences > 0 && triggerCount >= rule.MaxOccurrences {
		return time.Time{}, false
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	var candidate time.Time
	switch rule.Frequency {
	case remindersTypes.REPEAT_FREQUENCY_DAILY:
		candidate = after.AddDate(0, 0, interval)
	case remindersTypes.REPEAT_FREQUENCY_WEEKLY:
		candidate = after.AddDate(0, 0, interval*7)
		candidate = rollToAllowedWeekday(candidate, rule.DaysOfWeek)
	case remindersTypes.REPEAT_FREQUENCY_MONTHLY:
		candidate = addMonthsClamped(after, interval, rule.DayOfMonth)
	case remindersTypes.REPEAT_FREQUENCY_YEARLY:
		candidate = addMonthsClamped(after, interval*12, rule.DayOfMonth)
	case remindersTypes.REPEAT_FREQUENCY_CUSTOM:
		if customResolver == nil {
			return time.Time{}, false
		}
		var ok bool
		candidate, ok = customResolver(*rule, after)
		if !ok {
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}

	if rule.EndDate != nil && candidate.After(*rule.EndDate) {
		return time.Time{}, false
	}

	return candidate, true
}

// rollToAllowedWeekday advances day by day until the weekday is in the allowed
// set. With an empty set every weekday is allowed.
func rollToAllowedWeekday(t time.Time, daysOfWeek []int) time.Time {
	if len(daysOfWeek) == 0 {
		return t
	}
	allowed := map[int]bool{}
	for _, d := range daysOfWeek {
		allowed[d] = true
	}
	for i := 0; i < 7; i++ {
		if allowed[int(t.Weekday())] {
			return t
		}
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// addMonthsClamped adds months of calendar time keeping the target day of
// month where possible. time.AddDate normalizes Jan 31 + 1 month to Mar 2/3;
// instead the day is clamped to the last day of the target month.
func addMonthsClamped(t time.Time, months int, dayOfMonth int) time.Time {
	day := t.Day()
	if dayOfMonth > 0 {
		day = dayOfMonth
	}

	firstOfMonth := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := firstOfMonth.AddDate(0, months, 0)

	lastDay := daysInMonth(target.Year(), target.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
