package types

import "time"

// repeat frequencies
const (
	REPEAT_FREQUENCY_DAILY   = "daily"
	REPEAT_FREQUENCY_WEEKLY  = "weekly"
	REPEAT_FREQUENCY_MONTHLY = "monthly"
	REPEAT_FREQUENCY_YEARLY  = "yearly"
	REPEAT_FREQUENCY_CUSTOM  = "custom"
)

type RepeatRule struct {
	Enabled   bool   `bson:"enabled" json:"enabled"`
	Frequency string `bson:"frequency" json:"frequency"`
	Interval  int    `bson:"interval" json:"interval"`
	// DaysOfWeek restricts weekly recurrences to the given weekdays
	// (0 = Sunday, matching time.Weekday).
	DaysOfWeek     []int      `bson:"daysOfWeek,omitempty" json:"daysOfWeek,omitempty"`
	DayOfMonth     int        `bson:"dayOfMonth,omitempty" json:"dayOfMonth,omitempty"`
	EndDate        *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	MaxOccurrences int        `bson:"maxOccurrences,omitempty" json:"maxOccurrences,omitempty"`
}

func IsValidRepeatFrequency(frequency string) bool {
	switch frequency {
	case REPEAT_FREQUENCY_DAILY, REPEAT_FREQUENCY_WEEKLY, REPEAT_FREQUENCY_MONTHLY,
		REPEAT_FREQUENCY_YEARLY, REPEAT_FREQUENCY_CUSTOM:
		return true
	}
	return false
}
