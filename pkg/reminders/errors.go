package reminders

import "errors"

var (
	ErrTitleRequired            = errors.New("reminder title is required")
	ErrScheduledTimeNotInFuture = errors.New("scheduled time must be in the future")
	ErrNoChannels               = errors.New("at least one delivery channel is required")
	ErrInvalidChannel           = errors.New("unknown delivery channel")
	ErrInvalidPriority          = errors.New("unknown priority")
	ErrInvalidRepeatRule        = errors.New("invalid repeat rule")
	ErrSnoozeLimitReached       = errors.New("snooze limit reached")
	ErrInvalidStatusTransition  = errors.New("invalid reminder status transition")
	ErrReminderNotFound         = errors.New("reminder not found")
)
