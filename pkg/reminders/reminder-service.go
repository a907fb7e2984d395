package reminders

import (
	"log/slog"
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DEFAULT_MAX_SNOOZES    = 3
	DEFAULT_SNOOZE_MINUTES = 10
)

// Store is the persistence surface the reminder lifecycle needs; satisfied by
// *reminderDB.ReminderDBService.
type Store interface {
	CreateReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error)
	SaveReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error)
	GetReminderByID(instanceID string, id string) (*remindersTypes.Reminder, error)
	GetRemindersForUser(instanceID string, userID string, onlyActive bool) ([]remindersTypes.Reminder, error)
	MarkReminderCancelled(instanceID string, id string) error
	UpdateDeliveryStatusByMessageID(instanceID string, messageID string, newStatus string, at time.Time) error
	MarkDeliveryInteraction(instanceID string, messageID string, field string, at time.Time) error
	CleanupExpiredReminders(instanceID string, now time.Time) (int64, error)
}

var (
	reminderDBService Store
)

func Init(
	reminderDBServiceRef Store,
) {
	reminderDBService = reminderDBServiceRef
}

// ValidateNewReminder checks a reminder before it is persisted. It only
// inspects the input; ownership and storage concerns stay with the caller.
func ValidateNewReminder(reminder remindersTypes.Reminder, now time.Time) error {
	if reminder.Title == "" {
		return ErrTitleRequired
	}
	if !reminder.ScheduledAt.After(now) {
		return ErrScheduledTimeNotInFuture
	}
	if len(reminder.Channels) == 0 {
		return ErrNoChannels
	}
	for _, channel := range reminder.Channels {
		if !remindersTypes.IsValidChannel(channel) {
			return ErrInvalidChannel
		}
	}
	if reminder.Priority != "" && !remindersTypes.IsValidPriority(reminder.Priority) {
		return ErrInvalidPriority
	}
	if reminder.RepeatRule != nil && reminder.RepeatRule.Enabled {
		if !remindersTypes.IsValidRepeatFrequency(reminder.RepeatRule.Frequency) {
			return ErrInvalidRepeatRule
		}
	}
	return nil
}

// CreateReminder validates and persists a new reminder for the given user.
func CreateReminder(instanceID string, userID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error) {
	now := time.Now()
	if err := ValidateNewReminder(reminder, now); err != nil {
		return reminder, err
	}

	reminder.OwnerUserID = userID
	reminder.Status = remindersTypes.REMINDER_STATUS_SCHEDULED
	reminder.IsActive = true
	reminder.Deliveries = []remindersTypes.Delivery{}
	reminder.FiredEscalationSteps = nil
	reminder.TriggerCount = 0
	reminder.LastTriggeredAt = nil
	reminder.ClaimedUntil = time.Time{}

	if reminder.Priority == "" {
		reminder.Priority = remindersTypes.REMINDER_PRIORITY_NORMAL
	}

	if reminder.SnoozeInfo == nil {
		reminder.SnoozeInfo = &remindersTypes.SnoozeInfo{
			MaxSnoozes: DEFAULT_MAX_SNOOZES,
		}
	} else if reminder.SnoozeInfo.MaxSnoozes <= 0 {
		reminder.SnoozeInfo.MaxSnoozes = DEFAULT_MAX_SNOOZES
	}
	reminder.SnoozeInfo.SnoozeCount = 0
	reminder.SnoozeInfo.SnoozedAt = time.Time{}
	reminder.SnoozeInfo.SnoozedUntil = time.Time{}

	if reminder.RepeatRule != nil && reminder.RepeatRule.Enabled {
		next := reminder.ScheduledAt
		reminder.NextOccurrence = &next
	} else {
		reminder.NextOccurrence = nil
		// non-recurring reminders are retained for a fixed window from creation
		if reminder.ExpiresAt.IsZero() {
			reminder.ExpiresAt = now.Add(remindersTypes.DEFAULT_REMINDER_RETENTION)
		}
	}

	created, err := reminderDBService.CreateReminder(instanceID, reminder)
	if err != nil {
		slog.Error("Failed to create reminder",
			slog.String("instanceID", instanceID),
			slog.String("userID", userID),
			slog.String("error", err.Error()))
		return created, err
	}
	return created, nil
}

// GetReminder returns one reminder after verifying ownership.
func GetReminder(instanceID string, userID string, reminderID string) (*remindersTypes.Reminder, error) {
	reminder, err := reminderDBService.GetReminderByID(instanceID, reminderID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	if reminder.OwnerUserID != userID {
		return nil, ErrReminderNotFound
	}
	return reminder, nil
}

func GetRemindersForUser(instanceID string, userID string, onlyActive bool) ([]remindersTypes.Reminder, error) {
	return reminderDBService.GetRemindersForUser(instanceID, userID, onlyActive)
}

// SnoozeReminder defers a scheduled reminder by the given number of minutes.
// Snoozing is rejected once snoozeCount has reached maxSnoozes, leaving the
// reminder unchanged.
func SnoozeReminder(instanceID string, userID string, reminderID string, minutes int) (remindersTypes.Reminder, error) {
	var empty remindersTypes.Reminder

	reminder, err := GetReminder(instanceID, userID, reminderID)
	if err != nil {
		return empty, err
	}

	if !reminder.CanTransitionTo(remindersTypes.REMINDER_STATUS_SNOOZED) {
		return empty, ErrInvalidStatusTransition
	}

	if reminder.SnoozeInfo == nil {
		reminder.SnoozeInfo = &remindersTypes.SnoozeInfo{
			MaxSnoozes: DEFAULT_MAX_SNOOZES,
		}
	}
	if reminder.SnoozeInfo.SnoozeCount >= reminder.SnoozeInfo.MaxSnoozes {
		return empty, ErrSnoozeLimitReached
	}

	if minutes <= 0 {
		minutes = DEFAULT_SNOOZE_MINUTES
	}

	now := time.Now()
	snoozedUntil := now.Add(time.Duration(minutes) * time.Minute)

	reminder.SnoozeInfo.SnoozedAt = now
	reminder.SnoozeInfo.SnoozedUntil = snoozedUntil
	reminder.SnoozeInfo.SnoozeCount++

	// snoozed is transient and always re-enters scheduled with the deferred time
	reminder.Status = remindersTypes.REMINDER_STATUS_SCHEDULED
	reminder.ScheduledAt = snoozedUntil
	reminder.ClaimedUntil = time.Time{}

	saved, err := reminderDBService.SaveReminder(instanceID, *reminder)
	if err != nil {
		slog.Error("Failed to save snoozed reminder",
			slog.String("instanceID", instanceID),
			slog.String("reminderID", reminderID),
			slog.String("error", err.Error()))
		return empty, err
	}
	return saved, nil
}

// DismissReminder cancels a reminder and deactivates it. Dismissing an already
// resolved reminder is rejected.
func DismissReminder(instanceID string, userID string, reminderID string) error {
	reminder, err := GetReminder(instanceID, userID, reminderID)
	if err != nil {
		return err
	}

	if !reminder.CanTransitionTo(remindersTypes.REMINDER_STATUS_CANCELLED) {
		return ErrInvalidStatusTransition
	}

	return reminderDBService.MarkReminderCancelled(instanceID, reminderID)
}

// ConfirmDelivery records a provider delivery confirmation for the attempt
// identified by messageID.
func ConfirmDelivery(instanceID string, messageID string, deliveredAt time.Time) error {
	err := reminderDBService.UpdateDeliveryStatusByMessageID(instanceID, messageID, remindersTypes.DELIVERY_STATUS_DELIVERED, deliveredAt)
	if err == mongo.ErrNoDocuments {
		return ErrReminderNotFound
	}
	return err
}

// MarkDeliveryRead records a read receipt for the attempt identified by
// messageID.
func MarkDeliveryRead(instanceID string, messageID string, at time.Time) error {
	err := reminderDBService.MarkDeliveryInteraction(instanceID, messageID, "readAt", at)
	if err == mongo.ErrNoDocuments {
		return ErrReminderNotFound
	}
	return err
}

// MarkDeliveryClicked records a click interaction for the attempt identified
// by messageID.
func MarkDeliveryClicked(instanceID string, messageID string, at time.Time) error {
	err := reminderDBService.MarkDeliveryInteraction(instanceID, messageID, "clickedAt", at)
	if err == mongo.ErrNoDocuments {
		return ErrReminderNotFound
	}
	return err
}

// CleanupExpiredReminders soft-cancels reminders whose retention window has
// passed. Returns the number of reminders cancelled.
func CleanupExpiredReminders(instanceID string, now time.Time) (int64, error) {
	count, err := reminderDBService.CleanupExpiredReminders(instanceID, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		slog.Info("Cleaned up expired reminders",
			slog.String("instanceID", instanceID),
			slog.Int64("count", count))
	}
	return count, nil
}
