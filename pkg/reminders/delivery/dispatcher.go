package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"

	"github.com/google/uuid"
)

var ErrNoTransportForChannel = errors.New("no transport configured for channel")

// Outcome summarizes one dispatch cycle over all of a reminder's channels.
type Outcome struct {
	Attempted  int
	Accepted   int
	Failed     int
	Suppressed int
	// Status is the reminder status derived from this cycle's attempts.
	Status string
}

type Dispatcher struct {
	transports  map[string]Transport
	preferences PreferenceChecker
	directory   RecipientDirectory
	sendTimeout time.Duration
}

func NewDispatcher(
	transports map[string]Transport,
	preferences PreferenceChecker,
	directory RecipientDirectory,
	sendTimeout time.Duration,
) *Dispatcher {
	if preferences == nil {
		preferences = AllowAllPreferences{}
	}
	if directory == nil {
		directory = UserIDDirectory{}
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		transports:  transports,
		preferences: preferences,
		directory:   directory,
		sendTimeout: sendTimeout,
	}
}

// Dispatch attempts delivery over every requested channel, appending one
// delivery record per attempt to the reminder. Channel failures are isolated:
// one channel failing never prevents attempting the others. The returned
// outcome carries the derived reminder status for this cycle (at least one
// accepted channel makes it sent; only an all-failed cycle makes it failed).
func (d *Dispatcher) Dispatch(ctx context.Context, reminder *remindersTypes.Reminder, now time.Time) Outcome {
	outcome := Outcome{}

	for _, channel := range reminder.Channels {
		if !d.preferences.ShouldReceive(ctx, reminder.OwnerUserID, PREFERENCE_CATEGORY_REMINDERS, channel) {
			slog.Debug("Channel suppressed by user preferences",
				slog.String("reminderID", reminder.ID.Hex()),
				slog.String("userID", reminder.OwnerUserID),
				slog.String("channel", channel))
			outcome.Suppressed++
			continue
		}

		outcome.Attempted++
		attempt := remindersTypes.Delivery{
			ScheduledAt: reminder.ScheduledAt,
			Channel:     channel,
			Status:      remindersTypes.DELIVERY_STATUS_PENDING,
			MessageID:   uuid.New().String(),
		}
		reminder.Deliveries = append(reminder.Deliveries, attempt)
		idx := len(reminder.Deliveries) - 1

		result, err := d.sendOverChannel(ctx, channel, reminder, attempt.MessageID)

		sentAt := time.Now()
		reminder.Deliveries[idx].SentAt = &sentAt
		if result.MessageID != "" {
			reminder.Deliveries[idx].MessageID = result.MessageID
		}

		if err != nil || !result.Accepted {
			outcome.Failed++
			if result.Bounced {
				reminder.Deliveries[idx].Status = remindersTypes.DELIVERY_STATUS_BOUNCED
			} else {
				reminder.Deliveries[idx].Status = remindersTypes.DELIVERY_STATUS_FAILED
			}
			if err != nil {
				reminder.Deliveries[idx].Error = err.Error()
			} else {
				reminder.Deliveries[idx].Error = "transport rejected message"
			}
			slog.Error("Failed to deliver reminder over channel",
				slog.String("reminderID", reminder.ID.Hex()),
				slog.String("channel", channel),
				slog.String("error", reminder.Deliveries[idx].Error))
			continue
		}

		outcome.Accepted++
		reminder.Deliveries[idx].Status = remindersTypes.DELIVERY_STATUS_SENT
	}

	if outcome.Attempted > 0 && outcome.Accepted == 0 {
		outcome.Status = remindersTypes.REMINDER_STATUS_FAILED
	} else {
		// All channels suppressed still counts as a handled cycle.
		outcome.Status = remindersTypes.REMINDER_STATUS_SENT
	}
	return outcome
}

func (d *Dispatcher) sendOverChannel(ctx context.Context, channel string, reminder *remindersTypes.Reminder, messageID string) (SendResult, error) {
	transport, ok := d.transports[channel]
	if !ok {
		return SendResult{}, ErrNoTransportForChannel
	}

	recipientRef, err := d.directory.RecipientRef(ctx, reminder.OwnerUserID, channel)
	if err != nil {
		return SendResult{}, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	result, err := transport.Send(sendCtx, SendRequest{
		Channel:      channel,
		RecipientRef: recipientRef,
		UserID:       reminder.OwnerUserID,
		Title:        reminder.Title,
		Message:      reminder.Message,
		Subject:      reminder.Subject,
		Priority:     reminder.Priority,
		ReminderID:   reminder.ID.Hex(),
		MessageID:    messageID,
	})
	if err == nil && sendCtx.Err() != nil {
		// timed out calls must not stay pending
		return SendResult{}, sendCtx.Err()
	}
	return result, err
}

// SendDirect sends a standalone message to an explicit recipient over one
// channel, outside any reminder delivery bookkeeping. Used by escalation
// steps.
func (d *Dispatcher) SendDirect(ctx context.Context, channel string, recipientRef string, title string, message string, subject remindersTypes.ReminderSubject, priority string) error {
	transport, ok := d.transports[channel]
	if !ok {
		return ErrNoTransportForChannel
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	result, err := transport.Send(sendCtx, SendRequest{
		Channel:      channel,
		RecipientRef: recipientRef,
		UserID:       recipientRef,
		Title:        title,
		Message:      message,
		Subject:      subject,
		Priority:     priority,
		MessageID:    uuid.New().String(),
	})
	if err != nil {
		return err
	}
	if !result.Accepted {
		return errors.New("transport rejected message")
	}
	return nil
}
