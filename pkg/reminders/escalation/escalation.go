package escalation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

// Sender is the delivery path escalation steps go out over; satisfied by the
// dispatcher's direct-send method.
type Sender interface {
	SendDirect(ctx context.Context, channel string, recipientRef string, title string, message string, subject remindersTypes.ReminderSubject, priority string) error
}

type Handler struct {
	sender Sender
}

func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// Process fires all escalation steps that are due for an unresolved reminder.
// Steps run in ascending delay order; each step fires at most once per trigger
// cycle (tracked in firedEscalationSteps, reset when the reminder fires
// again). Escalation never touches the reminder's own state machine; it
// returns the step indices fired so the caller can persist the bookkeeping.
func (h *Handler) Process(ctx context.Context, reminder *remindersTypes.Reminder, now time.Time) []int {
	if !reminder.Settings.Escalation.Enabled || len(reminder.Settings.Escalation.Steps) == 0 {
		return nil
	}
	if reminder.IsResolved() {
		return nil
	}

	latestAttempt := reminder.LatestDeliveryAt()
	if latestAttempt == nil {
		return nil
	}

	alreadyFired := map[int]bool{}
	for _, idx := range reminder.FiredEscalationSteps {
		alreadyFired[idx] = true
	}

	type indexedStep struct {
		index int
		step  remindersTypes.EscalationStep
	}
	steps := make([]indexedStep, 0, len(reminder.Settings.Escalation.Steps))
	for i, step := range reminder.Settings.Escalation.Steps {
		steps = append(steps, indexedStep{index: i, step: step})
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].step.DelayMinutes < steps[j].step.DelayMinutes
	})

	fired := []int{}
	for _, entry := range steps {
		if alreadyFired[entry.index] {
			continue
		}
		dueAt := latestAttempt.Add(time.Duration(entry.step.DelayMinutes) * time.Minute)
		if now.Before(dueAt) {
			// later steps have longer delays, nothing else is due
			break
		}

		h.fireStep(ctx, reminder, entry.step)
		fired = append(fired, entry.index)
	}

	if len(fired) > 0 {
		reminder.FiredEscalationSteps = append(reminder.FiredEscalationSteps, fired...)
	}
	return fired
}

func (h *Handler) fireStep(ctx context.Context, reminder *remindersTypes.Reminder, step remindersTypes.EscalationStep) {
	message := step.Message
	if message == "" {
		message = reminder.Message
	}

	for _, recipient := range step.Recipients {
		for _, channel := range step.Channels {
			err := h.sender.SendDirect(ctx, channel, recipient, reminder.Title, message, reminder.Subject, reminder.Priority)
			if err != nil {
				slog.Error("Failed to send escalation message",
					slog.String("reminderID", reminder.ID.Hex()),
					slog.String("recipient", recipient),
					slog.String("channel", channel),
					slog.String("error", err.Error()))
				continue
			}
			slog.Info("Escalation message sent",
				slog.String("reminderID", reminder.ID.Hex()),
				slog.String("recipient", recipient),
				slog.String("channel", channel))
		}
	}
}
