package sweep

import (
	"context"
	"log/slog"
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

// EscalationStore is the persistence surface of the escalation pass; satisfied
// by *reminderDB.ReminderDBService.
type EscalationStore interface {
	GetRemindersForEscalation(instanceID string, now time.Time) ([]remindersTypes.Reminder, error)
	AddFiredEscalationSteps(instanceID string, id string, steps []int) error
}

// Escalator decides which escalation steps are due for one reminder; satisfied
// by *escalation.Handler.
type Escalator interface {
	Process(ctx context.Context, reminder *remindersTypes.Reminder, now time.Time) []int
}

// EscalationRunner is the batch pass over unresolved sent reminders. It runs
// separately from the due-reminder sweep since it keys off delivery
// timestamps, not scheduledAt.
type EscalationRunner struct {
	store   EscalationStore
	handler Escalator
}

func NewEscalationRunner(store EscalationStore, handler Escalator) *EscalationRunner {
	return &EscalationRunner{store: store, handler: handler}
}

// Run returns the number of escalation steps fired. Per-reminder failures are
// logged and do not stop the batch.
func (r *EscalationRunner) Run(ctx context.Context, instanceID string, now time.Time) (int, error) {
	reminders, err := r.store.GetRemindersForEscalation(instanceID, now)
	if err != nil {
		return 0, err
	}

	firedTotal := 0
	for i := range reminders {
		reminder := reminders[i]
		fired := r.handler.Process(ctx, &reminder, now)
		if len(fired) == 0 {
			continue
		}
		firedTotal += len(fired)

		if err := r.store.AddFiredEscalationSteps(instanceID, reminder.ID.Hex(), fired); err != nil {
			slog.Error("Failed to record fired escalation steps",
				slog.String("instanceID", instanceID),
				slog.String("reminderID", reminder.ID.Hex()),
				slog.String("error", err.Error()))
		}
	}
	return firedTotal, nil
}
