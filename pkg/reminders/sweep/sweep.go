package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	reminderDB "github.com/taskflow-app/taskflow-backend/pkg/db/reminders"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/conditions"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/delivery"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders/recurrence"
	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

const (
	DEFAULT_BATCH_SIZE              = 100
	DEFAULT_WORKER_COUNT            = 5
	DEFAULT_CLAIM_DURATION          = 5 * time.Minute
	DEFAULT_CONDITION_RECHECK_DELAY = 15 * time.Minute
)

// Store is the persistence surface the sweep needs; satisfied by
// *reminderDB.ReminderDBService.
type Store interface {
	GetDueReminders(instanceID string, now time.Time, limit int64) ([]remindersTypes.Reminder, error)
	ClaimReminder(instanceID string, id string, now time.Time, until time.Time) (*remindersTypes.Reminder, error)
	ReleaseReminderClaim(instanceID string, id string, recheckAt time.Time) error
	SaveReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error)
	CreateReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error)
	GetReminderByID(instanceID string, id string) (*remindersTypes.Reminder, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, reminder *remindersTypes.Reminder, now time.Time) delivery.Outcome
}

type Config struct {
	BatchSize   int64
	WorkerCount int
	// ClaimDuration is the processing lease taken on each claimed reminder.
	ClaimDuration time.Duration
	// ConditionRecheckDelay defers a condition-suppressed reminder before the
	// sweep reconsiders it, instead of re-evaluating every cycle.
	ConditionRecheckDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DEFAULT_BATCH_SIZE
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = DEFAULT_WORKER_COUNT
	}
	if c.ClaimDuration <= 0 {
		c.ClaimDuration = DEFAULT_CLAIM_DURATION
	}
	if c.ConditionRecheckDelay <= 0 {
		c.ConditionRecheckDelay = DEFAULT_CONDITION_RECHECK_DELAY
	}
	return c
}

type Failure struct {
	ReminderID string `json:"reminderId"`
	Error      string `json:"error"`
}

type Summary struct {
	ProcessedCount int       `json:"processedCount"`
	SkippedCount   int       `json:"skippedCount"`
	Failures       []Failure `json:"failures"`
}

type Sweep struct {
	store      Store
	dispatcher Dispatcher
	registry   conditions.Registry
	config     Config
}

func New(store Store, dispatcher Dispatcher, registry conditions.Registry, config Config) *Sweep {
	return &Sweep{
		store:      store,
		dispatcher: dispatcher,
		registry:   registry,
		config:     config.withDefaults(),
	}
}

// RunSweep claims and processes all due reminders for one instance. Reminders
// are selected most-urgent, earliest-due first; under concurrent workers only
// selection order is guaranteed, not completion order. A failing reminder
// never aborts the batch: its error lands in the summary and the remaining
// reminders are still processed.
func (s *Sweep) RunSweep(ctx context.Context, instanceID string, now time.Time) (Summary, error) {
	start := time.Now()
	sweepRunsTotal.WithLabelValues(instanceID).Inc()
	defer func() {
		sweepDurationSeconds.WithLabelValues(instanceID).Observe(time.Since(start).Seconds())
	}()

	summary := Summary{Failures: []Failure{}}

	dueReminders, err := s.store.GetDueReminders(instanceID, now, s.config.BatchSize)
	if err != nil {
		return summary, err
	}
	if len(dueReminders) == 0 {
		return summary, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan remindersTypes.Reminder)

	for i := 0; i < s.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for reminder := range jobs {
				result, failure := s.processReminderSafe(ctx, instanceID, reminder, now)

				mu.Lock()
				switch result {
				case metricResultSkipped:
					summary.SkippedCount++
				case metricResultSent, metricResultFailed:
					summary.ProcessedCount++
				case metricResultError:
					summary.Failures = append(summary.Failures, *failure)
				}
				mu.Unlock()
				remindersProcessedTotal.WithLabelValues(instanceID, result).Inc()
			}
		}()
	}

	for _, reminder := range dueReminders {
		jobs <- reminder
	}
	close(jobs)
	wg.Wait()

	slog.Info("Sweep finished",
		slog.String("instanceID", instanceID),
		slog.Int("processed", summary.ProcessedCount),
		slog.Int("skipped", summary.SkippedCount),
		slog.Int("failures", len(summary.Failures)),
		slog.String("duration", time.Since(start).String()))
	return summary, nil
}

// processReminderSafe isolates panics and errors of one reminder from the rest
// of the batch.
func (s *Sweep) processReminderSafe(ctx context.Context, instanceID string, reminder remindersTypes.Reminder, now time.Time) (result string, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered panic while processing reminder",
				slog.String("instanceID", instanceID),
				slog.String("reminderID", reminder.ID.Hex()),
				slog.Any("panic", r))
			result = metricResultError
			failure = &Failure{ReminderID: reminder.ID.Hex(), Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	result, err := s.processReminder(ctx, instanceID, reminder, now)
	if err != nil {
		slog.Error("Failed to process due reminder",
			slog.String("instanceID", instanceID),
			slog.String("reminderID", reminder.ID.Hex()),
			slog.String("error", err.Error()))
		return metricResultError, &Failure{ReminderID: reminder.ID.Hex(), Error: err.Error()}
	}
	return result, nil
}

func (s *Sweep) processReminder(ctx context.Context, instanceID string, due remindersTypes.Reminder, now time.Time) (string, error) {
	claimed, err := s.store.ClaimReminder(instanceID, due.ID.Hex(), now, now.Add(s.config.ClaimDuration))
	if err != nil {
		if errors.Is(err, reminderDB.ErrReminderNotClaimed) {
			// another worker won the claim or the reminder left the
			// scheduled state; nothing to do
			return metricResultSkipped, nil
		}
		return "", err
	}
	reminder := *claimed

	if !conditions.ShouldDeliver(ctx, s.registry, conditions.EvalContext{InstanceID: instanceID, Reminder: reminder}) {
		recheckAt := now.Add(s.config.ConditionRecheckDelay)
		if err := s.store.ReleaseReminderClaim(instanceID, reminder.ID.Hex(), recheckAt); err != nil {
			return "", err
		}
		slog.Debug("Reminder suppressed by conditions, deferred",
			slog.String("instanceID", instanceID),
			slog.String("reminderID", reminder.ID.Hex()),
			slog.Time("recheckAt", recheckAt))
		return metricResultSkipped, nil
	}

	outcome := s.dispatcher.Dispatch(ctx, &reminder, now)

	reminder.Status = outcome.Status
	reminder.TriggerCount++
	reminder.LastTriggeredAt = &now
	reminder.FiredEscalationSteps = nil
	reminder.ClaimedUntil = time.Time{}

	cancelledMidCycle := s.wasCancelledMidCycle(instanceID, reminder.ID.Hex())
	if cancelledMidCycle {
		// a concurrent dismiss wins; keep the delivery records but preserve
		// the terminal state
		reminder.Status = remindersTypes.REMINDER_STATUS_CANCELLED
		reminder.IsActive = false
	}

	var successor *remindersTypes.Reminder
	if reminder.RepeatRule != nil && reminder.RepeatRule.Enabled && !cancelledMidCycle {
		next, ok := recurrence.Next(reminder.RepeatRule, reminder.ScheduledAt, reminder.TriggerCount)
		if ok {
			reminder.NextOccurrence = &next
			clone := reminder.CloneForNextOccurrence(next, now)
			successor = &clone
		} else {
			// recurrence exhausted; this instance becomes the final record
			reminder.NextOccurrence = nil
			reminder.IsActive = false
		}
	}

	if err := s.saveWithRetry(instanceID, reminder); err != nil {
		// the stored document is untouched, the reminder stays scheduled and
		// is naturally retried on the next sweep
		return "", err
	}

	if successor != nil {
		// the predecessor is already persisted as resolved at this point, so a
		// lost successor would end the recurrence chain; retry like the save
		if err := s.createWithRetry(instanceID, *successor); err != nil {
			return "", fmt.Errorf("failed to create recurrence successor: %w", err)
		}
	}

	if outcome.Status == remindersTypes.REMINDER_STATUS_FAILED {
		return metricResultFailed, nil
	}
	return metricResultSent, nil
}

func (s *Sweep) wasCancelledMidCycle(instanceID string, id string) bool {
	fresh, err := s.store.GetReminderByID(instanceID, id)
	if err != nil {
		return false
	}
	return fresh.Status == remindersTypes.REMINDER_STATUS_CANCELLED || !fresh.IsActive
}

// saveWithRetry retries a failed store write once within the sweep cycle.
func (s *Sweep) saveWithRetry(instanceID string, reminder remindersTypes.Reminder) error {
	_, err := s.store.SaveReminder(instanceID, reminder)
	if err == nil {
		return nil
	}
	slog.Warn("Retrying reminder save",
		slog.String("instanceID", instanceID),
		slog.String("reminderID", reminder.ID.Hex()),
		slog.String("error", err.Error()))
	_, err = s.store.SaveReminder(instanceID, reminder)
	return err
}

// createWithRetry retries a failed successor insert once within the sweep
// cycle.
func (s *Sweep) createWithRetry(instanceID string, reminder remindersTypes.Reminder) error {
	_, err := s.store.CreateReminder(instanceID, reminder)
	if err == nil {
		return nil
	}
	slog.Warn("Retrying recurrence successor creation",
		slog.String("instanceID", instanceID),
		slog.String("ownerUserID", reminder.OwnerUserID),
		slog.Time("scheduledAt", reminder.ScheduledAt),
		slog.String("error", err.Error()))
	_, err = s.store.CreateReminder(instanceID, reminder)
	return err
}
