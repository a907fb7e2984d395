package reminders

import (
	"testing"
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeReminderStore struct {
	reminders map[string]*remindersTypes.Reminder
}

func newFakeReminderStore(reminders ...remindersTypes.Reminder) *fakeReminderStore {
	s := &fakeReminderStore{reminders: map[string]*remindersTypes.Reminder{}}
	for i := range reminders {
		r := reminders[i]
		s.reminders[r.ID.Hex()] = &r
	}
	return s
}

func (s *fakeReminderStore) CreateReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error) {
	reminder.ID = primitive.NewObjectID()
	stored := reminder
	s.reminders[reminder.ID.Hex()] = &stored
	return reminder, nil
}

func (s *fakeReminderStore) SaveReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error) {
	stored := reminder
	s.reminders[reminder.ID.Hex()] = &stored
	return reminder, nil
}

func (s *fakeReminderStore) GetReminderByID(instanceID string, id string) (*remindersTypes.Reminder, error) {
	r, ok := s.reminders[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	found := *r
	return &found, nil
}

func (s *fakeReminderStore) GetRemindersForUser(instanceID string, userID string, onlyActive bool) ([]remindersTypes.Reminder, error) {
	result := []remindersTypes.Reminder{}
	for _, r := range s.reminders {
		if r.OwnerUserID != userID || (onlyActive && !r.IsActive) {
			continue
		}
		result = append(result, *r)
	}
	return result, nil
}

func (s *fakeReminderStore) MarkReminderCancelled(instanceID string, id string) error {
	r, ok := s.reminders[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	r.Status = remindersTypes.REMINDER_STATUS_CANCELLED
	r.IsActive = false
	return nil
}

func (s *fakeReminderStore) UpdateDeliveryStatusByMessageID(instanceID string, messageID string, newStatus string, at time.Time) error {
	for _, r := range s.reminders {
		for i := range r.Deliveries {
			if r.Deliveries[i].MessageID == messageID {
				r.Deliveries[i].Status = newStatus
				return nil
			}
		}
	}
	return mongo.ErrNoDocuments
}

func (s *fakeReminderStore) MarkDeliveryInteraction(instanceID string, messageID string, field string, at time.Time) error {
	for _, r := range s.reminders {
		for i := range r.Deliveries {
			if r.Deliveries[i].MessageID == messageID {
				return nil
			}
		}
	}
	return mongo.ErrNoDocuments
}

func (s *fakeReminderStore) CleanupExpiredReminders(instanceID string, now time.Time) (int64, error) {
	return 0, nil
}

func scheduledReminder(owner string, scheduledAt time.Time) remindersTypes.Reminder {
	return remindersTypes.Reminder{
		ID:          primitive.NewObjectID(),
		OwnerUserID: owner,
		Title:       "Water the plants",
		Channels:    []string{remindersTypes.CHANNEL_PUSH},
		ScheduledAt: scheduledAt,
		Status:      remindersTypes.REMINDER_STATUS_SCHEDULED,
		Priority:    remindersTypes.REMINDER_PRIORITY_NORMAL,
		IsActive:    true,
		SnoozeInfo:  &remindersTypes.SnoozeInfo{MaxSnoozes: 3},
	}
}

func TestValidateNewReminder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	valid := remindersTypes.Reminder{
		Title:       "Submit report",
		ScheduledAt: now.Add(time.Hour),
		Channels:    []string{remindersTypes.CHANNEL_EMAIL, remindersTypes.CHANNEL_PUSH},
	}

	testCases := []struct {
		name     string
		mutate   func(r *remindersTypes.Reminder)
		expected error
	}{
		{
			name:     "valid reminder",
			mutate:   func(r *remindersTypes.Reminder) {},
			expected: nil,
		},
		{
			name:     "missing title",
			mutate:   func(r *remindersTypes.Reminder) { r.Title = "" },
			expected: ErrTitleRequired,
		},
		{
			name:     "scheduled in the past",
			mutate:   func(r *remindersTypes.Reminder) { r.ScheduledAt = now.Add(-time.Minute) },
			expected: ErrScheduledTimeNotInFuture,
		},
		{
			name:     "scheduled exactly now",
			mutate:   func(r *remindersTypes.Reminder) { r.ScheduledAt = now },
			expected: ErrScheduledTimeNotInFuture,
		},
		{
			name:     "no channels",
			mutate:   func(r *remindersTypes.Reminder) { r.Channels = []string{} },
			expected: ErrNoChannels,
		},
		{
			name:     "unknown channel",
			mutate:   func(r *remindersTypes.Reminder) { r.Channels = []string{"carrier_pigeon"} },
			expected: ErrInvalidChannel,
		},
		{
			name:     "unknown priority",
			mutate:   func(r *remindersTypes.Reminder) { r.Priority = "extreme" },
			expected: ErrInvalidPriority,
		},
		{
			name: "valid priority",
			mutate: func(r *remindersTypes.Reminder) {
				r.Priority = remindersTypes.REMINDER_PRIORITY_URGENT
			},
			expected: nil,
		},
		{
			name: "repeat rule with unknown frequency",
			mutate: func(r *remindersTypes.Reminder) {
				r.RepeatRule = &remindersTypes.RepeatRule{Enabled: true, Frequency: "fortnightly"}
			},
			expected: ErrInvalidRepeatRule,
		},
		{
			name: "disabled repeat rule is not validated",
			mutate: func(r *remindersTypes.Reminder) {
				r.RepeatRule = &remindersTypes.RepeatRule{Enabled: false, Frequency: "fortnightly"}
			},
			expected: nil,
		},
		{
			name: "valid repeat rule",
			mutate: func(r *remindersTypes.Reminder) {
				r.RepeatRule = &remindersTypes.RepeatRule{
					Enabled:   true,
					Frequency: remindersTypes.REPEAT_FREQUENCY_WEEKLY,
					Interval:  2,
				}
			},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reminder := valid
			reminder.Channels = append([]string{}, valid.Channels...)
			tc.mutate(&reminder)

			err := ValidateNewReminder(reminder, now)
			if err != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestCreateReminderDefaults(t *testing.T) {
	store := newFakeReminderStore()
	Init(store)

	before := time.Now()
	created, err := CreateReminder("inst1", "user-1", remindersTypes.Reminder{
		Title:       "Pay rent",
		Channels:    []string{remindersTypes.CHANNEL_EMAIL},
		ScheduledAt: before.Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	if created.Status != remindersTypes.REMINDER_STATUS_SCHEDULED || !created.IsActive {
		t.Errorf("new reminder must start scheduled and active: %+v", created)
	}
	if created.Priority != remindersTypes.REMINDER_PRIORITY_NORMAL {
		t.Errorf("expected default priority normal, got %s", created.Priority)
	}
	if created.SnoozeInfo == nil || created.SnoozeInfo.MaxSnoozes != DEFAULT_MAX_SNOOZES {
		t.Errorf("expected default snooze capacity, got %+v", created.SnoozeInfo)
	}
	if created.NextOccurrence != nil {
		t.Error("non-recurring reminder must not get a next occurrence")
	}
	// the retention window starts at creation, not at the scheduled time
	if created.ExpiresAt.Before(before.Add(remindersTypes.DEFAULT_REMINDER_RETENTION)) ||
		created.ExpiresAt.After(time.Now().Add(remindersTypes.DEFAULT_REMINDER_RETENTION)) {
		t.Errorf("expiry must be retention from creation, got %s", created.ExpiresAt)
	}
}

func TestCreateRecurringReminderKeepsNextOccurrence(t *testing.T) {
	store := newFakeReminderStore()
	Init(store)

	scheduledAt := time.Now().Add(time.Hour)
	created, err := CreateReminder("inst1", "user-1", remindersTypes.Reminder{
		Title:       "Weekly review",
		Channels:    []string{remindersTypes.CHANNEL_IN_APP},
		ScheduledAt: scheduledAt,
		RepeatRule: &remindersTypes.RepeatRule{
			Enabled:   true,
			Frequency: remindersTypes.REPEAT_FREQUENCY_WEEKLY,
			Interval:  1,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if created.NextOccurrence == nil || !created.NextOccurrence.Equal(scheduledAt) {
		t.Errorf("recurring reminder must track its first occurrence: %+v", created.NextOccurrence)
	}
	if !created.ExpiresAt.IsZero() {
		t.Error("recurring reminder must not get a default expiry")
	}
}

func TestSnoozeReminderCapacity(t *testing.T) {
	reminder := scheduledReminder("user-1", time.Now().Add(time.Hour))
	store := newFakeReminderStore(reminder)
	Init(store)

	var lastScheduledAt time.Time
	for i := 1; i <= 3; i++ {
		before := time.Now()
		snoozed, err := SnoozeReminder("inst1", "user-1", reminder.ID.Hex(), 10)
		if err != nil {
			t.Fatalf("snooze %d: %v", i, err)
		}
		if snoozed.SnoozeInfo.SnoozeCount != i {
			t.Errorf("snooze %d: expected count %d, got %d", i, i, snoozed.SnoozeInfo.SnoozeCount)
		}
		if snoozed.Status != remindersTypes.REMINDER_STATUS_SCHEDULED {
			t.Errorf("snooze %d: reminder must re-enter scheduled, got %s", i, snoozed.Status)
		}
		if !snoozed.ScheduledAt.After(before) {
			t.Errorf("snooze %d: scheduledAt must move into the future, got %s", i, snoozed.ScheduledAt)
		}
		if i > 1 && snoozed.ScheduledAt.Before(lastScheduledAt) {
			t.Errorf("snooze %d: scheduledAt moved backwards: %s < %s", i, snoozed.ScheduledAt, lastScheduledAt)
		}
		lastScheduledAt = snoozed.ScheduledAt
	}

	_, err := SnoozeReminder("inst1", "user-1", reminder.ID.Hex(), 10)
	if err != ErrSnoozeLimitReached {
		t.Fatalf("expected ErrSnoozeLimitReached, got %v", err)
	}

	// the rejected snooze must leave the reminder untouched
	stored, _ := store.GetReminderByID("inst1", reminder.ID.Hex())
	if stored.SnoozeInfo.SnoozeCount != 3 {
		t.Errorf("rejected snooze must not change the count, got %d", stored.SnoozeInfo.SnoozeCount)
	}
	if !stored.ScheduledAt.Equal(lastScheduledAt) {
		t.Errorf("rejected snooze must not move scheduledAt: %s", stored.ScheduledAt)
	}
}

func TestSnoozeReminderInvalidState(t *testing.T) {
	reminder := scheduledReminder("user-1", time.Now().Add(-time.Hour))
	reminder.Status = remindersTypes.REMINDER_STATUS_SENT
	store := newFakeReminderStore(reminder)
	Init(store)

	_, err := SnoozeReminder("inst1", "user-1", reminder.ID.Hex(), 10)
	if err != ErrInvalidStatusTransition {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestSnoozeReminderWrongOwner(t *testing.T) {
	reminder := scheduledReminder("user-1", time.Now().Add(time.Hour))
	store := newFakeReminderStore(reminder)
	Init(store)

	_, err := SnoozeReminder("inst1", "user-2", reminder.ID.Hex(), 10)
	if err != ErrReminderNotFound {
		t.Fatalf("expected ErrReminderNotFound, got %v", err)
	}
}
