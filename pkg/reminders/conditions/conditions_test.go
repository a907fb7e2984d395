package conditions

import (
	"context"
	"errors"
	"testing"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

func reminderWithConditions(conds ...remindersTypes.ReminderCondition) remindersTypes.Reminder {
	return remindersTypes.Reminder{
		Settings: remindersTypes.ReminderSettings{Conditions: conds},
	}
}

func TestShouldDeliver(t *testing.T) {
	registry := NewPredicateRegistry()
	registry.Register("always_true", func(ctx context.Context, c remindersTypes.ReminderCondition, e EvalContext) (bool, error) {
		return true, nil
	})
	registry.Register("always_false", func(ctx context.Context, c remindersTypes.ReminderCondition, e EvalContext) (bool, error) {
		return false, nil
	})
	registry.Register("broken", func(ctx context.Context, c remindersTypes.ReminderCondition, e EvalContext) (bool, error) {
		return true, errors.New("external lookup failed")
	})

	tests := []struct {
		name     string
		reminder remindersTypes.Reminder
		expected bool
	}{
		{
			name:     "no conditions",
			reminder: reminderWithConditions(),
			expected: true,
		},
		{
			name: "single passing condition",
			reminder: reminderWithConditions(
				remindersTypes.ReminderCondition{Type: "always_true", Active: true},
			),
			expected: true,
		},
		{
			name: "all must pass",
			reminder: reminderWithConditions(
				remindersTypes.ReminderCondition{Type: "always_true", Active: true},
				remindersTypes.ReminderCondition{Type: "always_false", Active: true},
			),
			expected: false,
		},
		{
			name: "inactive conditions are skipped",
			reminder: reminderWithConditions(
				remindersTypes.ReminderCondition{Type: "always_false", Active: false},
				remindersTypes.ReminderCondition{Type: "always_true", Active: true},
			),
			expected: true,
		},
		{
			name: "evaluator error suppresses delivery",
			reminder: reminderWithConditions(
				remindersTypes.ReminderCondition{Type: "broken", Active: true},
			),
			expected: false,
		},
		{
			name: "unknown condition type suppresses delivery",
			reminder: reminderWithConditions(
				remindersTypes.ReminderCondition{Type: "does_not_exist", Active: true},
			),
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := ShouldDeliver(context.Background(), registry, EvalContext{Reminder: test.reminder})
			if result != test.expected {
				t.Errorf("expected %v, got %v", test.expected, result)
			}
		})
	}
}
