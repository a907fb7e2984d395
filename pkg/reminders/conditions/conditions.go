package conditions

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

var ErrUnknownConditionType = errors.New("unknown condition type")

// EvalContext carries the system context a predicate may need to resolve a
// condition against external state.
type EvalContext struct {
	InstanceID string
	Reminder   remindersTypes.Reminder
}

// PredicateFunc resolves one condition type. Predicates are supplied by the
// host application; the engine only orchestrates evaluation order and
// combination and never interprets condition semantics itself.
type PredicateFunc func(ctx context.Context, condition remindersTypes.ReminderCondition, evalCtx EvalContext) (bool, error)

type Registry interface {
	Evaluate(ctx context.Context, condition remindersTypes.ReminderCondition, evalCtx EvalContext) (bool, error)
}

type PredicateRegistry struct {
	mu         sync.RWMutex
	predicates map[string]PredicateFunc
}

func NewPredicateRegistry() *PredicateRegistry {
	return &PredicateRegistry{
		predicates: map[string]PredicateFunc{},
	}
}

func (r *PredicateRegistry) Register(conditionType string, fn PredicateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[conditionType] = fn
}

func (r *PredicateRegistry) Evaluate(ctx context.Context, condition remindersTypes.ReminderCondition, evalCtx EvalContext) (bool, error) {
	r.mu.RLock()
	fn, ok := r.predicates[condition.Type]
	r.mu.RUnlock()
	if !ok {
		return false, ErrUnknownConditionType
	}
	return fn(ctx, condition, evalCtx)
}

// ShouldDeliver gates a reminder before dispatch. An empty condition list
// passes; all active conditions must pass (logical AND); inactive conditions
// are skipped. An evaluation error counts as "condition not met" so a broken
// predicate suppresses delivery instead of aborting the sweep.
func ShouldDeliver(ctx context.Context, registry Registry, evalCtx EvalContext) bool {
	for _, condition := range evalCtx.Reminder.Settings.Conditions {
		if !condition.Active {
			continue
		}

		passed, err := registry.Evaluate(ctx, condition, evalCtx)
		if err != nil {
			slog.Error("Failed to evaluate reminder condition, suppressing delivery",
				slog.String("reminderID", evalCtx.Reminder.ID.Hex()),
				slog.String("conditionType", condition.Type),
				slog.String("error", err.Error()))
			return false
		}
		if !passed {
			return false
		}
	}
	return true
}
