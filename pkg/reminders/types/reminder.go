package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// reminder status values
const (
	REMINDER_STATUS_SCHEDULED = "scheduled"
	REMINDER_STATUS_SENT      = "sent"
	REMINDER_STATUS_DELIVERED = "delivered"
	REMINDER_STATUS_FAILED    = "failed"
	REMINDER_STATUS_CANCELLED = "cancelled"
	REMINDER_STATUS_SNOOZED   = "snoozed"
)

// reminder priority values
const (
	REMINDER_PRIORITY_LOW    = "low"
	REMINDER_PRIORITY_NORMAL = "normal"
	REMINDER_PRIORITY_HIGH   = "high"
	REMINDER_PRIORITY_URGENT = "urgent"
)

// subject entity types a reminder can point at
const (
	REMINDER_SUBJECT_TYPE_TASK      = "task"
	REMINDER_SUBJECT_TYPE_SPACE     = "space"
	REMINDER_SUBJECT_TYPE_COMMENT   = "comment"
	REMINDER_SUBJECT_TYPE_CHECKLIST = "checklist"
	REMINDER_SUBJECT_TYPE_BOARD     = "board"
	REMINDER_SUBJECT_TYPE_USER      = "user"
)

const DEFAULT_REMINDER_RETENTION = 365 * 24 * time.Hour

type Reminder struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerUserID string             `bson:"ownerUserId" json:"ownerUserId"`
	Subject     ReminderSubject    `bson:"subject" json:"subject"`
	Title       string             `bson:"title" json:"title"`
	Message     string             `bson:"message" json:"message"`
	Channels    []string           `bson:"channels" json:"channels"`
	ScheduledAt time.Time          `bson:"scheduledAt" json:"scheduledAt"`
	Timezone    string             `bson:"timezone" json:"timezone"`
	RepeatRule  *RepeatRule        `bson:"repeatRule,omitempty" json:"repeatRule,omitempty"`
	Status      string             `bson:"status" json:"status"`
	Priority    string             `bson:"priority" json:"priority"`
	// priorityRank mirrors Priority as a sortable number so the due query
	// can order directly in the database.
	PriorityRank int              `bson:"priorityRank" json:"-"`
	Deliveries   []Delivery       `bson:"deliveries" json:"deliveries"`
	SnoozeInfo   *SnoozeInfo      `bson:"snoozeInfo,omitempty" json:"snoozeInfo,omitempty"`
	Settings     ReminderSettings `bson:"settings" json:"settings"`
	IsActive     bool             `bson:"isActive" json:"isActive"`

	NextOccurrence  *time.Time `bson:"nextOccurrence,omitempty" json:"nextOccurrence,omitempty"`
	LastTriggeredAt *time.Time `bson:"lastTriggeredAt,omitempty" json:"lastTriggeredAt,omitempty"`
	TriggerCount    int        `bson:"triggerCount" json:"triggerCount"`

	// FiredEscalationSteps tracks which escalation steps already ran for the
	// current trigger cycle; reset whenever the reminder fires again.
	FiredEscalationSteps []int `bson:"firedEscalationSteps,omitempty" json:"-"`

	// ClaimedUntil is the sweep worker lease; a reminder is only claimable
	// while this is unset or in the past.
	ClaimedUntil time.Time `bson:"claimedUntil,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
	ExpiresAt time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

type ReminderSubject struct {
	EntityType string `bson:"entityType" json:"entityType"`
	EntityID   string `bson:"entityId" json:"entityId"`
}

type SnoozeInfo struct {
	SnoozedAt    time.Time `bson:"snoozedAt" json:"snoozedAt"`
	SnoozedUntil time.Time `bson:"snoozedUntil" json:"snoozedUntil"`
	SnoozeCount  int       `bson:"snoozeCount" json:"snoozeCount"`
	MaxSnoozes   int       `bson:"maxSnoozes" json:"maxSnoozes"`
}

func PriorityRankFor(priority string) int {
	switch priority {
	case REMINDER_PRIORITY_URGENT:
		return 4
	case REMINDER_PRIORITY_HIGH:
		return 3
	case REMINDER_PRIORITY_NORMAL:
		return 2
	case REMINDER_PRIORITY_LOW:
		return 1
	default:
		return 0
	}
}

func IsValidPriority(priority string) bool {
	return PriorityRankFor(priority) > 0
}

// CanTransitionTo encodes the reminder state machine. Snoozed is transient and
// always re-enters scheduled; cancelled is terminal.
func (r Reminder) CanTransitionTo(newStatus string) bool {
	switch r.Status {
	case REMINDER_STATUS_SCHEDULED:
		switch newStatus {
		case REMINDER_STATUS_SENT, REMINDER_STATUS_FAILED, REMINDER_STATUS_DELIVERED,
			REMINDER_STATUS_SNOOZED, REMINDER_STATUS_CANCELLED:
			return true
		}
	case REMINDER_STATUS_SNOOZED:
		switch newStatus {
		case REMINDER_STATUS_SCHEDULED, REMINDER_STATUS_CANCELLED:
			return true
		}
	case REMINDER_STATUS_SENT:
		return newStatus == REMINDER_STATUS_DELIVERED
	}
	return false
}

// IsResolved reports whether any channel confirmed receipt or the user
// interacted with a delivery, which stops escalation.
func (r Reminder) IsResolved() bool {
	if r.Status == REMINDER_STATUS_DELIVERED || r.Status == REMINDER_STATUS_CANCELLED {
		return true
	}
	for _, d := range r.Deliveries {
		if d.Status == DELIVERY_STATUS_DELIVERED || d.ReadAt != nil || d.ClickedAt != nil {
			return true
		}
	}
	return false
}

// LatestDeliveryAt returns the sent time of the most recent delivery attempt.
func (r Reminder) LatestDeliveryAt() *time.Time {
	var latest *time.Time
	for i := range r.Deliveries {
		sentAt := r.Deliveries[i].SentAt
		if sentAt == nil {
			continue
		}
		if latest == nil || sentAt.After(*latest) {
			latest = sentAt
		}
	}
	return latest
}

// CloneForNextOccurrence creates the successor instance for a recurring
// reminder. The predecessor stays untouched as an audit record; the clone
// starts a fresh cycle with empty delivery history.
func (r Reminder) CloneForNextOccurrence(nextAt time.Time, now time.Time) Reminder {
	clone := Reminder{
		OwnerUserID:  r.OwnerUserID,
		Subject:      r.Subject,
		Title:        r.Title,
		Message:      r.Message,
		Channels:     append([]string{}, r.Channels...),
		ScheduledAt:  nextAt,
		Timezone:     r.Timezone,
		Status:       REMINDER_STATUS_SCHEDULED,
		Priority:     r.Priority,
		PriorityRank: r.PriorityRank,
		Deliveries:   []Delivery{},
		Settings:     r.Settings,
		IsActive:     true,
		TriggerCount: r.TriggerCount,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    r.ExpiresAt,
	}
	if r.RepeatRule != nil {
		ruleCopy := *r.RepeatRule
		clone.RepeatRule = &ruleCopy
	}
	if r.SnoozeInfo != nil {
		clone.SnoozeInfo = &SnoozeInfo{MaxSnoozes: r.SnoozeInfo.MaxSnoozes}
	}
	return clone
}
