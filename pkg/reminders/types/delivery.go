package types

import "time"

// delivery channels
const (
	CHANNEL_PUSH    = "push"
	CHANNEL_EMAIL   = "email"
	CHANNEL_SMS     = "sms"
	CHANNEL_IN_APP  = "in_app"
	CHANNEL_WEBHOOK = "webhook"
)

// delivery attempt status values
const (
	DELIVERY_STATUS_PENDING   = "pending"
	DELIVERY_STATUS_SENT      = "sent"
	DELIVERY_STATUS_DELIVERED = "delivered"
	DELIVERY_STATUS_FAILED    = "failed"
	DELIVERY_STATUS_BOUNCED   = "bounced"
)

// Delivery is one attempt of sending a reminder over one channel. Entries are
// append-only; an existing entry's status may only move forward
// (pending -> sent -> delivered|failed|bounced).
type Delivery struct {
	ScheduledAt time.Time  `bson:"scheduledAt" json:"scheduledAt"`
	SentAt      *time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	Channel     string     `bson:"channel" json:"channel"`
	Status      string     `bson:"status" json:"status"`
	Error       string     `bson:"error,omitempty" json:"error,omitempty"`
	MessageID   string     `bson:"messageId,omitempty" json:"messageId,omitempty"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `bson:"readAt,omitempty" json:"readAt,omitempty"`
	ClickedAt   *time.Time `bson:"clickedAt,omitempty" json:"clickedAt,omitempty"`
}

func IsValidChannel(channel string) bool {
	switch channel {
	case CHANNEL_PUSH, CHANNEL_EMAIL, CHANNEL_SMS, CHANNEL_IN_APP, CHANNEL_WEBHOOK:
		return true
	}
	return false
}

// CanDeliveryStatusAdvance reports whether a delivery status update moves
// forward; backwards updates are rejected so late callbacks cannot regress a
// confirmed delivery.
func CanDeliveryStatusAdvance(current string, next string) bool {
	rank := func(s string) int {
		switch s {
		case DELIVERY_STATUS_PENDING:
			return 1
		case DELIVERY_STATUS_SENT:
			return 2
		case DELIVERY_STATUS_DELIVERED, DELIVERY_STATUS_FAILED, DELIVERY_STATUS_BOUNCED:
			return 3
		default:
			return 0
		}
	}
	return rank(next) > rank(current)
}
