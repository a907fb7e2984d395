package delivery

import (
	"context"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
)

const PREFERENCE_CATEGORY_REMINDERS = "reminders"

// SendRequest is the channel-agnostic payload handed to a transport.
type SendRequest struct {
	Channel      string
	RecipientRef string
	UserID       string
	Title        string
	Message      string
	Subject      remindersTypes.ReminderSubject
	Priority     string
	ReminderID   string
	MessageID    string
}

type SendResult struct {
	Accepted  bool
	Bounced   bool
	MessageID string
}

// Transport sends one message over one channel. Implementations wrap the
// external gateways (smtp bridge, sms gateway, push gateway, webhook
// subscribers, in-app notification store).
type Transport interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// PreferenceChecker is consulted before attempting a channel send; a
// suppressed channel records no delivery attempt at all.
type PreferenceChecker interface {
	ShouldReceive(ctx context.Context, userID string, category string, channel string) bool
}

// AllowAllPreferences is the default when the host application does not
// provide an opt-out lookup.
type AllowAllPreferences struct{}

func (AllowAllPreferences) ShouldReceive(ctx context.Context, userID string, category string, channel string) bool {
	return true
}

// RecipientDirectory resolves a user id into the channel-specific recipient
// reference (email address, phone number, device token set, webhook URL).
type RecipientDirectory interface {
	RecipientRef(ctx context.Context, userID string, channel string) (string, error)
}

// UserIDDirectory passes the user id through unchanged, for gateways that
// resolve recipients themselves.
type UserIDDirectory struct{}

func (UserIDDirectory) RecipientRef(ctx context.Context, userID string, channel string) (string, error) {
	return userID, nil
}

// EventPublisher broadcasts a real-time event to the recipient's connected
// clients. It is passed in explicitly; transports never reach a process-wide
// hub.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, eventType string, payload map[string]interface{}) error
}

type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(ctx context.Context, userID string, eventType string, payload map[string]interface{}) error {
	return nil
}
