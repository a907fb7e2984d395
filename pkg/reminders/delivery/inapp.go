package delivery

import (
	"context"
	"errors"
	"log/slog"

	reminderDB "github.com/taskflow-app/taskflow-backend/pkg/db/reminders"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const EVENT_TYPE_REMINDER_NOTIFICATION = "reminder:notification"

// InAppTransport creates a first-class notification record for the recipient
// and broadcasts a real-time event to their connected clients. The event
// publisher is an explicit capability; a failed broadcast does not fail the
// delivery since the notification record is already persisted.
type InAppTransport struct {
	instanceID     string
	reminderDB     *reminderDB.ReminderDBService
	eventPublisher EventPublisher
}

func NewInAppTransport(instanceID string, dbService *reminderDB.ReminderDBService, eventPublisher EventPublisher) *InAppTransport {
	if eventPublisher == nil {
		eventPublisher = NoopEventPublisher{}
	}
	return &InAppTransport{
		instanceID:     instanceID,
		reminderDB:     dbService,
		eventPublisher: eventPublisher,
	}
}

func (t *InAppTransport) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if t.reminderDB == nil {
		return SendResult{}, errors.New("in-app notification store not initialized")
	}

	reminderID, _ := primitive.ObjectIDFromHex(req.ReminderID)
	notification, err := t.reminderDB.CreateNotification(t.instanceID, reminderDB.Notification{
		UserID:     req.UserID,
		ReminderID: reminderID,
		Subject:    req.Subject,
		Title:      req.Title,
		Message:    req.Message,
		Priority:   req.Priority,
		MessageID:  req.MessageID,
	})
	if err != nil {
		return SendResult{}, err
	}

	err = t.eventPublisher.Publish(ctx, req.UserID, EVENT_TYPE_REMINDER_NOTIFICATION, map[string]interface{}{
		"notificationId": notification.ID.Hex(),
		"title":          req.Title,
		"message":        req.Message,
		"priority":       req.Priority,
	})
	if err != nil {
		slog.Warn("Failed to broadcast in-app notification event",
			slog.String("userID", req.UserID),
			slog.String("error", err.Error()))
	}

	return SendResult{Accepted: true, MessageID: req.MessageID}, nil
}
