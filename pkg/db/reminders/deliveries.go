package reminders

import (
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetReminderByMessageID finds the reminder owning a delivery attempt with the
// given message id, for out-of-band channel confirmations.
func (dbService *ReminderDBService) GetReminderByMessageID(instanceID string, messageID string) (*remindersTypes.Reminder, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"deliveries.messageId": messageID}
	var reminder remindersTypes.Reminder
	err := dbService.collectionReminders(instanceID).FindOne(ctx, filter).Decode(&reminder)
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

// UpdateDeliveryStatusByMessageID advances the status of the matching delivery
// attempt. The filter requires the current status to be behind the new one, so
// stale callbacks can never move a delivery backwards.
func (dbService *ReminderDBService) UpdateDeliveryStatusByMessageID(instanceID string, messageID string, newStatus string, at time.Time) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	allowedCurrent := []string{remindersTypes.DELIVERY_STATUS_PENDING, remindersTypes.DELIVERY_STATUS_SENT}

	set := bson.M{
		"deliveries.$[attempt].status": newStatus,
		"updatedAt":                    time.Now(),
	}
	if newStatus == remindersTypes.DELIVERY_STATUS_DELIVERED {
		set["deliveries.$[attempt].deliveredAt"] = at
		// delivered is sticky at the reminder level
		set["status"] = remindersTypes.REMINDER_STATUS_DELIVERED
	}

	update := bson.M{"$set": set}

	arrayFilters := options.ArrayFilters{
		Filters: bson.A{
			bson.M{
				"attempt.messageId": messageID,
				"attempt.status":    bson.M{"$in": allowedCurrent},
			},
		},
	}
	opts := options.Update().SetArrayFilters(arrayFilters)

	filter := bson.M{"deliveries.messageId": messageID}
	res, err := dbService.collectionReminders(instanceID).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkDeliveryInteraction records a read or click timestamp on the matching
// delivery attempt.
func (dbService *ReminderDBService) MarkDeliveryInteraction(instanceID string, messageID string, field string, at time.Time) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"deliveries.$[attempt]." + field: at,
			"updatedAt":                      time.Now(),
		},
	}
	arrayFilters := options.ArrayFilters{
		Filters: bson.A{
			bson.M{"attempt.messageId": messageID},
		},
	}
	opts := options.Update().SetArrayFilters(arrayFilters)

	filter := bson.M{"deliveries.messageId": messageID}
	res, err := dbService.collectionReminders(instanceID).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Notification is the first-class in-app record created for the in_app
// channel; the host application's inbox reads from this collection.
type Notification struct {
	ID         primitive.ObjectID             `bson:"_id,omitempty" json:"id"`
	UserID     string                         `bson:"userId" json:"userId"`
	ReminderID primitive.ObjectID             `bson:"reminderId" json:"reminderId"`
	Subject    remindersTypes.ReminderSubject `bson:"subject" json:"subject"`
	Title      string                         `bson:"title" json:"title"`
	Message    string                         `bson:"message" json:"message"`
	Priority   string                         `bson:"priority" json:"priority"`
	MessageID  string                         `bson:"messageId" json:"messageId"`
	IsRead     bool                           `bson:"isRead" json:"isRead"`
	CreatedAt  time.Time                      `bson:"createdAt" json:"createdAt"`
}

func (dbService *ReminderDBService) CreateNotification(instanceID string, notification Notification) (Notification, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	res, err := dbService.collectionNotifications(instanceID).InsertOne(ctx, notification)
	if err != nil {
		return notification, err
	}
	notification.ID = res.InsertedID.(primitive.ObjectID)
	return notification, nil
}
