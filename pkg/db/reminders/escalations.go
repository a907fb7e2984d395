package reminders

import (
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetRemindersForEscalation returns sent reminders with escalation enabled
// that have not been confirmed delivered yet.
func (dbService *ReminderDBService) GetRemindersForEscalation(instanceID string, now time.Time) (reminders []remindersTypes.Reminder, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"status":                      remindersTypes.REMINDER_STATUS_SENT,
		"settings.escalation.enabled": true,
	}

	cur, err := dbService.collectionReminders(instanceID).Find(ctx, filter)
	if err != nil {
		return reminders, err
	}
	defer cur.Close(ctx)

	reminders = []remindersTypes.Reminder{}
	for cur.Next(ctx) {
		var result remindersTypes.Reminder
		err := cur.Decode(&result)
		if err != nil {
			return reminders, err
		}

		reminders = append(reminders, result)
	}
	if err := cur.Err(); err != nil {
		return reminders, err
	}

	return reminders, nil
}

// AddFiredEscalationSteps records escalation bookkeeping without replacing the
// whole document, so it cannot clobber concurrent delivery confirmations.
func (dbService *ReminderDBService) AddFiredEscalationSteps(instanceID string, id string, steps []int) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	update := bson.M{
		"$push": bson.M{
			"firedEscalationSteps": bson.M{"$each": steps},
		},
		"$set": bson.M{
			"updatedAt": time.Now(),
		},
	}
	_, err = dbService.collectionReminders(instanceID).UpdateOne(ctx, bson.M{"_id": _id}, update)
	return err
}
