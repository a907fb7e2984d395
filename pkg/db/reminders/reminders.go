package reminders

import (
	"errors"
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrReminderNotClaimed is returned when a conditional claim update matched no
// document, i.e. another worker holds the lease or the reminder left the
// scheduled state in the meantime. The caller must no-op.
var ErrReminderNotClaimed = errors.New("reminder could not be claimed")

func (dbService *ReminderDBService) CreateReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = now
	}
	reminder.UpdatedAt = now
	reminder.PriorityRank = remindersTypes.PriorityRankFor(reminder.Priority)

	res, err := dbService.collectionReminders(instanceID).InsertOne(ctx, reminder)
	if err != nil {
		return reminder, err
	}
	reminder.ID = res.InsertedID.(primitive.ObjectID)
	return reminder, nil
}

func (dbService *ReminderDBService) SaveReminder(instanceID string, reminder remindersTypes.Reminder) (remindersTypes.Reminder, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if reminder.ID.IsZero() {
		return dbService.CreateReminder(instanceID, reminder)
	}

	reminder.UpdatedAt = time.Now()
	reminder.PriorityRank = remindersTypes.PriorityRankFor(reminder.Priority)

	filter := bson.M{"_id": reminder.ID}

	upsert := false
	rd := options.After
	opts := options.FindOneAndReplaceOptions{
		Upsert:         &upsert,
		ReturnDocument: &rd,
	}
	elem := remindersTypes.Reminder{}
	err := dbService.collectionReminders(instanceID).FindOneAndReplace(
		ctx, filter, reminder, &opts,
	).Decode(&elem)
	return elem, err
}

func (dbService *ReminderDBService) GetReminderByID(instanceID string, id string) (*remindersTypes.Reminder, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": _id}
	var reminder remindersTypes.Reminder
	err = dbService.collectionReminders(instanceID).FindOne(ctx, filter).Decode(&reminder)
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (dbService *ReminderDBService) GetRemindersForUser(instanceID string, userID string, onlyActive bool) ([]remindersTypes.Reminder, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"ownerUserId": userID}
	if onlyActive {
		filter["isActive"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}})
	cursor, err := dbService.collectionReminders(instanceID).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var reminders []remindersTypes.Reminder
	if err = cursor.All(ctx, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// GetDueReminders returns active scheduled reminders whose scheduledAt has
// passed and whose claim lease is free, ordered most-urgent first then
// earliest-due first.
func (dbService *ReminderDBService) GetDueReminders(instanceID string, now time.Time, limit int64) (reminders []remindersTypes.Reminder, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"isActive":    true,
		"status":      remindersTypes.REMINDER_STATUS_SCHEDULED,
		"scheduledAt": bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"claimedUntil": bson.M{"$exists": false}},
			bson.M{"claimedUntil": bson.M{"$lte": now}},
		},
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "priorityRank", Value: -1},
			{Key: "scheduledAt", Value: 1},
		})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := dbService.collectionReminders(instanceID).Find(ctx, filter, opts)
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

// ClaimReminder atomically takes the processing lease for one due reminder.
// The conditional update only matches while the reminder is still due,
// scheduled, active and unclaimed, so two concurrent sweep workers cannot
// both win.
func (dbService *ReminderDBService) ClaimReminder(instanceID string, id string, now time.Time, until time.Time) (*remindersTypes.Reminder, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":      _id,
		"isActive": true,
		"status":   remindersTypes.REMINDER_STATUS_SCHEDULED,
		// a snooze between selection and claim moves scheduledAt into the
		// future; such a reminder must not be claimable anymore
		"scheduledAt": bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"claimedUntil": bson.M{"$exists": false}},
			bson.M{"claimedUntil": bson.M{"$lte": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"claimedUntil": until,
			"updatedAt":    now,
		},
	}

	rd := options.After
	opts := options.FindOneAndUpdateOptions{
		ReturnDocument: &rd,
	}

	var reminder remindersTypes.Reminder
	err = dbService.collectionReminders(instanceID).FindOneAndUpdate(ctx, filter, update, &opts).Decode(&reminder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReminderNotClaimed
		}
		return nil, err
	}
	return &reminder, nil
}

// ReleaseReminderClaim re-arms the claim lease until recheckAt without touching
// scheduledAt or status. Used to defer condition-suppressed reminders so they
// are not re-evaluated on every sweep.
func (dbService *ReminderDBService) ReleaseReminderClaim(instanceID string, id string, recheckAt time.Time) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"claimedUntil": recheckAt,
			"updatedAt":    time.Now(),
		},
	}
	_, err = dbService.collectionReminders(instanceID).UpdateOne(ctx, bson.M{"_id": _id}, update)
	return err
}

func (dbService *ReminderDBService) MarkReminderCancelled(instanceID string, id string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"status":    remindersTypes.REMINDER_STATUS_CANCELLED,
			"isActive":  false,
			"updatedAt": time.Now(),
		},
	}
	_, err = dbService.collectionReminders(instanceID).UpdateOne(ctx, bson.M{"_id": _id}, update)
	return err
}

// CleanupExpiredReminders soft-deletes reminders past their retention
// boundary: they are cancelled and deactivated, never removed, so delivery
// history stays inspectable.
func (dbService *ReminderDBService) CleanupExpiredReminders(instanceID string, now time.Time) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"isActive":  true,
		"expiresAt": bson.M{"$gt": time.Time{}, "$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":    remindersTypes.REMINDER_STATUS_CANCELLED,
			"isActive":  false,
			"updatedAt": now,
		},
	}

	res, err := dbService.collectionReminders(instanceID).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
