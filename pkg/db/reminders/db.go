package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskflow-app/taskflow-backend/pkg/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection names
const (
	COLLECTION_NAME_REMINDERS     = "reminders"
	COLLECTION_NAME_NOTIFICATIONS = "notifications"
)

type ReminderDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
	InstanceIDs     []string
}

func NewReminderDBService(configs db.DBConfig) (*ReminderDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	reminderDBSc := &ReminderDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
		InstanceIDs:     configs.InstanceIDs,
	}

	if configs.RunIndexCreation {
		if err := reminderDBSc.ensureIndexes(); err != nil {
			slog.Error("Error ensuring indexes for reminder DB: ", slog.String("error", err.Error()))
		}
	}

	return reminderDBSc, nil
}

func (dbService *ReminderDBService) getDBName(instanceID string) string {
	return dbService.DBNamePrefix + instanceID + "_reminderDB"
}

func (dbService *ReminderDBService) collectionReminders(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_REMINDERS)
}

func (dbService *ReminderDBService) collectionNotifications(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_NOTIFICATIONS)
}

func (dbService *ReminderDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *ReminderDBService) ensureIndexes() error {
	slog.Debug("Ensuring indexes for reminder DB")
	for _, instanceID := range dbService.InstanceIDs {
		ctx, cancel := dbService.getContext()
		defer cancel()

		// Reminders: due query
		_, err := dbService.collectionReminders(instanceID).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys: bson.D{
					{Key: "isActive", Value: 1},
					{Key: "status", Value: 1},
					{Key: "scheduledAt", Value: 1},
				},
			},
		)
		if err != nil {
			slog.Error("Error creating due-query index for reminders: ", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		}

		// Reminders: delivery confirmation lookup by message id
		_, err = dbService.collectionReminders(instanceID).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys: bson.D{
					{Key: "deliveries.messageId", Value: 1},
				},
			},
		)
		if err != nil {
			slog.Error("Error creating messageId index for reminders: ", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		}

		// Reminders: owner listing
		_, err = dbService.collectionReminders(instanceID).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys: bson.D{
					{Key: "ownerUserId", Value: 1},
					{Key: "scheduledAt", Value: 1},
				},
			},
		)
		if err != nil {
			slog.Error("Error creating owner index for reminders: ", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		}

		// Notifications: recipient inbox
		_, err = dbService.collectionNotifications(instanceID).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys: bson.D{
					{Key: "userId", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
		)
		if err != nil {
			slog.Error("Error creating index for notifications: ", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		}
	}

	return nil
}
