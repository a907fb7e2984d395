package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTransport struct {
	sendErr   error
	accepted  bool
	bounced   bool
	slowdown  time.Duration
	callCount int
}

func (f *fakeTransport) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	f.callCount++
	if f.slowdown > 0 {
		select {
		case <-time.After(f.slowdown):
		case <-ctx.Done():
			return SendResult{}, ctx.Err()
		}
	}
	if f.sendErr != nil {
		return SendResult{Bounced: f.bounced}, f.sendErr
	}
	return SendResult{Accepted: f.accepted, Bounced: f.bounced, MessageID: req.MessageID}, nil
}

type denyChannelPreferences struct {
	denied string
}

func (p denyChannelPreferences) ShouldReceive(ctx context.Context, userID string, category string, channel string) bool {
	return channel != p.denied
}

func testReminder(channels ...string) remindersTypes.Reminder {
	return remindersTypes.Reminder{
		ID:          primitive.NewObjectID(),
		OwnerUserID: "user-1",
		Title:       "Standup",
		Message:     "Daily standup in 5 minutes",
		Channels:    channels,
		ScheduledAt: time.Now().Add(-time.Minute),
		Status:      remindersTypes.REMINDER_STATUS_SCHEDULED,
		Priority:    remindersTypes.REMINDER_PRIORITY_NORMAL,
	}
}

func TestDispatchAllChannelsAccepted(t *testing.T) {
	dispatcher := NewDispatcher(map[string]Transport{
		remindersTypes.CHANNEL_PUSH:  &fakeTransport{accepted: true},
		remindersTypes.CHANNEL_EMAIL: &fakeTransport{accepted: true},
	}, nil, nil, time.Second)

	reminder := testReminder(remindersTypes.CHANNEL_PUSH, remindersTypes.CHANNEL_EMAIL)
	outcome := dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if outcome.Status != remindersTypes.REMINDER_STATUS_SENT {
		t.Errorf("expected status sent, got %s", outcome.Status)
	}
	if outcome.Accepted != 2 || outcome.Failed != 0 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if len(reminder.Deliveries) != 2 {
		t.Fatalf("expected 2 delivery records, got %d", len(reminder.Deliveries))
	}
	for _, d := range reminder.Deliveries {
		if d.Status != remindersTypes.DELIVERY_STATUS_SENT {
			t.Errorf("expected delivery status sent, got %s", d.Status)
		}
		if d.MessageID == "" {
			t.Error("delivery is missing a message id")
		}
		if d.SentAt == nil {
			t.Error("delivery is missing sentAt")
		}
	}
}

func TestDispatchChannelFailureIsIsolated(t *testing.T) {
	dispatcher := NewDispatcher(map[string]Transport{
		remindersTypes.CHANNEL_PUSH:  &fakeTransport{sendErr: errors.New("gateway down")},
		remindersTypes.CHANNEL_EMAIL: &fakeTransport{accepted: true},
	}, nil, nil, time.Second)

	reminder := testReminder(remindersTypes.CHANNEL_PUSH, remindersTypes.CHANNEL_EMAIL)
	outcome := dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if outcome.Status != remindersTypes.REMINDER_STATUS_SENT {
		t.Errorf("one accepted channel should derive sent, got %s", outcome.Status)
	}
	if outcome.Accepted != 1 || outcome.Failed != 1 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if reminder.Deliveries[0].Status != remindersTypes.DELIVERY_STATUS_FAILED {
		t.Errorf("expected first delivery failed, got %s", reminder.Deliveries[0].Status)
	}
	if reminder.Deliveries[0].Error == "" {
		t.Error("failed delivery should carry the error")
	}
}

func TestDispatchAllChannelsFailed(t *testing.T) {
	dispatcher := NewDispatcher(map[string]Transport{
		remindersTypes.CHANNEL_PUSH: &fakeTransport{sendErr: errors.New("gateway down")},
		remindersTypes.CHANNEL_SMS:  &fakeTransport{accepted: false},
	}, nil, nil, time.Second)

	reminder := testReminder(remindersTypes.CHANNEL_PUSH, remindersTypes.CHANNEL_SMS)
	outcome := dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if outcome.Status != remindersTypes.REMINDER_STATUS_FAILED {
		t.Errorf("expected status failed, got %s", outcome.Status)
	}
}

func TestDispatchBouncedChannel(t *testing.T) {
	dispatcher := NewDispatcher(map[string]Transport{
		remindersTypes.CHANNEL_EMAIL: &fakeTransport{bounced: true, sendErr: errors.New("mailbox unavailable")},
	}, nil, nil, time.Second)

	reminder := testReminder(remindersTypes.CHANNEL_EMAIL)
	dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if reminder.Deliveries[0].Status != remindersTypes.DELIVERY_STATUS_BOUNCED {
		t.Errorf("expected bounced delivery, got %s", reminder.Deliveries[0].Status)
	}
}

func TestDispatchPreferenceSuppression(t *testing.T) {
	pushTransport := &fakeTransport{accepted: true}
	dispatcher := NewDispatcher(map[string]Transport{
		remindersTypes.CHANNEL_PUSH:  pushTransport,
		remindersTypes.CHANNEL_EMAIL: &fakeTransport{accepted: true},
	}, denyChannelPreferences{denied: remindersTypes.CHANNEL_PUSH}, nil, time.Second)

	reminder := testReminder(remindersTypes.CHANNEL_PUSH, remindersTypes.CHANNEL_EMAIL)
	outcome := dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if pushTransport.callCount != 0 {
		t.Error("suppressed channel must not be attempted")
	}
	if outcome.Suppressed != 1 {
		t.Errorf("expected 1 suppressed channel, got %d", outcome.Suppressed)
	}
	// no failed delivery record for the suppressed channel
	if len(reminder.Deliveries) != 1 {
		t.Fatalf("expected 1 delivery record, got %d", len(reminder.Deliveries))
	}
	if reminder.Deliveries[0].Channel != remindersTypes.CHANNEL_EMAIL {
		t.Errorf("unexpected delivery channel %s", reminder.Deliveries[0].Channel)
	}
}

func TestDispatchAllSuppressedCountsAsHandled(t *testing.T) {
	dispatcher := NewDispatcher(map[string]Transport{
		remindersTypes.CHANNEL_PUSH: &fakeTransport{accepted: true},
	}, denyChannelPreferences{denied: remindersTypes.CHANNEL_PUSH}, nil, time.Second)

	reminder := testReminder(remindersTypes.CHANNEL_PUSH)
	outcome := dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if outcome.Status != remindersTypes.REMINDER_STATUS_SENT {
		t.Errorf("fully suppressed cycle should derive sent, got %s", outcome.Status)
	}
	if len(reminder.Deliveries) != 0 {
		t.Errorf("expected no delivery records, got %d", len(reminder.Deliveries))
	}
}

func TestDispatchTimeoutIsRecordedAsFailed(t *testing.T) {
	dispatcher := NewDispatcher(map[string]Transport{
		remindersTypes.CHANNEL_WEBHOOK: &fakeTransport{accepted: true, slowdown: 200 * time.Millisecond},
	}, nil, nil, 20*time.Millisecond)

	reminder := testReminder(remindersTypes.CHANNEL_WEBHOOK)
	outcome := dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if outcome.Status != remindersTypes.REMINDER_STATUS_FAILED {
		t.Errorf("expected status failed after timeout, got %s", outcome.Status)
	}
	if reminder.Deliveries[0].Status != remindersTypes.DELIVERY_STATUS_FAILED {
		t.Errorf("timed out delivery must not stay pending, got %s", reminder.Deliveries[0].Status)
	}
}

func TestDispatchMissingTransport(t *testing.T) {
	dispatcher := NewDispatcher(map[string]Transport{}, nil, nil, time.Second)

	reminder := testReminder(remindersTypes.CHANNEL_SMS)
	outcome := dispatcher.Dispatch(context.Background(), &reminder, time.Now())

	if outcome.Status != remindersTypes.REMINDER_STATUS_FAILED {
		t.Errorf("expected status failed, got %s", outcome.Status)
	}
	if reminder.Deliveries[0].Error == "" {
		t.Error("expected error on delivery record")
	}
}
