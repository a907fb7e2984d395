package delivery

import (
	"context"
	"errors"
	"time"

	httpclient "github.com/taskflow-app/taskflow-backend/pkg/http-client"
)

// WebhookTransport POSTs the reminder to the subscriber endpoint the user
// configured. The recipient ref is the subscriber URL.
type WebhookTransport struct {
	apiKey  string
	timeout time.Duration
}

func NewWebhookTransport(apiKey string, timeout time.Duration) *WebhookTransport {
	return &WebhookTransport{apiKey: apiKey, timeout: timeout}
}

type webhookPayload struct {
	MessageID  string `json:"messageId"`
	ReminderID string `json:"reminderId"`
	UserID     string `json:"userId"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Priority   string `json:"priority"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

func (t *WebhookTransport) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if req.RecipientRef == "" {
		return SendResult{}, errors.New("no webhook url configured for user")
	}

	client := httpclient.ClientConfig{
		RootURL: req.RecipientRef,
		APIKey:  t.apiKey,
		Timeout: t.timeout,
	}

	payload := webhookPayload{
		MessageID:  req.MessageID,
		ReminderID: req.ReminderID,
		UserID:     req.UserID,
		Title:      req.Title,
		Message:    req.Message,
		Priority:   req.Priority,
		EntityType: req.Subject.EntityType,
		EntityID:   req.Subject.EntityID,
	}
	resp, err := client.RunHTTPcallWithContext(ctx, "", payload)
	if err != nil {
		return SendResult{}, err
	}
	if errMsg, hasError := resp["error"]; hasError {
		return SendResult{}, errors.New(errMsg.(string))
	}

	return SendResult{Accepted: true, MessageID: req.MessageID}, nil
}
