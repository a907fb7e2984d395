package delivery

import (
	"context"
	"errors"

	httpclient "github.com/taskflow-app/taskflow-backend/pkg/http-client"
)

// PushTransport delivers reminders through the push gateway, which resolves
// the user's registered device tokens itself.
type PushTransport struct {
	httpClient *httpclient.ClientConfig
}

func NewPushTransport(clientConfig *httpclient.ClientConfig) *PushTransport {
	return &PushTransport{httpClient: clientConfig}
}

type sendPushReq struct {
	UserID   string            `json:"userId"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Priority string            `json:"priority"`
	Data     map[string]string `json:"data"`
}

func (t *PushTransport) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if t.httpClient == nil || t.httpClient.RootURL == "" {
		return SendResult{}, errors.New("connection to push gateway not initialized")
	}

	payload := sendPushReq{
		UserID:   req.RecipientRef,
		Title:    req.Title,
		Body:     req.Message,
		Priority: req.Priority,
		Data: map[string]string{
			"entityType": req.Subject.EntityType,
			"entityId":   req.Subject.EntityID,
			"reminderId": req.ReminderID,
		},
	}
	resp, err := t.httpClient.RunHTTPcallWithContext(ctx, "/send-push", payload)
	if err != nil {
		return SendResult{}, err
	}
	if errMsg, hasError := resp["error"]; hasError {
		return SendResult{}, errors.New(errMsg.(string))
	}

	messageID := req.MessageID
	if id, ok := resp["messageId"].(string); ok && id != "" {
		messageID = id
	}
	return SendResult{Accepted: true, MessageID: messageID}, nil
}
