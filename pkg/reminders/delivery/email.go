package delivery

import (
	"context"
	"errors"

	httpclient "github.com/taskflow-app/taskflow-backend/pkg/http-client"
)

// EmailTransport delivers reminders through the smtp bridge service.
type EmailTransport struct {
	httpClient *httpclient.ClientConfig
}

func NewEmailTransport(clientConfig *httpclient.ClientConfig) *EmailTransport {
	return &EmailTransport{httpClient: clientConfig}
}

type sendEmailReq struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	Content  string   `json:"content"`
	HighPrio bool     `json:"highPrio"`
}

func (t *EmailTransport) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if t.httpClient == nil || t.httpClient.RootURL == "" {
		return SendResult{}, errors.New("connection to smtp bridge not initialized")
	}

	payload := sendEmailReq{
		To:       []string{req.RecipientRef},
		Subject:  req.Title,
		Content:  req.Message,
		HighPrio: req.Priority == "high" || req.Priority == "urgent",
	}
	resp, err := t.httpClient.RunHTTPcallWithContext(ctx, "/send-email", payload)
	if err != nil {
		return SendResult{}, err
	}
	if errMsg, hasError := resp["error"]; hasError {
		// the bridge reports gateway and smtp errors here, not recipient-level
		// rejections, so this is a plain failure rather than a bounce
		return SendResult{}, errors.New(errMsg.(string))
	}

	messageID := req.MessageID
	if id, ok := resp["messageId"].(string); ok && id != "" {
		messageID = id
	}
	return SendResult{Accepted: true, MessageID: messageID}, nil
}
