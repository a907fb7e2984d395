package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpclient "github.com/taskflow-app/taskflow-backend/pkg/http-client"
)

func newEmailTestServer(t *testing.T, status int, body map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
}

func TestEmailTransportSend(t *testing.T) {
	srv := newEmailTestServer(t, http.StatusOK, map[string]string{"message": "email sent"})
	defer srv.Close()

	transport := NewEmailTransport(&httpclient.ClientConfig{RootURL: srv.URL, Timeout: time.Second})
	result, err := transport.Send(context.Background(), SendRequest{
		Channel:      "email",
		RecipientRef: "user@example.com",
		Title:        "Standup",
		Message:      "Daily standup in 5 minutes",
		MessageID:    "msg-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Accepted || result.MessageID != "msg-1" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestEmailTransportGatewayErrorIsNotBounce(t *testing.T) {
	srv := newEmailTestServer(t, http.StatusInternalServerError, map[string]string{"error": "smtp connection refused"})
	defer srv.Close()

	transport := NewEmailTransport(&httpclient.ClientConfig{RootURL: srv.URL, Timeout: time.Second})
	result, err := transport.Send(context.Background(), SendRequest{
		Channel:      "email",
		RecipientRef: "user@example.com",
		Title:        "Standup",
		Message:      "Daily standup in 5 minutes",
		MessageID:    "msg-1",
	})
	if err == nil {
		t.Fatal("expected an error for a gateway failure")
	}
	if result.Accepted {
		t.Error("gateway failure must not be accepted")
	}
	// bounced is reserved for recipient-level rejections; an erroring bridge
	// is a plain failed delivery
	if result.Bounced {
		t.Error("gateway failure must not be recorded as a bounce")
	}
}
