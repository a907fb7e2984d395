package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

type SMSGatewayConfig struct {
	URL     string        `json:"url" yaml:"url"`
	APIKey  string        `json:"api_key" yaml:"api_key"`
	From    string        `json:"from" yaml:"from"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// SMSTransport delivers reminders through the external sms gateway.
type SMSTransport struct {
	config *SMSGatewayConfig
}

func NewSMSTransport(config *SMSGatewayConfig) *SMSTransport {
	return &SMSTransport{config: config}
}

type smsTo struct {
	Number string `json:"number"`
}

type smsBody struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type singleSMS struct {
	AllowedChannels []string `json:"allowedChannels"`
	From            string   `json:"from"`
	To              []smsTo  `json:"to"`
	Body            smsBody  `json:"body"`
}

type smsAuth struct {
	Producttoken string `json:"producttoken"`
}

type smsSendingReq struct {
	Messages struct {
		Authentication smsAuth     `json:"authentication"`
		Msg            []singleSMS `json:"msg"`
	} `json:"messages"`
}

func (t *SMSTransport) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if t.config == nil || t.config.URL == "" {
		return SendResult{}, errors.New("connection to sms gateway not initialized")
	}

	payload := smsSendingReq{
		Messages: struct {
			Authentication smsAuth     `json:"authentication"`
			Msg            []singleSMS `json:"msg"`
		}{
			Authentication: smsAuth{
				Producttoken: t.config.APIKey,
			},
			Msg: []singleSMS{
				{
					AllowedChannels: []string{"SMS"},
					From:            t.config.From,
					To: []smsTo{
						{
							Number: req.RecipientRef,
						},
					},
					Body: smsBody{
						Type:    "auto",
						Content: req.Title + "\n" + req.Message,
					},
				},
			},
		},
	}

	json_data, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewBuffer(json_data))
	if err != nil {
		return SendResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: t.config.Timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("sms gateway returned error", slog.String("status", resp.Status))
		return SendResult{}, errors.New("sms gateway returned error")
	}

	var res map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&res)
	if err != nil {
		return SendResult{}, err
	}

	errorCode, ok := res["errorCode"].(float64)
	if !ok {
		return SendResult{}, errors.New("no error code in response")
	}
	if errorCode != 0 {
		slog.Error("sms gateway returned error", slog.Int("errorCode", int(errorCode)))
		return SendResult{Bounced: true}, errors.New("sms gateway returned error")
	}

	return SendResult{Accepted: true, MessageID: req.MessageID}, nil
}
