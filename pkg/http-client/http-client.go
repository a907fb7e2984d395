package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskflow-app/taskflow-backend/pkg/apihelpers"
)

type ClientConfig struct {
	RootURL              string
	APIKey               string
	mTLSCertificatePaths *apihelpers.CertificatePaths
	Timeout              time.Duration
}

func (cConfig ClientConfig) RunHTTPcall(pathname string, payload interface{}) (map[string]interface{}, error) {
	return cConfig.RunHTTPcallWithContext(context.Background(), pathname, payload)
}

// RunHTTPcallWithContext lets callers bound the call with their own context on
// top of the client timeout, e.g. the per-channel transport deadline.
func (cConfig ClientConfig) RunHTTPcallWithContext(ctx context.Context, pathname string, payload interface{}) (map[string]interface{}, error) {
	json_data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	transport, err := getTransportWithMTLSConfig(cConfig.mTLSCertificatePaths)
	if err != nil {
		slog.Error("Error creating transport with mTLS config", slog.String("error", err.Error()))
		return nil, err
	}

	client := &http.Client{
		Timeout: cConfig.Timeout,
	}
	if transport != nil {
		client.Transport = transport
	}

	url := cConfig.RootURL + pathname
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(json_data))
	if err != nil {
		slog.Error("unexpected error in preparing http request", slog.String("error", err.Error()))
		return nil, err
	}
	if cConfig.APIKey != "" {
		req.Header.Set("Api-Key", cConfig.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		slog.Error("unexpected error in http call", slog.String("error", err.Error()))
		return nil, err
	}
	defer resp.Body.Close()

	var res map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&res)
	if err != nil {
		slog.Error("Error decoding response", slog.String("error", err.Error()))
		return nil, err
	}
	return res, nil
}

func getTransportWithMTLSConfig(mTLSCertificatePaths *apihelpers.CertificatePaths) (*http.Transport, error) {
	if mTLSCertificatePaths == nil {
		return nil, nil
	}

	tlsConfig, err := apihelpers.LoadTLSConfig(*mTLSCertificatePaths)
	if err != nil {
		return nil, err
	}

	return &http.Transport{
		TLSClientConfig: tlsConfig,
	}, nil
}
