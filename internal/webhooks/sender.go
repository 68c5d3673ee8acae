package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Sender POSTs event payloads to the configured endpoint.
type Sender struct {
	url        string
	httpClient *http.Client
}

// NewSender constructs a sender. Timeouts follow the delivery contract:
// 5s to connect, 10s for the whole exchange.
func NewSender(url string) *Sender {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &Sender{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

// URL returns the configured endpoint, empty when delivery is disabled.
func (s *Sender) URL() string {
	if s == nil {
		return ""
	}
	return s.url
}

// Send delivers one event. A non-2xx response is an error; the caller
// decides whether to drop or retry (the worker drops).
func (s *Sender) Send(ctx context.Context, evt Event) error {
	if s == nil || s.url == "" {
		return nil
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("webhooks: marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhooks: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", evt.ID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhooks: post: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhooks: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
