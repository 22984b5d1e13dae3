// Package sms sends alert notifications through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 10 * time.Second

// Sender delivers SMS through a carrier gateway webhook.
type Sender struct {
	gatewayURL string
	sender     string
	client     *http.Client
}

// New creates a new SMS sender. If gatewayURL is empty, SendSMS is a no-op:
// an unconfigured transport is not an error.
func New(gatewayURL, sender string) *Sender {
	return &Sender{
		gatewayURL: gatewayURL,
		sender:     sender,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// SendSMS posts one message to the gateway. Returns nil immediately when no
// gateway is configured.
func (s *Sender) SendSMS(ctx context.Context, to, body string) error {
	if s.gatewayURL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"from": s.sender,
		"to":   to,
		"body": body,
	})
	if err != nil {
		return fmt.Errorf("sms: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sms: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req) //nolint:gosec // G704: gatewayURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("sms: post gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms: gateway returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
