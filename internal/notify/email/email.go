// Package email sends alert notifications through an HTTP email relay.
package email

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

// Sender delivers email through a relay webhook (SES/Sendgrid-style HTTP
// gateway fronted by the platform's mail relay).
type Sender struct {
	gatewayURL string
	from       string
	client     *http.Client
}

// New creates a new email sender. If gatewayURL is empty, SendEmail is a
// no-op: an unconfigured transport is not an error.
func New(gatewayURL, from string) *Sender {
	return &Sender{
		gatewayURL: gatewayURL,
		from:       from,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// SendEmail posts one message to the relay. Returns nil immediately when no
// gateway is configured.
func (s *Sender) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.gatewayURL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"from":    s.from,
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return fmt.Errorf("email: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("email: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req) //nolint:gosec // G704: gatewayURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("email: post relay: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email: relay returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
