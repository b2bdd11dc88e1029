// Package sms implements the engine's SMSSender against a configurable HTTP
// gateway. The gateway URL and the names of its message/receiver parameters
// come from the SMS gateway settings record.
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"service-workorder/internal/core"
)

// Sender posts one gateway request per recipient.
type Sender struct {
	cfg    core.SMSGatewaySettings
	client *http.Client
}

func NewSender(cfg core.SMSGatewaySettings) *Sender {
	return &Sender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send delivers the message to every recipient. The gateway configuration is
// validated first so a misconfigured deployment fails with a field-by-field
// message rather than a malformed request. The first transport failure
// aborts the remaining recipients and is returned to the caller.
func (s *Sender) Send(ctx context.Context, recipients []string, message string) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	for _, recipient := range recipients {
		if err := s.sendOne(ctx, recipient, message); err != nil {
			return fmt.Errorf("send SMS to %s: %w", recipient, err)
		}
	}
	return nil
}

func (s *Sender) sendOne(ctx context.Context, recipient, message string) error {
	u, err := url.Parse(s.cfg.GatewayURL)
	if err != nil {
		return fmt.Errorf("invalid gateway URL: %w", err)
	}

	q := u.Query()
	q.Set(s.cfg.MessageParameter, message)
	q.Set(s.cfg.ReceiverParameter, recipient)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
