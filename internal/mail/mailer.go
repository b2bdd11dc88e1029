// Package mail implements the engine's Mailer over SMTP.
package mail

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SMTPMailer sends HTML mail through a single SMTP account.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer for the given SMTP account.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// FromEnv builds a mailer from SMTP_HOST, SMTP_PORT (default 587),
// SMTP_USERNAME, SMTP_PASSWORD and SMTP_FROM (default SMTP_USERNAME).
func FromEnv() (*SMTPMailer, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST environment variable not set")
	}

	port := 587
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT %q", raw)
		}
		port = p
	}

	username := os.Getenv("SMTP_USERNAME")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = username
	}
	if from == "" {
		return nil, fmt.Errorf("SMTP_FROM environment variable not set")
	}

	return NewSMTPMailer(host, port, username, password, from), nil
}

// Send delivers one HTML email to all recipients in a single message.
// gomail has no context support, so cancellation is only checked up front;
// a dial or send failure is returned to the caller as-is for the engine's
// per-channel failure accounting.
func (m *SMTPMailer) Send(ctx context.Context, recipients []string, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
