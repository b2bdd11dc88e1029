package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SMSGatewaySettings configures the outbound SMS gateway. The gateway is a
// plain HTTP API whose message/receiver parameter names differ per provider,
// so both are user-configured.
type SMSGatewaySettings struct {
	GatewayURL        string `json:"gateway_url"`
	MessageParameter  string `json:"message_parameter"`
	ReceiverParameter string `json:"receiver_parameter"`
}

// Validate reports an incomplete gateway configuration with a message
// listing every missing field by its display label.
func (g SMSGatewaySettings) Validate() error {
	if g == (SMSGatewaySettings{}) {
		return errors.New("SMS settings are not configured: update SMS settings before sending")
	}

	var missing []string
	if strings.TrimSpace(g.GatewayURL) == "" {
		missing = append(missing, "SMS Gateway URL")
	}
	if strings.TrimSpace(g.MessageParameter) == "" {
		missing = append(missing, "Message Parameter")
	}
	if strings.TrimSpace(g.ReceiverParameter) == "" {
		missing = append(missing, "Receiver Parameter")
	}
	if len(missing) > 0 {
		return fmt.Errorf("SMS settings is missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SettingsService loads the global alert and SMS gateway configuration.
// Both live in single-row tables owned by the ERP; the entry point fetches
// them once per run and hands values to the engine.
type SettingsService interface {
	Load(ctx context.Context) (AlertSettings, error)
	LoadSMSGateway(ctx context.Context) (SMSGatewaySettings, error)
}

type settingsService struct {
	pool *pgxpool.Pool
}

func NewSettingsService(pool *pgxpool.Pool) SettingsService {
	return &settingsService{pool: pool}
}

func (s *settingsService) Load(ctx context.Context) (AlertSettings, error) {
	var out AlertSettings
	err := s.pool.QueryRow(ctx, `
		SELECT enable_email, enable_sms, consolidate_admin_email,
		       COALESCE(default_admin_email, ''), COALESCE(cc_emails, ''),
		       COALESCE(default_admin_mobile, ''), COALESCE(cc_mobiles, ''),
		       COALESCE(sms_signature, ''),
		       COALESCE(uid_min_length, 0), COALESCE(uid_max_length, 0)
		FROM alert_settings
		LIMIT 1
	`).Scan(
		&out.EnableEmail, &out.EnableSMS, &out.ConsolidateAdminEmail,
		&out.DefaultAdminEmail, &out.CCEmails,
		&out.DefaultAdminMobile, &out.CCMobiles,
		&out.SMSSignature,
		&out.UIDMinLength, &out.UIDMaxLength,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// a missing row behaves like everything disabled
			return AlertSettings{}, nil
		}
		return AlertSettings{}, fmt.Errorf("load alert settings: %w", err)
	}
	if err := NormalizeUIDLengths(&out); err != nil {
		return AlertSettings{}, err
	}
	return out, nil
}

func (s *settingsService) LoadSMSGateway(ctx context.Context) (SMSGatewaySettings, error) {
	var out SMSGatewaySettings
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(gateway_url, ''), COALESCE(message_parameter, ''), COALESCE(receiver_parameter, '')
		FROM sms_gateway_settings
		LIMIT 1
	`).Scan(&out.GatewayURL, &out.MessageParameter, &out.ReceiverParameter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SMSGatewaySettings{}, nil
		}
		return SMSGatewaySettings{}, fmt.Errorf("load SMS gateway settings: %w", err)
	}
	return out, nil
}

// NormalizeUIDLengths applies the UID length defaults (7..15) and floors the
// minimum at 1. A maximum below the minimum is a configuration error.
func NormalizeUIDLengths(s *AlertSettings) error {
	if s.UIDMinLength == 0 {
		s.UIDMinLength = 7
	}
	if s.UIDMinLength < 1 {
		s.UIDMinLength = 1
	}
	if s.UIDMaxLength == 0 {
		s.UIDMaxLength = 15
	}
	if s.UIDMaxLength < s.UIDMinLength {
		return errors.New("UID maximum length must be greater than or equal to the minimum length")
	}
	return nil
}
