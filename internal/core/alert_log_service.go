package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// alertLogService persists run logs to the document store. The log row and
// its per-recipient detail rows are written in one transaction so a partial
// log can never appear.
type alertLogService struct {
	pool *pgxpool.Pool
}

func NewAlertLogService(pool *pgxpool.Pool) AlertLogService {
	return &alertLogService{pool: pool}
}

func (s *alertLogService) Insert(ctx context.Context, run *RunLog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin alert log transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var logID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO alert_logs (
			log_time, status, total_records,
			emails_sent, sms_sent, emails_failed, sms_failed,
			email_queue_pending, sms_pending, failure_details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		run.LogTime, string(run.Status), run.TotalRecords,
		run.EmailsSent, run.SMSSent, run.EmailsFailed, run.SMSFailed,
		run.EmailQueuePending, run.SMSPending, strings.Join(run.FailureDetails, "\n"),
	).Scan(&logID)
	if err != nil {
		return fmt.Errorf("insert alert log: %w", err)
	}

	for _, d := range run.Details {
		_, err := tx.Exec(ctx, `
			INSERT INTO alert_log_details (
				log_id, channel, recipient, status,
				reference_type, reference_name, reference_title, error_message
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, logID, d.Channel, d.Recipient, d.Status,
			d.ReferenceType, d.ReferenceName, d.ReferenceTitle, d.ErrorMessage)
		if err != nil {
			return fmt.Errorf("insert alert log detail for %s: %w", d.Recipient, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit alert log: %w", err)
	}
	return nil
}

// PendingEmailQueue counts host mail queue entries not yet sent. Best-effort:
// any error (including the table not existing on this deployment) reads as 0.
func (s *alertLogService) PendingEmailQueue(ctx context.Context) int {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM email_queue WHERE status = 'Not Sent'`,
	).Scan(&count)
	if err != nil {
		return 0
	}
	return count
}
