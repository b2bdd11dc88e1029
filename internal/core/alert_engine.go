package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Mailer sends one HTML email to a list of recipients.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, htmlBody string) error
}

// SMSSender sends one text message to a list of mobile numbers.
type SMSSender interface {
	Send(ctx context.Context, recipients []string, message string) error
}

// ScanService produces the flat eligibility-scan rows for both registration
// types. Implemented over the document store; faked in tests.
type ScanService interface {
	CustomerRows(ctx context.Context) ([]AlertRow, error)
	EmployeeRows(ctx context.Context) ([]AlertRow, error)
}

// AlertLogService persists run logs. PendingEmailQueue reports the host mail
// queue backlog and must degrade to 0 on error.
type AlertLogService interface {
	Insert(ctx context.Context, run *RunLog) error
	PendingEmailQueue(ctx context.Context) int
}

// Engine runs the expiry alert pipeline: scan, aggregate, dispatch, log.
// One Run per scheduler invocation; no state is carried between runs.
type Engine struct {
	scan    ScanService
	logs    AlertLogService
	mailer  Mailer
	sms     SMSSender
	baseURL string
}

func NewEngine(scan ScanService, logs AlertLogService, mailer Mailer, sms SMSSender, baseURL string) *Engine {
	return &Engine{scan: scan, logs: logs, mailer: mailer, sms: sms, baseURL: baseURL}
}

// Run executes one alert run for the given calendar day. The returned RunLog
// mirrors what was persisted. A non-nil error means a systemic failure (the
// scan could not complete); per-channel delivery failures are recorded in
// the log instead and never abort the run. The log is persisted on every
// path, best-effort.
func (e *Engine) Run(ctx context.Context, settings AlertSettings, today time.Time) (*RunLog, error) {
	run := &RunLog{LogTime: time.Now()}

	if !settings.EnableEmail && !settings.EnableSMS {
		log.Printf("document alerts skipped: both email and SMS are disabled")
		run.Status = StatusSkipped
		run.FailureDetails = append(run.FailureDetails, "Both email and SMS alerts are disabled.")
		e.persist(ctx, run)
		return run, nil
	}

	bundles, err := e.collectBundles(ctx, today)
	if err != nil {
		run.Status = StatusFailed
		run.FailureDetails = append(run.FailureDetails, err.Error())
		log.Printf("document alert scan failed: %v", err)
		e.persist(ctx, run)
		return run, err
	}

	if len(bundles) == 0 {
		log.Printf("document alerts: no expiring documents found")
		run.Status = StatusSkipped
		run.FailureDetails = append(run.FailureDetails, "No expiring documents matched the alert window.")
		e.persist(ctx, run)
		return run, nil
	}

	run.TotalRecords = len(bundles)

	adminEmails := settings.AdminEmails()
	adminMobiles := settings.AdminMobiles()
	consolidate := settings.EnableEmail && settings.ConsolidateAdminEmail && len(adminEmails) > 0
	var digest []Bundle

	for i := range bundles {
		bundle := &bundles[i]

		// attach the latest admin contacts before sending
		if settings.EnableEmail {
			if consolidate {
				digest = append(digest, bundle.digestClone())
			} else {
				bundle.EmailRecipients.AddAll(adminEmails)
			}
		}
		if settings.EnableSMS {
			bundle.SMSRecipients.AddAll(adminMobiles)
		}

		if settings.EnableEmail {
			e.sendBundleEmail(ctx, run, bundle)
		}
		if settings.EnableSMS {
			e.sendBundleSMS(ctx, run, bundle, settings.SMSSignature)
		}
	}

	if consolidate && len(digest) > 0 {
		e.sendAdminDigest(ctx, run, adminEmails, digest, today)
	}

	derivedEmailPending := run.EmailAttempts - run.EmailsSent - run.EmailsFailed
	if derivedEmailPending < 0 {
		derivedEmailPending = 0
	}
	run.EmailQueuePending = derivedEmailPending
	if queued := e.logs.PendingEmailQueue(ctx); queued > derivedEmailPending {
		run.EmailQueuePending = queued
	}
	run.SMSPending = run.SMSAttempts - run.SMSSent - run.SMSFailed
	if run.SMSPending < 0 {
		run.SMSPending = 0
	}

	log.Printf("document alerts: %d email(s) and %d SMS alert(s) sent for %d record(s)",
		run.EmailsSent, run.SMSSent, len(bundles))

	e.persist(ctx, run)
	return run, nil
}

func (e *Engine) collectBundles(ctx context.Context, today time.Time) ([]Bundle, error) {
	customerRows, err := e.scan.CustomerRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan customer registrations: %w", err)
	}
	employeeRows, err := e.scan.EmployeeRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan employee registrations: %w", err)
	}

	bundles := Aggregate(customerRows, ParentCustomerRegistration, customerTitle, today)
	bundles = append(bundles, Aggregate(employeeRows, ParentEmployeeRegistration, employeeTitle, today)...)
	return bundles, nil
}

func (e *Engine) sendBundleEmail(ctx context.Context, run *RunLog, bundle *Bundle) {
	recipients := bundle.EmailRecipients.Sorted()
	if len(recipients) == 0 {
		return
	}

	run.EmailAttempts++
	body, err := RenderEmailBody(*bundle, e.baseURL)
	if err == nil {
		err = e.mailer.Send(ctx, recipients, EmailSubject(*bundle), body)
	}
	if err != nil {
		run.EmailsFailed++
		run.captureFailure("Email", bundle.Title, bundle.ParentType, err)
		run.recordDetails("Email", recipients, bundle.ParentType, bundle.Parent, bundle.Title, "Failed", err.Error())
		log.Printf("document alert email failure for %s: %v", bundle.Parent, err)
		return
	}
	run.EmailsSent++
	run.recordDetails("Email", recipients, bundle.ParentType, bundle.Parent, bundle.Title, "Sent", "")
}

func (e *Engine) sendBundleSMS(ctx context.Context, run *RunLog, bundle *Bundle, signature string) {
	recipients := bundle.SMSRecipients.Sorted()
	if len(recipients) == 0 {
		return
	}

	run.SMSAttempts++
	if err := e.sms.Send(ctx, recipients, RenderSMS(*bundle, signature)); err != nil {
		run.SMSFailed++
		run.captureFailure("SMS", bundle.Title, bundle.ParentType, err)
		run.recordDetails("SMS", recipients, bundle.ParentType, bundle.Parent, bundle.Title, "Failed", err.Error())
		log.Printf("document alert SMS failure for %s: %v", bundle.Parent, err)
		return
	}
	run.SMSSent++
	run.recordDetails("SMS", recipients, bundle.ParentType, bundle.Parent, bundle.Title, "Sent", "")
}

func (e *Engine) sendAdminDigest(ctx context.Context, run *RunLog, recipients []string, digest []Bundle, today time.Time) {
	run.EmailAttempts++
	body, err := RenderDigestBody(digest, e.baseURL, today)
	if err == nil {
		err = e.mailer.Send(ctx, recipients, DigestSubject(today), body)
	}
	if err != nil {
		run.EmailsFailed++
		run.captureFailure("Email", "Admin Summary", "", err)
		run.recordDetails("Email", recipients, "", "Alert Settings", "Admin Summary", "Failed", err.Error())
		log.Printf("document alert admin digest failure: %v", err)
		return
	}
	run.EmailsSent++
	run.recordDetails("Email", recipients, "", "Alert Settings", "Admin Summary", "Sent", "")
}

// persist derives the final status and writes the run log. Log-write failure
// is reported and swallowed; it must never fail the alerting run.
func (e *Engine) persist(ctx context.Context, run *RunLog) {
	run.Status = run.DeriveStatus()
	if err := e.logs.Insert(ctx, run); err != nil {
		log.Printf("failed to insert alert log: %v", err)
	}
}

// SendTestEmail sends a configuration test email to the admin/CC recipients.
func (e *Engine) SendTestEmail(ctx context.Context, settings AlertSettings) error {
	recipients := settings.AdminEmails()
	if len(recipients) == 0 {
		return errors.New("no email recipients found: add an admin or CC email first")
	}

	body := `<p>This is a test email from the Document Alert System.</p>
<p>If you received this, your email configuration is working.</p>`
	if err := e.mailer.Send(ctx, recipients, "Test Email - Document Alert System", body); err != nil {
		return fmt.Errorf("send test email: %w", err)
	}
	return nil
}

// SendTestSMS sends a configuration test SMS to the admin/CC mobile numbers.
// The gateway settings are validated first so an incomplete configuration is
// reported field-by-field instead of producing an opaque transport error.
func (e *Engine) SendTestSMS(ctx context.Context, settings AlertSettings, gateway SMSGatewaySettings) error {
	if err := gateway.Validate(); err != nil {
		return err
	}

	recipients := settings.AdminMobiles()
	if len(recipients) == 0 {
		return errors.New("no mobile numbers found: add an admin or CC mobile first")
	}

	msg := "Test SMS from Document Alert System."
	if settings.SMSSignature != "" {
		msg += " " + settings.SMSSignature
	}
	if err := e.sms.Send(ctx, recipients, msg); err != nil {
		return fmt.Errorf("send test SMS: %w", err)
	}
	return nil
}

func (r *RunLog) captureFailure(channel, title, parentType string, err error) {
	label := title
	if parentType != "" {
		label = fmt.Sprintf("%s (%s)", title, parentType)
	}
	r.FailureDetails = append(r.FailureDetails, fmt.Sprintf("%s: %s -> %v", channel, label, err))
}

func (r *RunLog) recordDetails(channel string, recipients []string, refType, refName, refTitle, status, errMsg string) {
	if len(recipients) == 0 {
		return
	}
	for _, recipient := range recipients {
		r.Details = append(r.Details, DeliveryDetail{
			Channel:        channel,
			Recipient:      recipient,
			Status:         status,
			ReferenceType:  refType,
			ReferenceName:  refName,
			ReferenceTitle: refTitle,
			ErrorMessage:   errMsg,
		})
	}
}
