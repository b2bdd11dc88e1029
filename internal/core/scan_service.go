package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// scanService implements ScanService over the document store. Each scan is a
// single bulk query joining registrations with their candidate document
// rows, filtered at the source: live (docstatus < 2), active registrations
// and rows that actually carry an expiry date.
type scanService struct {
	pool *pgxpool.Pool
}

func NewScanService(pool *pgxpool.Pool) ScanService {
	return &scanService{pool: pool}
}

func (s *scanService) CustomerRows(ctx context.Context) ([]AlertRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT parent.id,
		       COALESCE(parent.customer, ''),
		       COALESCE(parent.customer_name, ''),
		       COALESCE(parent.customer_email, ''),
		       COALESCE(parent.customer_mobile, ''),
		       COALESCE(parent.extra_email, ''),
		       COALESCE(parent.extra_mobile, ''),
		       parent.enable_email_alert,
		       parent.enable_sms_alert,
		       COALESCE(child.document_type, ''),
		       COALESCE(child.document_number, ''),
		       child.expiry_date,
		       COALESCE(child.alert_days, 0),
		       COALESCE(child.alert_repeat_interval, 0),
		       COALESCE(child.notes, ''),
		       COALESCE(dt.document_name, ''),
		       COALESCE(dt.alert_days, 0),
		       COALESCE(dt.repeat_interval, 0)
		FROM customer_document_registrations parent
		INNER JOIN document_details child
		        ON child.parent = parent.id
		       AND child.parent_type = $1
		LEFT JOIN document_type_masters dt
		       ON dt.id = child.document_type
		WHERE parent.docstatus < 2
		  AND parent.active
		  AND child.expiry_date IS NOT NULL
	`, ParentCustomerRegistration)
	if err != nil {
		return nil, fmt.Errorf("query customer document registrations: %w", err)
	}
	defer rows.Close()

	var out []AlertRow
	for rows.Next() {
		var r AlertRow
		var customerEmail, customerMobile, extraEmail, extraMobile string
		var emailAlert, smsAlert bool
		var expiry time.Time
		if err := rows.Scan(
			&r.Parent, &r.Customer, &r.CustomerName,
			&customerEmail, &customerMobile, &extraEmail, &extraMobile,
			&emailAlert, &smsAlert,
			&r.DocumentType, &r.DocumentNumber, &expiry,
			&r.AlertDays, &r.RepeatInterval, &r.Notes,
			&r.DocumentName, &r.DefaultAlertDays, &r.DefaultRepeatInterval,
		); err != nil {
			return nil, fmt.Errorf("scan customer registration row: %w", err)
		}
		r.ExpiryDate = expiry
		r.EmailSources = []ContactSource{{Allowed: emailAlert, Contacts: []string{customerEmail, extraEmail}}}
		r.SMSSources = []ContactSource{{Allowed: smsAlert, Contacts: []string{customerMobile, extraMobile}}}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer registration rows: %w", err)
	}
	return out, nil
}

// EmployeeRows additionally joins each employee's customer against that
// customer's own registration. The customer's contacts are attached as a
// second, independently gated source: the cascade fires only when the
// customer registration enables the channel AND opts its employees in.
func (s *scanService) EmployeeRows(ctx context.Context) ([]AlertRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT parent.id,
		       COALESCE(parent.full_name, ''),
		       COALESCE(parent.customer_name, ''),
		       COALESCE(parent.email_id, ''),
		       COALESCE(parent.mobile_number, ''),
		       COALESCE(parent.extra_email, ''),
		       COALESCE(parent.extra_mobile, ''),
		       parent.notify_employee_email,
		       parent.notify_employee_sms,
		       COALESCE(cdr.customer_email, ''),
		       COALESCE(cdr.extra_email, ''),
		       COALESCE(cdr.customer_mobile, ''),
		       COALESCE(cdr.extra_mobile, ''),
		       COALESCE(cdr.enable_email_alert, false) AND COALESCE(cdr.employee_email_alert, false),
		       COALESCE(cdr.enable_sms_alert, false) AND COALESCE(cdr.employee_sms_alert, false),
		       COALESCE(child.document_type, ''),
		       COALESCE(child.document_number, ''),
		       child.expiry_date,
		       COALESCE(child.alert_days, 0),
		       COALESCE(child.alert_repeat_interval, 0),
		       COALESCE(child.notes, ''),
		       COALESCE(dt.document_name, ''),
		       COALESCE(dt.alert_days, 0),
		       COALESCE(dt.repeat_interval, 0)
		FROM customer_employee_registrations parent
		INNER JOIN document_details child
		        ON child.parent = parent.id
		       AND child.parent_type = $1
		LEFT JOIN document_type_masters dt
		       ON dt.id = child.document_type
		LEFT JOIN customer_document_registrations cdr
		       ON cdr.customer = parent.customer_name
		WHERE parent.docstatus < 2
		  AND parent.active
		  AND child.expiry_date IS NOT NULL
	`, ParentEmployeeRegistration)
	if err != nil {
		return nil, fmt.Errorf("query customer employee registrations: %w", err)
	}
	defer rows.Close()

	var out []AlertRow
	for rows.Next() {
		var r AlertRow
		var emailID, mobileNumber, extraEmail, extraMobile string
		var customerEmail, customerExtraEmail, customerMobile, customerExtraMobile string
		var notifyEmail, notifySMS, cascadeEmail, cascadeSMS bool
		var expiry time.Time
		if err := rows.Scan(
			&r.Parent, &r.FullName, &r.CustomerName,
			&emailID, &mobileNumber, &extraEmail, &extraMobile,
			&notifyEmail, &notifySMS,
			&customerEmail, &customerExtraEmail, &customerMobile, &customerExtraMobile,
			&cascadeEmail, &cascadeSMS,
			&r.DocumentType, &r.DocumentNumber, &expiry,
			&r.AlertDays, &r.RepeatInterval, &r.Notes,
			&r.DocumentName, &r.DefaultAlertDays, &r.DefaultRepeatInterval,
		); err != nil {
			return nil, fmt.Errorf("scan employee registration row: %w", err)
		}
		r.ExpiryDate = expiry
		r.EmailSources = []ContactSource{
			{Allowed: notifyEmail, Contacts: []string{emailID, extraEmail}},
			{Allowed: cascadeEmail, Contacts: []string{customerEmail, customerExtraEmail}},
		}
		r.SMSSources = []ContactSource{
			{Allowed: notifySMS, Contacts: []string{mobileNumber, extraMobile}},
			{Allowed: cascadeSMS, Contacts: []string{customerMobile, customerExtraMobile}},
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employee registration rows: %w", err)
	}
	return out, nil
}
