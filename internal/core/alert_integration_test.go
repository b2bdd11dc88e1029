package core_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"service-workorder/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, fmt.Sprintf(`
		TRUNCATE TABLE alert_log_details, alert_logs, document_details,
			customer_document_registrations, customer_employee_registrations,
			document_type_masters, alert_settings, sms_gateway_settings CASCADE;

		INSERT INTO document_type_masters (id, document_name, alert_days, repeat_interval) VALUES
			('TRADE LICENSE', 'Trade License', 30, 1),
			('VISA', 'Visa', 10, 1);

		INSERT INTO customer_document_registrations
			(id, customer, customer_name, customer_email, customer_mobile,
			 enable_email_alert, enable_sms_alert, employee_email_alert, employee_sms_alert,
			 active, docstatus)
		VALUES
			('REG-001', 'Acme Trading LLC', 'Acme Trading LLC', 'owner@acme.example', '0501111111',
			 TRUE, TRUE, TRUE, FALSE, TRUE, 1),
			('REG-INACTIVE', 'CUST-002', 'Globex', 'globex@example.com', '',
			 TRUE, TRUE, FALSE, FALSE, FALSE, 1);

		INSERT INTO customer_employee_registrations
			(id, full_name, customer_name, email_id, mobile_number,
			 notify_employee_email, notify_employee_sms, uid_no, active, docstatus)
		VALUES
			('EMP-001', 'Jamila Hassan', 'Acme Trading LLC', 'jamila@example.com', '0503333333',
			 TRUE, FALSE, '1234567', TRUE, 1);

		INSERT INTO document_details
			(id, parent, parent_type, document_type, document_number, expiry_date, alert_days, alert_repeat_interval, notes)
		VALUES
			('DD-1', 'REG-001', 'Customer Document Registration', 'TRADE LICENSE', 'TL-100', '%[1]s', 0, 0, ''),
			('DD-2', 'REG-001', 'Customer Document Registration', 'TRADE LICENSE', 'TL-OLD', '%[2]s', 0, 0, ''),
			('DD-3', 'REG-INACTIVE', 'Customer Document Registration', 'TRADE LICENSE', 'TL-200', '%[1]s', 0, 0, ''),
			('DD-4', 'EMP-001', 'Customer Employee Registration', 'VISA', 'V-100', '%[1]s', 0, 0, 'renewal filed');
	`,
		time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		time.Now().AddDate(0, 0, -10).Format("2006-01-02"),
	))
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func TestScanService_Integration(t *testing.T) {
	pool := setupTestDB(t) // Skips if TEST_DATABASE_URL is not set
	defer pool.Close()

	ctx := context.Background()
	scan := core.NewScanService(pool)

	customerRows, err := scan.CustomerRows(ctx)
	if err != nil {
		t.Fatalf("CustomerRows: %v", err)
	}
	// REG-001 contributes both of its documents; the inactive registration
	// is filtered at the source
	if len(customerRows) != 2 {
		t.Fatalf("got %d customer rows, want 2", len(customerRows))
	}
	for _, r := range customerRows {
		if r.Parent != "REG-001" {
			t.Errorf("unexpected parent %q in scan", r.Parent)
		}
		if r.DefaultAlertDays != 30 {
			t.Errorf("DefaultAlertDays = %d, want 30 from type master", r.DefaultAlertDays)
		}
		if len(r.EmailSources) != 1 || !r.EmailSources[0].Allowed {
			t.Errorf("email source = %+v", r.EmailSources)
		}
	}

	employeeRows, err := scan.EmployeeRows(ctx)
	if err != nil {
		t.Fatalf("EmployeeRows: %v", err)
	}
	if len(employeeRows) != 1 {
		t.Fatalf("got %d employee rows, want 1", len(employeeRows))
	}
	emp := employeeRows[0]
	if emp.FullName != "Jamila Hassan" || emp.DefaultAlertDays != 10 {
		t.Errorf("employee row = %+v", emp)
	}
	if len(emp.EmailSources) != 2 {
		t.Fatalf("employee email sources = %+v", emp.EmailSources)
	}
	// the employer enables email alerts AND opts employees in, so the
	// cascade source is allowed and carries the customer contacts
	if !emp.EmailSources[1].Allowed {
		t.Error("customer cascade email source should be allowed")
	}
	if emp.EmailSources[1].Contacts[0] != "owner@acme.example" {
		t.Errorf("cascade contacts = %v", emp.EmailSources[1].Contacts)
	}
	// SMS cascade requires employee_sms_alert on the customer side, which is off
	if len(emp.SMSSources) != 2 || emp.SMSSources[1].Allowed {
		t.Errorf("SMS sources = %+v", emp.SMSSources)
	}
}

func TestAlertLogService_Integration(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	logs := core.NewAlertLogService(pool)

	run := &core.RunLog{
		LogTime:      time.Now(),
		Status:       core.StatusPartialFailures,
		TotalRecords: 2,
		EmailsSent:   1,
		EmailsFailed: 1,
		FailureDetails: []string{
			"Email: Jamila Hassan (Customer Employee Registration) -> mailbox unavailable",
		},
		Details: []core.DeliveryDetail{
			{Channel: "Email", Recipient: "owner@acme.example", Status: "Sent",
				ReferenceType: core.ParentCustomerRegistration, ReferenceName: "REG-001", ReferenceTitle: "Acme Trading LLC"},
			{Channel: "Email", Recipient: "jamila@example.com", Status: "Failed",
				ReferenceType: core.ParentEmployeeRegistration, ReferenceName: "EMP-001", ReferenceTitle: "Jamila Hassan",
				ErrorMessage: "mailbox unavailable"},
		},
	}

	if err := logs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var status, failureDetails string
	var emailsSent, emailsFailed int
	var logID int64
	err := pool.QueryRow(ctx, `
		SELECT id, status, emails_sent, emails_failed, failure_details
		FROM alert_logs ORDER BY id DESC LIMIT 1
	`).Scan(&logID, &status, &emailsSent, &emailsFailed, &failureDetails)
	if err != nil {
		t.Fatalf("read back alert log: %v", err)
	}
	if status != string(core.StatusPartialFailures) || emailsSent != 1 || emailsFailed != 1 {
		t.Errorf("log row = %s sent=%d failed=%d", status, emailsSent, emailsFailed)
	}
	if failureDetails == "" {
		t.Error("failure_details not persisted")
	}

	var detailCount int
	if err := pool.QueryRow(ctx,
		`SELECT count(*) FROM alert_log_details WHERE log_id = $1`, logID,
	).Scan(&detailCount); err != nil {
		t.Fatalf("count detail rows: %v", err)
	}
	if detailCount != 2 {
		t.Errorf("detail rows = %d, want 2", detailCount)
	}
}

func TestSettingsService_Integration(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	service := core.NewSettingsService(pool)

	// missing rows behave like everything disabled / unconfigured
	settings, err := service.Load(ctx)
	if err != nil {
		t.Fatalf("Load with no row: %v", err)
	}
	if settings.EnableEmail || settings.EnableSMS {
		t.Errorf("settings with no row = %+v", settings)
	}

	gateway, err := service.LoadSMSGateway(ctx)
	if err != nil {
		t.Fatalf("LoadSMSGateway with no row: %v", err)
	}
	if gateway != (core.SMSGatewaySettings{}) {
		t.Errorf("gateway with no row = %+v", gateway)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO alert_settings
			(id, enable_email, enable_sms, consolidate_admin_email,
			 default_admin_email, cc_emails, sms_signature)
		VALUES (1, TRUE, FALSE, TRUE, 'admin@example.com', 'cc@example.com', '- Gulf Services');

		INSERT INTO sms_gateway_settings (id, gateway_url, message_parameter, receiver_parameter)
		VALUES (1, 'https://sms.example.com/send', 'msg', 'to');
	`)
	if err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	settings, err = service.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !settings.EnableEmail || settings.EnableSMS || !settings.ConsolidateAdminEmail {
		t.Errorf("settings = %+v", settings)
	}
	if settings.UIDMinLength != 7 || settings.UIDMaxLength != 15 {
		t.Errorf("UID bounds = %d..%d, want defaults 7..15", settings.UIDMinLength, settings.UIDMaxLength)
	}
	if got := settings.AdminEmails(); len(got) != 2 {
		t.Errorf("AdminEmails() = %v", got)
	}

	gateway, err = service.LoadSMSGateway(ctx)
	if err != nil {
		t.Fatalf("LoadSMSGateway: %v", err)
	}
	if err := gateway.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRegistrationService_Integration(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	service := core.NewRegistrationService(pool)

	// a second live registration for the same customer is rejected
	err := service.ValidateCustomerRegistration(ctx, core.CustomerRegistration{
		ID:       "REG-NEW",
		Customer: "Acme Trading LLC",
	})
	if err == nil {
		t.Error("duplicate customer registration accepted")
	}

	// re-validating the existing record against itself passes
	err = service.ValidateCustomerRegistration(ctx, core.CustomerRegistration{
		ID:       "REG-001",
		Customer: "Acme Trading LLC",
		Details: []core.DocumentDetail{
			{RowID: "DD-1", DocumentNumber: "TL-100"},
			{RowID: "DD-2", DocumentNumber: "TL-OLD"},
		},
	})
	if err != nil {
		t.Errorf("self-validation failed: %v", err)
	}

	// a document number already used elsewhere on the platform is rejected
	err = service.ValidateCustomerRegistration(ctx, core.CustomerRegistration{
		ID:       "REG-OTHER",
		Customer: "CUST-999",
		Details:  []core.DocumentDetail{{RowID: "DD-X", DocumentNumber: "tl-100"}},
	})
	if err == nil {
		t.Error("reused document number accepted")
	}

	// a duplicated employee UID is rejected
	err = service.ValidateEmployeeRegistration(ctx, core.EmployeeRegistration{
		ID:    "EMP-NEW",
		UIDNo: "1234567",
	}, core.AlertSettings{})
	if err == nil {
		t.Error("duplicate UID accepted")
	}
}
