package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Registration parent types. These match the reference_type values written to
// alert log details and are used to build record links in alert emails.
const (
	ParentCustomerRegistration = "Customer Document Registration"
	ParentEmployeeRegistration = "Customer Employee Registration"
)

// CustomerRegistration tracks the expiring documents of one customer.
// At most one live registration may exist per customer.
type CustomerRegistration struct {
	ID                 string           `json:"id"`
	Customer           string           `json:"customer"`
	CustomerName       string           `json:"customer_name"`
	CustomerEmail      string           `json:"customer_email"`
	CustomerMobile     string           `json:"customer_mobile"`
	ExtraEmail         string           `json:"extra_email"`
	ExtraMobile        string           `json:"extra_mobile"`
	EnableEmailAlert   bool             `json:"enable_email_alert"`
	EnableSMSAlert     bool             `json:"enable_sms_alert"`
	EmployeeEmailAlert bool             `json:"employee_email_alert"`
	EmployeeSMSAlert   bool             `json:"employee_sms_alert"`
	Active             bool             `json:"active"`
	DocStatus          int              `json:"docstatus"`
	Details            []DocumentDetail `json:"document_details"`
}

// EmployeeRegistration tracks the expiring documents of one customer employee.
type EmployeeRegistration struct {
	ID                  string           `json:"id"`
	FullName            string           `json:"full_name"`
	CustomerName        string           `json:"customer_name"`
	EmailID             string           `json:"email_id"`
	MobileNumber        string           `json:"mobile_number"`
	ExtraEmail          string           `json:"extra_email"`
	ExtraMobile         string           `json:"extra_mobile"`
	NotifyEmployeeEmail bool             `json:"notify_employee_email"`
	NotifyEmployeeSMS   bool             `json:"notify_employee_sms"`
	UIDNo               string           `json:"uid_no"`
	PassportNo          string           `json:"passport_no"`
	EIDNo               string           `json:"eid_no"`
	NewEmployee         bool             `json:"new_employee"`
	EmployeeType        string           `json:"employee_type"`
	DepNo1              string           `json:"dep_no1"`
	DepNo2              string           `json:"dep_no2"`
	Active              bool             `json:"active"`
	DocStatus           int              `json:"docstatus"`
	Details             []DocumentDetail `json:"document_details"`
}

// DocumentDetail is one tracked document or credential on a registration.
// ExpiryDate is zero when the user has not filled it in; such rows are never
// alert-eligible.
type DocumentDetail struct {
	RowID          string    `json:"row_id"`
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	ExpiryDate     time.Time `json:"expiry_date"`
	AlertDays      int       `json:"alert_days"`
	RepeatInterval int       `json:"alert_repeat_interval"`
	Notes          string    `json:"notes"`
}

// DocumentTypeMaster supplies per-type default alert windows.
type DocumentTypeMaster struct {
	ID             string `json:"id"`
	DocumentName   string `json:"document_name"`
	AlertDays      int    `json:"alert_days"`
	RepeatInterval int    `json:"repeat_interval"`
}

// ContactSource is one gated set of contact values on a scan row: the base
// registration-level contacts, or a cascade source such as the customer
// contacts folded into an employee's alerts. Contacts hold raw field values;
// trimming and deduplication happen during aggregation.
type ContactSource struct {
	Allowed  bool
	Contacts []string
}

// AlertRow is one flat row from the eligibility scan: a registration's
// identity and contact fields joined with a single candidate document detail
// and its document-type defaults.
type AlertRow struct {
	Parent       string
	Customer     string
	CustomerName string
	FullName     string

	DocumentType          string
	DocumentName          string
	DocumentNumber        string
	ExpiryDate            time.Time
	AlertDays             int
	DefaultAlertDays      int
	RepeatInterval        int
	DefaultRepeatInterval int
	Notes                 string

	EmailSources []ContactSource
	SMSSources   []ContactSource
}

// DocumentEntry is the alert-relevant projection of an eligible document row.
type DocumentEntry struct {
	Label      string    `json:"label"`
	Number     string    `json:"number"`
	ExpiryDate time.Time `json:"expiry_date"`
	DaysLeft   int       `json:"days_left"`
	Notes      string    `json:"notes"`
}

// Bundle aggregates one registration's eligible documents and resolved
// recipients for a single notification run. Bundles are built fresh each run
// and never persisted.
type Bundle struct {
	Parent          string
	ParentType      string
	Title           string
	CustomerName    string
	Documents       []DocumentEntry
	EmailRecipients RecipientSet
	SMSRecipients   RecipientSet
	AllowEmail      bool
	AllowSMS        bool
}

// digestClone copies the identity and document list of a bundle for the admin
// digest, leaving recipients behind.
func (b *Bundle) digestClone() Bundle {
	docs := make([]DocumentEntry, len(b.Documents))
	copy(docs, b.Documents)
	return Bundle{
		Parent:       b.Parent,
		ParentType:   b.ParentType,
		Title:        b.Title,
		CustomerName: b.CustomerName,
		Documents:    docs,
	}
}

// RunStatus is the overall outcome of one alert run.
type RunStatus string

const (
	StatusSuccess         RunStatus = "Success"
	StatusPartialFailures RunStatus = "Partial Failures"
	StatusFailed          RunStatus = "Failed"
	StatusSkipped         RunStatus = "Skipped"
)

// DeliveryDetail is one per-recipient delivery record on an alert log.
type DeliveryDetail struct {
	Channel        string `json:"channel"`
	Recipient      string `json:"recipient"`
	Status         string `json:"status"`
	ReferenceType  string `json:"reference_type"`
	ReferenceName  string `json:"reference_name"`
	ReferenceTitle string `json:"reference_title"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// RunLog is the persisted snapshot of one alert run: channel counters, the
// derived status and per-recipient delivery details. One is written at the
// end of every run, including skipped and failed runs.
type RunLog struct {
	LogTime           time.Time        `json:"log_time"`
	Status            RunStatus        `json:"status"`
	TotalRecords      int              `json:"total_records"`
	EmailsSent        int              `json:"emails_sent"`
	SMSSent           int              `json:"sms_sent"`
	EmailsFailed      int              `json:"emails_failed"`
	SMSFailed         int              `json:"sms_failed"`
	EmailAttempts     int              `json:"email_attempts"`
	SMSAttempts       int              `json:"sms_attempts"`
	EmailQueuePending int              `json:"email_queue_pending"`
	SMSPending        int              `json:"sms_pending"`
	FailureDetails    []string         `json:"failure_details"`
	Details           []DeliveryDetail `json:"details"`
}

// DeriveStatus returns the overall run status. An explicitly set status
// (Skipped or Failed from an early-exit branch) wins; otherwise the status
// follows from the success/failure counters across both channels.
func (r *RunLog) DeriveStatus() RunStatus {
	if r.Status != "" {
		return r.Status
	}

	successes := r.EmailsSent + r.SMSSent
	failures := r.EmailsFailed + r.SMSFailed

	switch {
	case failures > 0 && successes == 0:
		return StatusFailed
	case failures > 0 && successes > 0:
		return StatusPartialFailures
	case successes == 0:
		return StatusSkipped
	default:
		return StatusSuccess
	}
}

// AlertSettings is the single global alert configuration, fetched once per
// run by the entry point and passed into the engine as a value.
type AlertSettings struct {
	EnableEmail           bool   `json:"enable_email"`
	EnableSMS             bool   `json:"enable_sms"`
	ConsolidateAdminEmail bool   `json:"consolidate_admin_email"`
	DefaultAdminEmail     string `json:"default_admin_email"`
	CCEmails              string `json:"cc_emails"`
	DefaultAdminMobile    string `json:"default_admin_mobile"`
	CCMobiles             string `json:"cc_mobiles"`
	SMSSignature          string `json:"sms_signature"`
	UIDMinLength          int    `json:"uid_min_length"`
	UIDMaxLength          int    `json:"uid_max_length"`
}

// AdminEmails returns the deduplicated admin + CC email recipients.
func (s AlertSettings) AdminEmails() []string {
	return CollectContacts(s.DefaultAdminEmail, s.CCEmails)
}

// AdminMobiles returns the deduplicated admin + CC mobile numbers.
func (s AlertSettings) AdminMobiles() []string {
	return CollectContacts(s.DefaultAdminMobile, s.CCMobiles)
}

// ServiceRequest is a service workorder with its billable work items.
type ServiceRequest struct {
	ID              string     `json:"id"`
	Customer        string     `json:"customer"`
	Company         string     `json:"company"`
	Date            time.Time  `json:"date"`
	EmployeeName    string     `json:"dep_emp_name"`
	DepartmentNo    string     `json:"department_no"`
	EmployeeType    string     `json:"employee_type"`
	SalesOrderRef   string     `json:"sales_order_ref"`
	SalesInvoiceRef string     `json:"sales_invoice_ref"`
	StatusSummary   string     `json:"status_summary_text"`
	DocStatus       int        `json:"docstatus"`
	Items           []WorkItem `json:"work_details"`
}

// WorkItem is one line of work on a service request.
type WorkItem struct {
	Idx           int             `json:"idx"`
	ItemCode      string          `json:"item_code"`
	ItemName      string          `json:"item_name"`
	Qty           decimal.Decimal `json:"qty"`
	GovCharge     decimal.Decimal `json:"gov_charge"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentType   string          `json:"payment_type"`
}
