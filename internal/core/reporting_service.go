package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// ServiceRequestRow is one work-item line of the service request report.
// Header fields repeat per item in the raw data; GroupServiceRequestRows
// blanks them on consecutive rows of the same request for the grouped
// presentation.
type ServiceRequestRow struct {
	RequestID     string          `json:"id"`
	Status        string          `json:"status"`
	Date          string          `json:"date"`
	Customer      string          `json:"customer"`
	Employee      string          `json:"employee"`
	DepNo         string          `json:"dep_no"`
	EmployeeType  string          `json:"employee_type"`
	ItemName      string          `json:"item_name"`
	GovCharge     decimal.Decimal `json:"gov_charge"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Amount        decimal.Decimal `json:"amount"`
}

// MissingIDFilters narrows the employee missing-IDs report. With neither
// require flag set, rows missing either the UID or both department numbers
// are returned.
type MissingIDFilters struct {
	Customer          string `json:"customer"`
	EmployeeType      string `json:"employee_type"`
	RequireUID        bool   `json:"require_uid"`
	RequireDepartment bool   `json:"require_department"`
}

// EmployeeMissingIDRow is one employee registration with gaps in its
// identity fields.
type EmployeeMissingIDRow struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	EmployeeType string `json:"employee_type"`
	FullName     string `json:"full_name"`
	UIDNo        string `json:"uid_no"`
	DepNo1       string `json:"dep_no1"`
	DepNo2       string `json:"dep_no2"`
	NewEmployee  bool   `json:"new_employee"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides the read-only SQL reports.
type ReportingService interface {
	// ServiceRequestReport returns all work items joined to their requests,
	// newest first, with repeated header fields blanked per group.
	ServiceRequestReport(ctx context.Context) ([]ServiceRequestRow, error)

	// EmployeeMissingIDs lists live employee registrations with missing
	// UID and/or department numbers.
	EmployeeMissingIDs(ctx context.Context, filters MissingIDFilters) ([]EmployeeMissingIDRow, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) ServiceRequestReport(ctx context.Context) ([]ServiceRequestRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sri.parent,
		       COALESCE(
		           NULLIF(sr.status_summary_text, ''),
		           CASE sr.docstatus
		               WHEN 0 THEN 'Draft'
		               WHEN 1 THEN 'Submitted'
		               WHEN 2 THEN 'Cancelled'
		               ELSE ''
		           END
		       ),
		       COALESCE(sr.date::text, ''),
		       COALESCE(sr.customer, ''),
		       COALESCE(sr.dep_emp_name, ''),
		       COALESCE(sr.department_no, ''),
		       COALESCE(sr.employee_type, ''),
		       COALESCE(sri.item_name, ''),
		       COALESCE(sri.gov_charge, 0),
		       COALESCE(sri.service_charge, 0),
		       COALESCE(sri.amount, 0)
		FROM service_request_items sri
		LEFT JOIN service_requests sr ON sr.id = sri.parent
		ORDER BY sr.date DESC, sr.id DESC, sri.idx
	`)
	if err != nil {
		return nil, fmt.Errorf("query service request report: %w", err)
	}
	defer rows.Close()

	var out []ServiceRequestRow
	for rows.Next() {
		var r ServiceRequestRow
		if err := rows.Scan(
			&r.RequestID, &r.Status, &r.Date, &r.Customer,
			&r.Employee, &r.DepNo, &r.EmployeeType,
			&r.ItemName, &r.GovCharge, &r.ServiceCharge, &r.Amount,
		); err != nil {
			return nil, fmt.Errorf("scan service request report row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service request report rows: %w", err)
	}
	return GroupServiceRequestRows(out), nil
}

// GroupServiceRequestRows blanks the header fields on consecutive rows of
// the same request so each request reads as one visual group.
func GroupServiceRequestRows(rows []ServiceRequestRow) []ServiceRequestRow {
	lastID := ""
	for i := range rows {
		if rows[i].RequestID == lastID {
			rows[i].RequestID = ""
			rows[i].Status = ""
			rows[i].Date = ""
			rows[i].Customer = ""
			rows[i].Employee = ""
			rows[i].DepNo = ""
			rows[i].EmployeeType = ""
		} else {
			lastID = rows[i].RequestID
		}
	}
	return rows
}

func (s *reportingService) EmployeeMissingIDs(ctx context.Context, filters MissingIDFilters) ([]EmployeeMissingIDRow, error) {
	q := `
		SELECT id, COALESCE(customer_name, ''), COALESCE(employee_type, ''),
		       COALESCE(full_name, ''), COALESCE(uid_no, ''),
		       COALESCE(dep_no1, ''), COALESCE(dep_no2, ''), new_employee
		FROM customer_employee_registrations
		WHERE docstatus < 2`

	var args []any
	if filters.Customer != "" {
		args = append(args, filters.Customer)
		q += fmt.Sprintf(" AND customer_name = $%d", len(args))
	}
	if filters.EmployeeType != "" {
		args = append(args, filters.EmployeeType)
		q += fmt.Sprintf(" AND employee_type = $%d", len(args))
	}

	const missingUID = "COALESCE(uid_no, '') = ''"
	const missingDep = "(COALESCE(dep_no1, '') = '' AND COALESCE(dep_no2, '') = '')"
	switch {
	case filters.RequireUID && filters.RequireDepartment:
		q += " AND (" + missingUID + " OR " + missingDep + ")"
	case filters.RequireUID:
		q += " AND " + missingUID
	case filters.RequireDepartment:
		q += " AND " + missingDep
	default:
		q += " AND (" + missingUID + " OR " + missingDep + ")"
	}

	q += " ORDER BY customer_name, full_name"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query employee missing IDs: %w", err)
	}
	defer rows.Close()

	var out []EmployeeMissingIDRow
	for rows.Next() {
		var r EmployeeMissingIDRow
		if err := rows.Scan(
			&r.ID, &r.CustomerName, &r.EmployeeType, &r.FullName,
			&r.UIDNo, &r.DepNo1, &r.DepNo2, &r.NewEmployee,
		); err != nil {
			return nil, fmt.Errorf("scan employee missing IDs row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employee missing IDs rows: %w", err)
	}
	return out, nil
}
