package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationService enforces the save-time rules on registrations: one
// live registration per customer, platform-wide unique document numbers, and
// the UID/identity requirements on employee registrations. The ERP calls
// these before persisting a record.
type RegistrationService interface {
	ValidateCustomerRegistration(ctx context.Context, reg CustomerRegistration) error
	ValidateEmployeeRegistration(ctx context.Context, reg EmployeeRegistration, settings AlertSettings) error
}

type registrationService struct {
	pool *pgxpool.Pool
}

func NewRegistrationService(pool *pgxpool.Pool) RegistrationService {
	return &registrationService{pool: pool}
}

func (s *registrationService) ValidateCustomerRegistration(ctx context.Context, reg CustomerRegistration) error {
	if err := s.ensureUniqueRegistration(ctx, reg); err != nil {
		return err
	}
	return s.ensureUniqueDocumentNumbers(ctx, ParentCustomerRegistration, reg.ID, reg.Details)
}

func (s *registrationService) ValidateEmployeeRegistration(ctx context.Context, reg EmployeeRegistration, settings AlertSettings) error {
	if err := ValidateEmployeeUID(reg, settings); err != nil {
		return err
	}
	if err := s.ensureUniqueIdentityValues(ctx, reg); err != nil {
		return err
	}
	return s.ensureUniqueDocumentNumbers(ctx, ParentEmployeeRegistration, reg.ID, reg.Details)
}

func (s *registrationService) ensureUniqueRegistration(ctx context.Context, reg CustomerRegistration) error {
	if reg.Customer == "" {
		return nil
	}

	var existing string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM customer_document_registrations
		WHERE customer = $1 AND docstatus < 2 AND id <> $2
		LIMIT 1
	`, reg.Customer, reg.ID).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check duplicate registration: %w", err)
	}
	return fmt.Errorf("customer %s already has a document registration: %s", reg.Customer, existing)
}

// ensureUniqueDocumentNumbers rejects a document number reused within the
// registration or anywhere else on the platform. Comparison is
// case-insensitive.
func (s *registrationService) ensureUniqueDocumentNumbers(ctx context.Context, parentType, parentID string, details []DocumentDetail) error {
	if dup, ok := FindDuplicateDocumentNumber(details); ok {
		return fmt.Errorf("document number %s is duplicated within this registration", dup)
	}

	ownRows := make(map[string]string) // lower(number) -> row id
	var lowered []string
	for _, d := range details {
		number := strings.TrimSpace(d.DocumentNumber)
		if number == "" {
			continue
		}
		key := strings.ToLower(number)
		ownRows[key] = d.RowID
		lowered = append(lowered, key)
	}
	if len(lowered) == 0 {
		return nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, parent, parent_type, document_number
		FROM document_details
		WHERE lower(document_number) = ANY($1)
	`, lowered)
	if err != nil {
		return fmt.Errorf("check duplicate document numbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rowID, parent, rowParentType, number string
		if err := rows.Scan(&rowID, &parent, &rowParentType, &number); err != nil {
			return fmt.Errorf("scan duplicate document number row: %w", err)
		}
		key := strings.ToLower(strings.TrimSpace(number))

		// skip this registration's own rows
		if rowParentType == parentType && parent == parentID && ownRows[key] == rowID {
			continue
		}
		return fmt.Errorf("document number %s is already used in %s %s", strings.TrimSpace(number), rowParentType, parent)
	}
	return rows.Err()
}

func (s *registrationService) ensureUniqueIdentityValues(ctx context.Context, reg EmployeeRegistration) error {
	fields := []struct {
		label string
		value string
	}{
		{"UID No", reg.UIDNo},
		{"Passport No", reg.PassportNo},
		{"EID No", reg.EIDNo},
	}

	for _, f := range fields {
		value := strings.TrimSpace(f.value)
		if value == "" {
			continue
		}

		var existing string
		err := s.pool.QueryRow(ctx, `
			SELECT id FROM customer_employee_registrations
			WHERE `+identityColumn(f.label)+` = $1 AND id <> $2
			LIMIT 1
		`, value, reg.ID).Scan(&existing)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("check duplicate %s: %w", f.label, err)
		}
		return fmt.Errorf("%s already exists in %s: provide a unique value", f.label, existing)
	}
	return nil
}

func identityColumn(label string) string {
	switch label {
	case "UID No":
		return "uid_no"
	case "Passport No":
		return "passport_no"
	default:
		return "eid_no"
	}
}

// FindDuplicateDocumentNumber returns the first document number that appears
// more than once within the given rows (case-insensitive), if any.
func FindDuplicateDocumentNumber(details []DocumentDetail) (string, bool) {
	seen := make(map[string]struct{})
	for _, d := range details {
		number := strings.TrimSpace(d.DocumentNumber)
		if number == "" {
			continue
		}
		key := strings.ToLower(number)
		if _, ok := seen[key]; ok {
			return number, true
		}
		seen[key] = struct{}{}
	}
	return "", false
}

// ValidateEmployeeUID enforces the UID rules: required unless the employee
// is flagged as new, and within the configured length bounds when present.
func ValidateEmployeeUID(reg EmployeeRegistration, settings AlertSettings) error {
	uid := strings.TrimSpace(reg.UIDNo)
	if uid == "" {
		if reg.NewEmployee {
			return nil
		}
		return errors.New("UID No is required unless the new employee checkbox is enabled")
	}

	min, max := settings.UIDMinLength, settings.UIDMaxLength
	if min == 0 {
		min = 7
	}
	if max == 0 {
		max = 15
	}
	if len(uid) < min || len(uid) > max {
		return fmt.Errorf("UID No must be between %d and %d characters", min, max)
	}
	return nil
}
