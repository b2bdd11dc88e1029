package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Billing status ladder for service requests.
const (
	BillingInvoiced          = "Invoiced"
	BillingSalesOrderCreated = "Sales Order Created"
	BillingNoWorkItems       = "No Work Items"
	BillingReady             = "Ready for Billing"
	BillingInProgress        = "In Progress"
)

// SalesOrderItem is one copied line on a draft sales document. The rate is
// the government charge plus the service charge of the source work item.
type SalesOrderItem struct {
	ItemCode    string          `json:"item_code"`
	ItemName    string          `json:"item_name"`
	Qty         decimal.Decimal `json:"qty"`
	Rate        decimal.Decimal `json:"rate"`
	Description string          `json:"description"`
}

// SalesOrderDraft is a Sales Order prepared from a service request's
// completed work items. It is returned to the caller as a draft; posting is
// the ERP's job.
type SalesOrderDraft struct {
	ServiceRequest string           `json:"service_request"`
	Customer       string           `json:"customer"`
	Company        string           `json:"company"`
	Items          []SalesOrderItem `json:"items"`
}

// SalesInvoiceDraft carries the same projection against the invoice shape.
type SalesInvoiceDraft struct {
	ServiceRequest string           `json:"service_request"`
	Customer       string           `json:"customer"`
	Company        string           `json:"company"`
	Items          []SalesOrderItem `json:"items"`
}

// BillingService prepares billing documents from service requests.
type BillingService interface {
	MakeSalesOrderDraft(ctx context.Context, requestID string) (*SalesOrderDraft, error)
	MakeSalesInvoiceDraft(ctx context.Context, requestID string) (*SalesInvoiceDraft, error)
}

type billingService struct {
	pool           *pgxpool.Pool
	defaultCompany string
}

func NewBillingService(pool *pgxpool.Pool, defaultCompany string) BillingService {
	return &billingService{pool: pool, defaultCompany: defaultCompany}
}

func (s *billingService) MakeSalesOrderDraft(ctx context.Context, requestID string) (*SalesOrderDraft, error) {
	req, err := s.loadServiceRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	items, err := BillableItems(req)
	if err != nil {
		return nil, err
	}
	return &SalesOrderDraft{
		ServiceRequest: req.ID,
		Customer:       req.Customer,
		Company:        companyOrDefault(req.Company, s.defaultCompany),
		Items:          items,
	}, nil
}

func (s *billingService) MakeSalesInvoiceDraft(ctx context.Context, requestID string) (*SalesInvoiceDraft, error) {
	req, err := s.loadServiceRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	items, err := BillableItems(req)
	if err != nil {
		return nil, err
	}
	return &SalesInvoiceDraft{
		ServiceRequest: req.ID,
		Customer:       req.Customer,
		Company:        companyOrDefault(req.Company, s.defaultCompany),
		Items:          items,
	}, nil
}

func (s *billingService) loadServiceRequest(ctx context.Context, requestID string) (*ServiceRequest, error) {
	req := &ServiceRequest{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, COALESCE(customer, ''), COALESCE(company, ''),
		       COALESCE(sales_order_ref, ''), COALESCE(sales_invoice_ref, ''),
		       COALESCE(status_summary_text, ''), docstatus
		FROM service_requests
		WHERE id = $1
	`, requestID).Scan(
		&req.ID, &req.Customer, &req.Company,
		&req.SalesOrderRef, &req.SalesInvoiceRef,
		&req.StatusSummary, &req.DocStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service request %s not found", requestID)
		}
		return nil, fmt.Errorf("load service request: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT idx, COALESCE(item_code, ''), COALESCE(item_name, ''),
		       COALESCE(qty, 1), COALESCE(gov_charge, 0), COALESCE(service_charge, 0),
		       COALESCE(amount, 0), COALESCE(status, ''), COALESCE(payment_type, '')
		FROM service_request_items
		WHERE parent = $1
		ORDER BY idx
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("load service request items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item WorkItem
		if err := rows.Scan(
			&item.Idx, &item.ItemCode, &item.ItemName,
			&item.Qty, &item.GovCharge, &item.ServiceCharge,
			&item.Amount, &item.Status, &item.PaymentType,
		); err != nil {
			return nil, fmt.Errorf("scan service request item: %w", err)
		}
		req.Items = append(req.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service request items: %w", err)
	}
	return req, nil
}

// BillableItems projects a request's completed work items into sales lines,
// validating that every completed row carries a payment type.
func BillableItems(req *ServiceRequest) ([]SalesOrderItem, error) {
	if err := ValidateWorkItems(req.Items); err != nil {
		return nil, err
	}

	var items []SalesOrderItem
	for _, item := range req.Items {
		if !isCompleted(item.Status) {
			continue
		}
		name := item.ItemName
		if name == "" {
			name = item.ItemCode
		}
		items = append(items, SalesOrderItem{
			ItemCode:    item.ItemCode,
			ItemName:    name,
			Qty:         item.Qty,
			Rate:        item.GovCharge.Add(item.ServiceCharge),
			Description: fmt.Sprintf("Gov: %s | Service: %s", item.GovCharge, item.ServiceCharge),
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("service request %s has no completed work items to bill", req.ID)
	}
	return items, nil
}

// DeriveBillingStatus walks the billing ladder for a service request:
// invoiced and ordered references win, then the completion state of the
// work items decides between ready and in progress.
func DeriveBillingStatus(req ServiceRequest) string {
	if req.SalesInvoiceRef != "" {
		return BillingInvoiced
	}
	if req.SalesOrderRef != "" {
		return BillingSalesOrderCreated
	}
	if len(req.Items) == 0 {
		return BillingNoWorkItems
	}
	for _, item := range req.Items {
		if !isCompleted(item.Status) {
			return BillingInProgress
		}
	}
	return BillingReady
}

// ValidateWorkItems requires a payment type on every completed row, naming
// the offending rows by index.
func ValidateWorkItems(items []WorkItem) error {
	var missing []string
	for _, item := range items {
		if isCompleted(item.Status) && item.PaymentType == "" {
			label := strconv.Itoa(item.Idx)
			if item.Idx == 0 && item.ItemCode != "" {
				label = item.ItemCode
			}
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("select payment type for completed rows: %s", strings.Join(missing, ", "))
	}
	return nil
}

func isCompleted(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "completed")
}

func companyOrDefault(company, fallback string) string {
	if company != "" {
		return company
	}
	return fallback
}
