package core_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"service-workorder/internal/core"
)

func workItem(idx int, status, paymentType string) core.WorkItem {
	return core.WorkItem{
		Idx:           idx,
		ItemCode:      "SRV-VISA",
		ItemName:      "Visa Processing",
		Qty:           decimal.NewFromInt(1),
		GovCharge:     decimal.NewFromInt(300),
		ServiceCharge: decimal.NewFromInt(150),
		Status:        status,
		PaymentType:   paymentType,
	}
}

func TestBillableItems(t *testing.T) {
	req := &core.ServiceRequest{
		ID: "SR-0001",
		Items: []core.WorkItem{
			workItem(1, "Completed", "Cash"),
			workItem(2, "Pending", ""),
			workItem(3, "completed", "Credit"),
		},
	}

	items, err := core.BillableItems(req)
	if err != nil {
		t.Fatalf("BillableItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (pending rows are skipped)", len(items))
	}

	want := decimal.NewFromInt(450)
	if !items[0].Rate.Equal(want) {
		t.Errorf("Rate = %s, want %s", items[0].Rate, want)
	}
	if !strings.Contains(items[0].Description, "Gov: 300") || !strings.Contains(items[0].Description, "Service: 150") {
		t.Errorf("Description = %q", items[0].Description)
	}
}

func TestBillableItems_NoCompletedRows(t *testing.T) {
	req := &core.ServiceRequest{
		ID:    "SR-0002",
		Items: []core.WorkItem{workItem(1, "Pending", "")},
	}

	_, err := core.BillableItems(req)
	if err == nil || !strings.Contains(err.Error(), "no completed work items") {
		t.Errorf("err = %v, want no-completed-items error", err)
	}
}

func TestBillableItems_MissingPaymentType(t *testing.T) {
	req := &core.ServiceRequest{
		ID: "SR-0003",
		Items: []core.WorkItem{
			workItem(1, "Completed", "Cash"),
			workItem(2, "Completed", ""),
		},
	}

	_, err := core.BillableItems(req)
	if err == nil || !strings.Contains(err.Error(), "select payment type for completed rows: 2") {
		t.Errorf("err = %v, want payment-type error naming row 2", err)
	}
}

func TestValidateWorkItems(t *testing.T) {
	err := core.ValidateWorkItems([]core.WorkItem{
		workItem(1, "Completed", ""),
		workItem(2, "Pending", ""),
		workItem(3, "Completed", ""),
	})
	if err == nil || !strings.Contains(err.Error(), "1, 3") {
		t.Errorf("err = %v, want error naming rows 1, 3", err)
	}

	if err := core.ValidateWorkItems(nil); err != nil {
		t.Errorf("empty items: %v", err)
	}
}

func TestDeriveBillingStatus(t *testing.T) {
	tests := []struct {
		name string
		req  core.ServiceRequest
		want string
	}{
		{
			name: "invoice reference wins",
			req: core.ServiceRequest{
				SalesInvoiceRef: "SINV-001",
				SalesOrderRef:   "SO-001",
				Items:           []core.WorkItem{workItem(1, "Pending", "")},
			},
			want: core.BillingInvoiced,
		},
		{
			name: "order reference next",
			req: core.ServiceRequest{
				SalesOrderRef: "SO-001",
				Items:         []core.WorkItem{workItem(1, "Pending", "")},
			},
			want: core.BillingSalesOrderCreated,
		},
		{
			name: "no items",
			req:  core.ServiceRequest{},
			want: core.BillingNoWorkItems,
		},
		{
			name: "all completed",
			req: core.ServiceRequest{
				Items: []core.WorkItem{
					workItem(1, "Completed", "Cash"),
					workItem(2, "Completed", "Cash"),
				},
			},
			want: core.BillingReady,
		},
		{
			name: "some pending",
			req: core.ServiceRequest{
				Items: []core.WorkItem{
					workItem(1, "Completed", "Cash"),
					workItem(2, "Pending", ""),
				},
			},
			want: core.BillingInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.DeriveBillingStatus(tt.req); got != tt.want {
				t.Errorf("DeriveBillingStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
