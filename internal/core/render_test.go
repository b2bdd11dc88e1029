package core_test

import (
	"strings"
	"testing"
	"time"

	"service-workorder/internal/core"
)

func renderBundle() core.Bundle {
	return core.Bundle{
		Parent:     "EMP-001",
		ParentType: core.ParentEmployeeRegistration,
		Title:      "Jamila Hassan",
		Documents: []core.DocumentEntry{
			{Label: "Visa", Number: "V-123", ExpiryDate: expiryIn(0), DaysLeft: 0},
			{Label: "Passport", Number: "P-456", ExpiryDate: expiryIn(1), DaysLeft: 1, Notes: "renewal filed"},
			{Label: "Emirates ID", Number: "E-789", ExpiryDate: expiryIn(7), DaysLeft: 7},
		},
	}
}

func TestEmailSubject(t *testing.T) {
	got := core.EmailSubject(core.Bundle{Title: "Acme Trading LLC"})
	if got != "Document Expiry Alert - Acme Trading LLC" {
		t.Errorf("EmailSubject = %q", got)
	}
}

func TestRenderEmailBody(t *testing.T) {
	b := renderBundle()
	b.CustomerName = "Acme Trading LLC"

	body, err := core.RenderEmailBody(b, "https://erp.example.com/")
	if err != nil {
		t.Fatalf("RenderEmailBody: %v", err)
	}

	for _, want := range []string{
		"<strong>Jamila Hassan</strong>",
		"Customer: <strong>Acme Trading LLC</strong>",
		"<td>Visa</td>",
		"<td>Today</td>",
		"<td>1 day</td>",
		"<td>7 days</td>",
		"<td>renewal filed</td>",
		`href="https://erp.example.com/app/customer-employee-registration/EMP-001"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\nbody: %s", want, body)
		}
	}
}

func TestRenderEmailBody_CustomerLineOnlyForEmployees(t *testing.T) {
	b := renderBundle()
	b.ParentType = core.ParentCustomerRegistration
	b.CustomerName = "Acme Trading LLC"

	body, err := core.RenderEmailBody(b, "")
	if err != nil {
		t.Fatalf("RenderEmailBody: %v", err)
	}
	if strings.Contains(body, "Customer: <strong>") {
		t.Error("customer bundle body should not carry the customer line")
	}
}

func TestRenderEmailBody_EscapesHTML(t *testing.T) {
	b := renderBundle()
	b.Title = `<script>alert("x")</script>`

	body, err := core.RenderEmailBody(b, "")
	if err != nil {
		t.Fatalf("RenderEmailBody: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("title was not escaped")
	}
}

func TestDigest(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	if got := core.DigestSubject(day); got != "Document Expiry Summary - 31-08-2026" {
		t.Errorf("DigestSubject = %q", got)
	}

	first := renderBundle()
	second := renderBundle()
	second.Parent = "EMP-002"
	second.Title = "Omar Said"

	body, err := core.RenderDigestBody([]core.Bundle{first, second}, "", day)
	if err != nil {
		t.Fatalf("RenderDigestBody: %v", err)
	}
	for _, want := range []string{
		"generated on 31-08-2026",
		"<h3 style=\"margin:0 0 6px 0;\">Jamila Hassan</h3>",
		"<h3 style=\"margin:0 0 6px 0;\">Omar Said</h3>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("digest missing %q", want)
		}
	}
	// sections drop the per-bundle intro line
	if strings.Contains(body, "are due soon") {
		t.Error("digest sections should not carry the per-bundle intro")
	}
}

func TestRenderSMS(t *testing.T) {
	b := core.Bundle{
		Title: "Acme Trading LLC",
		Documents: []core.DocumentEntry{
			{Label: "Trade License", ExpiryDate: time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)},
			{Label: "Visa", ExpiryDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)},
		},
	}

	got := core.RenderSMS(b, "")
	want := "Acme Trading LLC doc alert: Trade License (03-Sep); Visa (10-Sep)"
	if got != want {
		t.Errorf("RenderSMS = %q, want %q", got, want)
	}

	got = core.RenderSMS(b, "- Gulf Services")
	if !strings.HasSuffix(got, " - Gulf Services") {
		t.Errorf("RenderSMS with signature = %q", got)
	}
}
