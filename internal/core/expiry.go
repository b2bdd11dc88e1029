package core

import (
	"sort"
	"time"
)

// NewDocumentEntry applies the alert-window test to one scan row and returns
// the document entry to include in a bundle, or ok=false when the row should
// not fire today.
//
// The window is alert_days wide (row-level override wins over the type
// default). A row fires when expiry is between today and alert_days from
// now, and only on days where the age of the window is a multiple of the
// repeat interval, so repeats are throttled rather than sent daily.
func NewDocumentEntry(row AlertRow, today time.Time) (DocumentEntry, bool) {
	if row.ExpiryDate.IsZero() {
		return DocumentEntry{}, false
	}

	alertDays := row.AlertDays
	if alertDays == 0 {
		alertDays = row.DefaultAlertDays
	}
	if alertDays <= 0 {
		return DocumentEntry{}, false
	}

	daysLeft := daysBetween(today, row.ExpiryDate)
	if daysLeft < 0 || daysLeft > alertDays {
		return DocumentEntry{}, false
	}

	repeatInterval := row.RepeatInterval
	if repeatInterval == 0 {
		repeatInterval = row.DefaultRepeatInterval
	}
	if repeatInterval <= 0 {
		repeatInterval = 1
	}

	windowAge := alertDays - daysLeft
	if windowAge%repeatInterval != 0 {
		return DocumentEntry{}, false
	}

	label := row.DocumentName
	if label == "" {
		label = row.DocumentType
	}
	if label == "" {
		label = "Document"
	}

	return DocumentEntry{
		Label:      label,
		Number:     row.DocumentNumber,
		ExpiryDate: row.ExpiryDate,
		DaysLeft:   daysLeft,
		Notes:      row.Notes,
	}, true
}

// Aggregate groups flat scan rows into one bundle per parent registration.
// Rows that fail the alert-window test are skipped entirely and never create
// or contribute to a bundle. The first surviving row of a parent initializes
// the bundle title via titleOf (falling back to the parent id) and carries
// the customer name through for employee bundles. Every allowed contact
// source on a row marks its channel allowed and unions its contacts into the
// bundle's recipient set.
//
// Documents within a bundle are sorted ascending by days left, and bundles
// are returned in first-appearance order of their parent. Bundles that end
// up with no documents are dropped; this cannot happen given the per-row
// skip but is kept as a guard.
func Aggregate(rows []AlertRow, parentType string, titleOf func(AlertRow) string, today time.Time) []Bundle {
	grouped := make(map[string]*Bundle)
	var order []string

	for _, row := range rows {
		entry, ok := NewDocumentEntry(row, today)
		if !ok {
			continue
		}

		bundle, exists := grouped[row.Parent]
		if !exists {
			title := titleOf(row)
			if title == "" {
				title = row.Parent
			}
			bundle = &Bundle{
				Parent:          row.Parent,
				ParentType:      parentType,
				Title:           title,
				CustomerName:    row.CustomerName,
				EmailRecipients: NewRecipientSet(),
				SMSRecipients:   NewRecipientSet(),
			}
			grouped[row.Parent] = bundle
			order = append(order, row.Parent)
		}

		bundle.Documents = append(bundle.Documents, entry)

		for _, src := range row.EmailSources {
			if src.Allowed {
				bundle.AllowEmail = true
				bundle.EmailRecipients.AddAll(src.Contacts)
			}
		}
		for _, src := range row.SMSSources {
			if src.Allowed {
				bundle.AllowSMS = true
				bundle.SMSRecipients.AddAll(src.Contacts)
			}
		}
	}

	bundles := make([]Bundle, 0, len(order))
	for _, parent := range order {
		bundle := grouped[parent]
		if len(bundle.Documents) == 0 {
			continue
		}
		sort.SliceStable(bundle.Documents, func(i, j int) bool {
			return bundle.Documents[i].DaysLeft < bundle.Documents[j].DaysLeft
		})
		bundles = append(bundles, *bundle)
	}

	return bundles
}

// daysBetween returns whole calendar days from today until target, negative
// when target is in the past. Both arguments are truncated to their civil
// date so time-of-day and zone offsets cannot skew the count.
func daysBetween(today, target time.Time) int {
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24)
}

// customerTitle labels a customer bundle: display name, then customer code,
// then the registration id.
func customerTitle(row AlertRow) string {
	if row.CustomerName != "" {
		return row.CustomerName
	}
	if row.Customer != "" {
		return row.Customer
	}
	return row.Parent
}

// employeeTitle labels an employee bundle: employee name, then the
// employer's customer name, then the registration id.
func employeeTitle(row AlertRow) string {
	if row.FullName != "" {
		return row.FullName
	}
	if row.CustomerName != "" {
		return row.CustomerName
	}
	return row.Parent
}
