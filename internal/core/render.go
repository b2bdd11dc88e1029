package core

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Alert email and SMS bodies. The email is a bordered table of the bundle's
// documents with a link back to the source record; the SMS is a single line
// listing each document with its expiry date.

var emailBodyTmpl = template.Must(template.New("alertEmail").Funcs(template.FuncMap{
	"formatDate": formatDate,
	"dueLabel":   dueLabel,
}).Parse(`{{if .Intro}}<p>The following document(s) for <strong>{{.Title}}</strong> are due soon:</p>
{{end}}{{if .CustomerLine}}<p>Customer: <strong>{{.CustomerName}}</strong></p>
{{end}}<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse;">
<thead>
<tr><th>Document</th><th>Document Number</th><th>Expiry Date</th><th>Due In</th><th>Notes</th></tr>
</thead>
<tbody>
{{range .Documents}}<tr><td>{{.Label}}</td><td>{{.Number}}</td><td>{{formatDate .ExpiryDate}}</td><td>{{dueLabel .DaysLeft}}</td><td>{{.Notes}}</td></tr>
{{end}}</tbody>
</table>
{{if .Link}}<p>Record: <a href="{{.Link}}">{{.Parent}}</a></p>
{{end}}`))

type emailBodyData struct {
	Intro        bool
	Title        string
	CustomerLine bool
	CustomerName string
	Documents    []DocumentEntry
	Link         string
	Parent       string
}

// EmailSubject is the per-bundle alert subject line.
func EmailSubject(b Bundle) string {
	return "Document Expiry Alert - " + b.Title
}

// RenderEmailBody renders the HTML alert body for one bundle. baseURL is the
// ERP host used for the record link; when empty the link is relative.
func RenderEmailBody(b Bundle, baseURL string) (string, error) {
	return renderBody(b, baseURL, true)
}

func renderBody(b Bundle, baseURL string, intro bool) (string, error) {
	data := emailBodyData{
		Intro:        intro,
		Title:        b.Title,
		CustomerLine: b.CustomerName != "" && b.ParentType == ParentEmployeeRegistration,
		CustomerName: b.CustomerName,
		Documents:    b.Documents,
		Link:         recordLink(baseURL, b.ParentType, b.Parent),
		Parent:       b.Parent,
	}
	var sb strings.Builder
	if err := emailBodyTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return sb.String(), nil
}

// DigestSubject is the consolidated admin email subject line.
func DigestSubject(today time.Time) string {
	return "Document Expiry Summary - " + formatDate(today)
}

// RenderDigestBody renders the consolidated admin email: one titled section
// per bundle, documents only.
func RenderDigestBody(bundles []Bundle, baseURL string, today time.Time) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p>The following document alerts were generated on %s:</p>\n", formatDate(today))
	for _, b := range bundles {
		body, err := renderBody(b, baseURL, false)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, `<div style="margin-bottom:18px;"><h3 style="margin:0 0 6px 0;">%s</h3>%s</div>`,
			template.HTMLEscapeString(b.Title), body)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// RenderSMS builds the single-line SMS alert for one bundle, optionally
// suffixed with the configured signature.
func RenderSMS(b Bundle, signature string) string {
	bits := make([]string, 0, len(b.Documents))
	for _, doc := range b.Documents {
		bits = append(bits, fmt.Sprintf("%s (%s)", doc.Label, doc.ExpiryDate.Format("02-Jan")))
	}
	msg := b.Title + " doc alert: " + strings.Join(bits, "; ")
	if signature != "" {
		msg += " " + signature
	}
	return msg
}

// dueLabel renders a human "due in" label: "Today", "1 day", "N days".
func dueLabel(days int) string {
	switch days {
	case 0:
		return "Today"
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// formatDate renders dates the way the ERP displays them.
func formatDate(t time.Time) string {
	return t.Format("02-01-2006")
}

// recordLink builds the ERP form URL for a registration record.
func recordLink(baseURL, parentType, parent string) string {
	slug := strings.ToLower(strings.ReplaceAll(parentType, " ", "-"))
	return fmt.Sprintf("%s/app/%s/%s", strings.TrimRight(baseURL, "/"), slug, parent)
}
