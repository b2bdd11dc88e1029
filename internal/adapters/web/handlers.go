// Package web exposes the RPC surface of the service workorder extension:
// billing document drafts, SQL reports, and the alert run/test endpoints.
package web

import (
	"net/http"
	"strings"
	"time"

	"service-workorder/internal/core"

	"github.com/go-chi/chi/v5"
)

// Handler wires the domain services into the chi router.
type Handler struct {
	billing   core.BillingService
	reporting core.ReportingService
	settings  core.SettingsService
	engine    *core.Engine
	router    chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(billing core.BillingService, reporting core.ReportingService, settings core.SettingsService, engine *core.Engine, allowedOrigins string) http.Handler {
	h := &Handler{
		billing:   billing,
		reporting: reporting,
		settings:  settings,
		engine:    engine,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20))

	r.Get("/api/health", h.health)

	r.Post("/api/service-requests/{id}/sales-order", h.makeSalesOrder)
	r.Post("/api/service-requests/{id}/sales-invoice", h.makeSalesInvoice)

	r.Get("/api/reports/service-requests", h.serviceRequestReport)
	r.Get("/api/reports/employees/missing-ids", h.employeeMissingIDs)

	r.Post("/api/alerts/run", h.runAlerts)
	r.Post("/api/alerts/test-email", h.testEmail)
	r.Post("/api/alerts/test-sms", h.testSMS)

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// makeSalesOrder handles POST /api/service-requests/{id}/sales-order.
func (h *Handler) makeSalesOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	draft, err := h.billing.MakeSalesOrderDraft(r.Context(), id)
	if err != nil {
		status, code := billingErrorStatus(err)
		writeError(w, r, err.Error(), code, status)
		return
	}
	writeJSON(w, draft)
}

// makeSalesInvoice handles POST /api/service-requests/{id}/sales-invoice.
func (h *Handler) makeSalesInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	draft, err := h.billing.MakeSalesInvoiceDraft(r.Context(), id)
	if err != nil {
		status, code := billingErrorStatus(err)
		writeError(w, r, err.Error(), code, status)
		return
	}
	writeJSON(w, draft)
}

func billingErrorStatus(err error) (int, string) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound, "NOT_FOUND"
	case strings.Contains(msg, "no completed work items"),
		strings.Contains(msg, "payment type"):
		return http.StatusBadRequest, "INVALID_REQUEST"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (h *Handler) serviceRequestReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reporting.ServiceRequestReport(r.Context())
	if err != nil {
		writeError(w, r, "failed to build service request report", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"rows": rows})
}

func (h *Handler) employeeMissingIDs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := core.MissingIDFilters{
		Customer:          q.Get("customer"),
		EmployeeType:      q.Get("employee_type"),
		RequireUID:        q.Get("require_uid") == "1",
		RequireDepartment: q.Get("require_department") == "1",
	}
	rows, err := h.reporting.EmployeeMissingIDs(r.Context(), filters)
	if err != nil {
		writeError(w, r, "failed to build missing IDs report", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"rows": rows})
}

// runAlerts triggers one alert run outside the scheduled cadence, using the
// same settings snapshot behavior as the scheduler entry point.
func (h *Handler) runAlerts(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Load(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "SETTINGS_ERROR", http.StatusInternalServerError)
		return
	}

	run, err := h.engine.Run(r.Context(), settings, time.Now())
	if err != nil {
		writeError(w, r, err.Error(), "RUN_FAILED", http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

func (h *Handler) testEmail(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Load(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "SETTINGS_ERROR", http.StatusInternalServerError)
		return
	}

	if err := h.engine.SendTestEmail(r.Context(), settings); err != nil {
		writeError(w, r, err.Error(), "TEST_EMAIL_FAILED", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"message": "Test email sent successfully."})
}

func (h *Handler) testSMS(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Load(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "SETTINGS_ERROR", http.StatusInternalServerError)
		return
	}
	gateway, err := h.settings.LoadSMSGateway(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "SETTINGS_ERROR", http.StatusInternalServerError)
		return
	}

	if err := h.engine.SendTestSMS(r.Context(), settings, gateway); err != nil {
		writeError(w, r, err.Error(), "TEST_SMS_FAILED", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"message": "Test SMS sent successfully."})
}
