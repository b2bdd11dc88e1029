// Command server exposes the RPC surface: billing drafts, reports, and the
// manual alert run/test endpoints.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "service-workorder/internal/adapters/web"
	"service-workorder/internal/core"
	"service-workorder/internal/db"
	"service-workorder/internal/mail"
	"service-workorder/internal/sms"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	settingsService := core.NewSettingsService(pool)
	billingService := core.NewBillingService(pool, os.Getenv("DEFAULT_COMPANY"))
	reportingService := core.NewReportingService(pool)

	mailer, err := mail.FromEnv()
	if err != nil {
		log.Fatalf("mail transport: %v", err)
	}

	// the gateway settings are re-read per test-send by the handler, but the
	// engine's sender needs an initial snapshot for scheduled-style runs
	gateway, err := settingsService.LoadSMSGateway(ctx)
	if err != nil {
		log.Fatalf("SMS gateway settings: %v", err)
	}

	engine := core.NewEngine(
		core.NewScanService(pool),
		core.NewAlertLogService(pool),
		mailer,
		sms.NewSender(gateway),
		os.Getenv("ERP_BASE_URL"),
	)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(billingService, reportingService, settingsService, engine, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
