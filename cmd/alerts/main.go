// Command alerts is the scheduler entry point for the document expiry alert
// engine. A cron job runs `alerts run` once a day; `test-email` and
// `test-sms` verify the transport configuration outside the scheduled run.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

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
	settings, err := settingsService.Load(ctx)
	if err != nil {
		log.Fatalf("alert settings: %v", err)
	}
	gateway, err := settingsService.LoadSMSGateway(ctx)
	if err != nil {
		log.Fatalf("SMS gateway settings: %v", err)
	}

	mailer, err := mail.FromEnv()
	if err != nil {
		log.Fatalf("mail transport: %v", err)
	}

	engine := core.NewEngine(
		core.NewScanService(pool),
		core.NewAlertLogService(pool),
		mailer,
		sms.NewSender(gateway),
		os.Getenv("ERP_BASE_URL"),
	)

	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "run":
		run, err := engine.Run(ctx, settings, time.Now())
		if err != nil {
			// the log record is already persisted; exit non-zero so the
			// scheduler's own failure policy kicks in
			log.Fatalf("alert run failed: %v", err)
		}
		log.Printf("alert run finished: status=%s records=%d emails=%d/%d sms=%d/%d",
			run.Status, run.TotalRecords,
			run.EmailsSent, run.EmailAttempts,
			run.SMSSent, run.SMSAttempts)

	case "test-email":
		if err := engine.SendTestEmail(ctx, settings); err != nil {
			log.Fatalf("test email: %v", err)
		}
		fmt.Println("Test email sent successfully.")

	case "test-sms":
		if err := engine.SendTestSMS(ctx, settings, gateway); err != nil {
			log.Fatalf("test SMS: %v", err)
		}
		fmt.Println("Test SMS sent successfully.")

	default:
		log.Fatalf("unknown command: %s (expected run, test-email or test-sms)", command)
	}
}
