package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/enrichment-backend/internal/app"
)

// Runs both reconciler sweeps once and exits; for cron deployments without
// Temporal.
func main() {
	_ = godotenv.Load()

	log, err := app.NewLogger()
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, log)
	if err != nil {
		log.Error("init app failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	res, err := application.Services.Reconciler.Sweep(ctx)
	if err != nil {
		log.Error("reconcile sweep failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("retry_exhausted=%d intake_timed_out=%d\n", res.RetryExhausted, res.IntakeTimedOut)
}
