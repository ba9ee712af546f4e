package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/enrichment-backend/internal/app"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/temporalx"
	"github.com/yungbote/enrichment-backend/internal/temporalx/temporalworker"
)

func main() {
	_ = godotenv.Load()

	log, err := app.NewLogger()
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, log)
	if err != nil {
		log.Error("init app failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	shutdownOtel := observability.InitOTel(ctx, log, application.Cfg.OtelSettings())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	application.Start(ctx)

	temporalCfg := temporalx.LoadConfig()
	tc, err := temporalx.NewClient(ctx, log, temporalCfg)
	if err != nil {
		log.Error("temporal client init failed", "error", err)
		os.Exit(1)
	}
	if tc != nil {
		defer tc.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.Run(gctx)
	})
	if tc != nil {
		runner, err := temporalworker.NewRunner(log, tc, temporalCfg, application.Services.Reconciler)
		if err != nil {
			log.Error("temporal runner init failed", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := runner.Start(gctx); err != nil {
				return fmt.Errorf("temporal worker: %w", err)
			}
			return runner.EnsureReconcileWorkflow(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
