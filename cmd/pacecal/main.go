package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pacecal/internal/amqp"
	"pacecal/internal/auth"
	"pacecal/internal/billing"
	"pacecal/internal/cli"
	"pacecal/internal/crm"
	apphttp "pacecal/internal/http"
	"pacecal/internal/importer/google"
	applog "pacecal/internal/log"
	"pacecal/internal/tracker"
	"pacecal/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := tracker.New(ctx, repo, nil)

	// With a spreadsheet ID configured, sync reads through the Sheets API
	// instead of the public CSV export.
	if cfg.SheetsAPIEnabled() {
		src, err := google.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Sheets API source", "error", err)
			os.Exit(1)
		}
		tr.UseSource(src)
		logger.Info("Sheets API source enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	// A sheet URL from the environment seeds the settings on first run.
	if cfg.SheetURL != "" && tr.SheetURL() == "" {
		settings := tr.Settings()
		settings.SheetURL = cfg.SheetURL
		tr.UpdateSettings(ctx, settings)
		logger.Info("Seeded sheet URL from environment")
	}
	if cfg.DefaultGoalAmount > 0 && tr.Settings().GoalAmount == 0 {
		settings := tr.Settings()
		settings.GoalAmount = cfg.DefaultGoalAmount
		tr.UpdateSettings(ctx, settings)
	}

	syncWorker := worker.NewSyncWorker(tr, worker.SyncWorkerConfig{
		Interval:    cfg.SyncInterval,
		SyncOnStart: cfg.SyncOnStart,
	})

	deps := apphttp.Deps{
		Tracker:        tr,
		Worker:         syncWorker,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.AuthEnabled() {
		deps.Auth = auth.NewVerifier(cfg.AuthDomain, cfg.AuthAudience, nil)
		logger.Info("Token verification enabled", "domain", cfg.AuthDomain)
	}
	if cfg.CRMToken != "" {
		deps.CRM = crm.New(crm.Config{
			Token:           cfg.CRMToken,
			LocationID:      cfg.CRMLocationID,
			LastUsedFieldID: cfg.CRMLastUsedFieldID,
		}, nil)
	}
	if cfg.BillingSecretKey != "" {
		deps.Billing = billing.New(billing.Config{
			SecretKey: cfg.BillingSecretKey,
			ReturnURL: cfg.BillingReturnURL,
		}, nil)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		deps.Events = amqpClient
		logger.Info("Usage telemetry queue enabled", "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := syncWorker.Stop(shutdownCtx); err != nil {
			logger.Error("Sync worker stop error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting pacecal server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return syncWorker.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
