package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pacecal/internal/amqp"
	"pacecal/internal/cli"
	"pacecal/internal/crm"
	applog "pacecal/internal/log"
)

// pacecal-worker drains the usage telemetry queue and reflects the
// events into the CRM: a note on the contact plus a last-used stamp.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting pacecal-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.CRMToken == "" {
		logger.Error("CRM_TOKEN is required for the worker")
		os.Exit(1)
	}

	crmClient := crm.New(crm.Config{
		Token:           cfg.CRMToken,
		LocationID:      cfg.CRMLocationID,
		LastUsedFieldID: cfg.CRMLastUsedFieldID,
	}, nil)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := amqpClient.ConsumeUsageEvents(ctx, func(msg *amqp.UsageEventMessage) error {
			return handleUsageEvent(ctx, logger, crmClient, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Usage event consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}

// handleUsageEvent applies one queued event to the CRM. The contact note
// fails the delivery (and requeues); the last-used stamp is best-effort.
func handleUsageEvent(ctx context.Context, logger *applog.Logger, client *crm.Client, msg *amqp.UsageEventMessage) error {
	if msg.ContactID != "" {
		if err := client.AddContactNote(ctx, msg.ContactID, msg.Note); err != nil {
			return err
		}
	}

	if msg.Email != "" || msg.Subject != "" {
		if err := client.RecordLastUsed(ctx, msg.Email, msg.Subject); err != nil {
			logger.WarnContext(ctx, "CRM last-used upsert failed",
				"error", err,
				"subject", msg.Subject)
		}
	}

	logger.InfoContext(ctx, "Usage event applied",
		"event", msg.Event,
		"subject", msg.Subject)
	return nil
}
