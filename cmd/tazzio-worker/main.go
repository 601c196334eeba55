package main

import (
	"context"
	"errors"
	"os"

	"tazzio/internal/amqp"
	"tazzio/internal/cli"
	"tazzio/internal/config"
	"tazzio/internal/log"
	"tazzio/internal/sheets"
	gsheet "tazzio/internal/sheets/google"
	"tazzio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Worker uses the memory backend, category and buyer names fall back to defaults")
	}

	// The worker only reads settings; it must not publish events of its own.
	readCfg := *cfg
	readCfg.AMQPURL = ""
	be, err := cli.OpenBackend(context.Background(), &readCfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	var exporter sheets.Exporter
	if cfg.SheetsEnabled() {
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			logger.Error("Failed to read Google credentials", log.FieldError, err)
			os.Exit(1)
		}
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: creds,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Info("Google Sheets disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewExportWorker(be.Remote, exporter, logger)

	// Consumption stops on cancellation; resources are released after it returned.
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	logger.Info("Starting tazzio-worker", "queue", cfg.AMQPQueue, "sheets_enabled", exporter != nil)
	if err := consumer.ConsumeMessages(ctx, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	if err := consumer.Close(); err != nil {
		logger.Error("AMQP close error", log.FieldError, err)
	}
	if be.Cleanup != nil {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}
	st := w.Stats()
	logger.Info("Worker stopped",
		"exported", st.Exported,
		"deleted", st.Deleted,
		"reset_requests", st.ResetRequests,
		"failures", st.Failures)
}
