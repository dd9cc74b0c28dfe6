package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/catalogsync/internal/app"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	logCfg := &logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "catalogsync-ingest",
	}
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	run := flag.Bool("run", false, "Start an import and step it to completion in the foreground")
	step := flag.Bool("step", false, "Apply one batch of the running import")
	stop := flag.Bool("stop", false, "Stop the running import")
	status := flag.Bool("status", false, "Print the import job status")
	seed := flag.Bool("seed", false, "Register taxonomies and seed category terms")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	logCfg = app.LoggerConfig(cfg.Log, logCfg.ServiceName)
	appLogger = logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logCfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize importer")
	}
	defer a.Close()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	switch {
	case *seed:
		stats, err := service.SeedCatalog(appLogger.WithContext(ctx), a.Catalog, cfg.Importer.ShippingClass)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to seed catalog")
		}
		appLogger.WithFields(logger.Fields{
			"taxonomies": stats.Taxonomies,
			"terms":      stats.Terms,
		}).Info("Catalog seeded")

	case *run:
		job, err := a.Import.Start(ctx, domain.TriggerManual)
		if err != nil && !errors.Is(err, service.ErrImportRunning) {
			appLogger.WithError(err).Fatal("Failed to start import")
		}
		if job != nil {
			appLogger.WithFields(logger.Fields{
				logger.FieldRunID: job.RunID,
				"total":           job.Total,
			}).Info("Import started")
		}
		// Step in the foreground instead of on the driver's timer.
		a.Driver.Cancel()
		result, err := a.Driver.Run(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Import did not finish")
		}
		logResult(appLogger, result)

	case *step:
		result, err := a.Import.Step(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to apply batch")
		}
		logResult(appLogger, result)

	case *stop:
		job, err := a.Import.Stop(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to stop import")
		}
		logJob(appLogger, job)

	case *status:
		job, err := a.Import.Status(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to read import status")
		}
		logJob(appLogger, job)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func logResult(log *logger.Logger, result *service.StepResult) {
	if result == nil {
		log.Info("No active import")
		return
	}
	log.WithFields(logger.Fields{
		logger.FieldRunID: result.RunID,
		"processed":       result.Processed,
		"total":           result.Total,
		"succeeded":       result.Succeeded,
		"failed":          result.Failed,
		"status":          result.Status,
	}).Info(result.Message)
}

func logJob(log *logger.Logger, job *domain.ImportJob) {
	log.WithFields(logger.Fields{
		logger.FieldRunID: job.RunID,
		"status":          job.Status,
		"processed":       job.Processed,
		"failed":          job.Failed,
		"total":           job.Total,
	}).Info(job.Message)
}
