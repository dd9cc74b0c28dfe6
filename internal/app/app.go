// Package app wires configuration into the importer's object graph shared
// by the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/catalogsync/internal/catalog"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/feed"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/repository"
	"github.com/timmy/catalogsync/internal/service"
	"github.com/timmy/catalogsync/internal/staging"
	"github.com/timmy/catalogsync/internal/storage"
	"gorm.io/gorm"
)

// SourceName marks products created by the importer.
const SourceName = "juta"

// App holds the long-lived components of one process.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Objects   storage.ObjectStorage
	Catalog   *repository.CatalogRepository
	Import    *service.ImportService
	Driver    *service.Driver
	Daily     *service.DailyScheduler
	ImportLog *logger.Logger
}

// LoggerConfig maps the log section onto the process logger, with the
// rotated file enabled when log.file is set.
func LoggerConfig(cfg config.LogConfig, serviceName string) *logger.Config {
	lc := &logger.Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		ServiceName: serviceName,
	}
	if cfg.File != "" {
		lc.Rotation = &logger.RotationConfig{
			File:       cfg.File,
			FileOnly:   cfg.FileOnly,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}
	return lc
}

// Build opens the database and object storage and assembles the import
// pipeline. The driver's background steps run under ctx.
func Build(ctx context.Context, cfg *config.Config, base *logger.Config) (*App, error) {
	hook, err := logger.NewDailyFileHook(cfg.Log.ImportDir, cfg.Log.Retention)
	if err != nil {
		return nil, err
	}
	importLog := logger.NewImportLogger(base, cfg.Log.ImportLevel, hook).
		WithField(logger.FieldComponent, "importer")

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	objects, err := storage.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	catalogRepo := repository.NewCatalogRepository(db)
	images := catalog.NewImageIndex(
		repository.NewAssetRepository(db),
		objects,
		catalog.NewHTTPDownloader(cfg.Importer.ImageTimeout),
		importLog,
	)
	transformer := catalog.NewTransformer(catalogRepo, catalog.NewTermResolver(catalogRepo), images, importLog, catalog.TransformerConfig{
		ShippingClass: cfg.Importer.ShippingClass,
		MetaPrefix:    cfg.Importer.MetaPrefix,
		Source:        SourceName,
		TaxRate:       cfg.Importer.TaxRate,
	})

	fetcher := feed.NewFetcher(&feed.FetcherConfig{
		Timeout:   cfg.Feed.Timeout,
		UserAgent: cfg.Feed.UserAgent,
	})

	importService := service.NewImportService(
		repository.NewJobRepository(db),
		repository.NewSourceRepository(db),
		fetcher,
		staging.NewStore(objects),
		transformer,
		importLog,
		&service.ImportConfig{
			FeedURL:    cfg.Feed.URL,
			BatchSize:  cfg.Feed.BatchSize,
			AutoImport: cfg.Feed.AutoImport,
			DailyAt:    cfg.Importer.DailyAt,
			LogDir:     hook.Dir(),
		},
	)
	driver := service.NewDriver(ctx, importService, cfg.Importer.StepDelay, importLog)
	importService.AttachScheduler(driver)

	hour, minute, err := cfg.Importer.DailyTime()
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		DB:        db,
		Objects:   objects,
		Catalog:   catalogRepo,
		Import:    importService,
		Driver:    driver,
		Daily:     service.NewDailyScheduler(importService, hour, minute, importLog),
		ImportLog: importLog,
	}, nil
}

// Resume continues a run that was still marked running when the previous
// process exited.
func (a *App) Resume(ctx context.Context) error {
	job, err := a.Import.Status(ctx)
	if err != nil {
		return err
	}
	if job.Status == domain.JobStatusRunning {
		a.ImportLog.WithField(logger.FieldRunID, job.RunID).Info("Resuming import after restart")
		a.Driver.Kick()
	}
	return nil
}

// Close stops background work and releases the database.
func (a *App) Close() {
	a.Daily.Stop()
	a.Driver.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
