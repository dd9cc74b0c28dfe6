package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/catalogsync/internal/api"
	"github.com/timmy/catalogsync/internal/app"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/repository"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := app.LoggerConfig(cfg.Log, "catalogsync-api")
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logCfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize importer")
	}
	defer a.Close()

	if err := a.Resume(ctx); err != nil {
		appLogger.WithError(err).Warn("Failed to check for an interrupted import")
	}
	a.Daily.Start(ctx)
	appLogger.WithFields(logger.Fields{
		"daily_at":    cfg.Importer.DailyAt,
		"next_run_at": a.Daily.Next().Format(time.RFC3339),
	}).Info("Daily import scheduler started")

	router := api.SetupRouter(api.RouterDeps{
		Import:  a.Import,
		Stepper: a.Driver,
		DB:      repository.NewHealth(a.DB),
		Logger:  appLogger,
	}, cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
