package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			Path:        filepath.Join(dir, "catalog.db"),
			AutoMigrate: true,
		},
		Storage: config.StorageConfig{Type: "local", Root: filepath.Join(dir, "objects")},
		Feed:    config.FeedConfig{BatchSize: 25, Timeout: time.Second},
		Importer: config.ImporterConfig{
			StepDelay:     time.Second,
			DailyAt:       "03:00",
			ImageTimeout:  time.Second,
			ShippingClass: "juta",
			MetaPrefix:    "juta_",
			TaxRate:       0.21,
		},
		Log: config.LogConfig{
			ImportDir:   filepath.Join(dir, "logs"),
			ImportLevel: "debug",
			Retention:   7,
		},
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t), &logger.Config{Format: "text", Output: io.Discard, ServiceName: "test"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	src, err := a.Import.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if src.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", src.BatchSize)
	}

	job, err := a.Import.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != domain.JobStatusIdle {
		t.Errorf("Status = %q, want idle", job.Status)
	}

	if err := a.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if a.Driver.Pending() {
		t.Error("Resume scheduled a step with no running import")
	}

	if got := a.Daily.Next(); got.Hour() != 3 || got.Minute() != 0 {
		t.Errorf("Daily.Next() = %v, want 03:00", got)
	}
}

func TestBuildRejectsBadStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "ftp"
	if _, err := Build(context.Background(), cfg, &logger.Config{Output: io.Discard}); err == nil {
		t.Fatal("Build() error = nil, want unsupported storage type")
	}
}
