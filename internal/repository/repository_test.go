package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "test.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestCatalogRepositoryProducts(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(newTestDB(t))

	got, err := repo.FindBySKU(ctx, "A1")
	if err != nil || got != nil {
		t.Fatalf("FindBySKU(missing) = %v, %v; want nil, nil", got, err)
	}

	p := &domain.CatalogProduct{SKU: "A1", Name: "Tire", Status: "publish"}
	if err := repo.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("SaveProduct did not assign an ID")
	}

	qty := 4
	p.StockQuantity = &qty
	if err := repo.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct update: %v", err)
	}
	got, err = repo.FindBySKU(ctx, "A1")
	if err != nil {
		t.Fatalf("FindBySKU: %v", err)
	}
	if got.ID != p.ID || got.StockQuantity == nil || *got.StockQuantity != 4 {
		t.Errorf("FindBySKU() = %+v", got)
	}
	if n, _ := repo.CountProducts(ctx); n != 1 {
		t.Errorf("CountProducts() = %d, want 1", n)
	}
}

func TestCatalogRepositoryMetaUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(newTestDB(t))

	if err := repo.SetMeta(ctx, 7, []domain.ProductMeta{{Key: "juta_qty", Value: "1"}, {Key: "imported-from", Value: "juta"}}); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := repo.SetMeta(ctx, 7, []domain.ProductMeta{{Key: "juta_qty", Value: "5"}}); err != nil {
		t.Fatalf("SetMeta again: %v", err)
	}
	meta, err := repo.GetMeta(ctx, 7)
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if len(meta) != 2 || meta["juta_qty"] != "5" || meta["imported-from"] != "juta" {
		t.Errorf("GetMeta() = %v", meta)
	}
}

func TestCatalogRepositoryTerms(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(newTestDB(t))

	if ok, _ := repo.TaxonomyExists(ctx, "pa_width"); ok {
		t.Fatal("taxonomy exists before registration")
	}
	if err := repo.CreateTerm(ctx, &domain.Term{Taxonomy: "pa_width", Name: "205mm", Slug: "205mm"}); err == nil {
		t.Error("CreateTerm in unregistered taxonomy should fail")
	}
	for i := 0; i < 2; i++ {
		if err := repo.RegisterTaxonomy(ctx, "pa_width"); err != nil {
			t.Fatalf("RegisterTaxonomy: %v", err)
		}
	}

	term := &domain.Term{Taxonomy: "pa_width", Name: "205mm", Slug: "205mm"}
	if err := repo.CreateTerm(ctx, term); err != nil {
		t.Fatalf("CreateTerm: %v", err)
	}
	byName, err := repo.FindTermByName(ctx, "pa_width", "205mm")
	if err != nil || byName == nil || byName.ID != term.ID {
		t.Errorf("FindTermByName() = %v, %v", byName, err)
	}
	bySlug, err := repo.FindTermBySlug(ctx, "pa_width", "205mm")
	if err != nil || bySlug == nil || bySlug.ID != term.ID {
		t.Errorf("FindTermBySlug() = %v, %v", bySlug, err)
	}
	if missing, err := repo.FindTermBySlug(ctx, "pa_width", "nope"); err != nil || missing != nil {
		t.Errorf("FindTermBySlug(missing) = %v, %v", missing, err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.AssignTerm(ctx, 3, term); err != nil {
			t.Fatalf("AssignTerm: %v", err)
		}
	}
	terms, err := repo.ProductTerms(ctx, 3, "pa_width")
	if err != nil {
		t.Fatalf("ProductTerms: %v", err)
	}
	if len(terms) != 1 || terms[0].Name != "205mm" {
		t.Errorf("ProductTerms() = %+v", terms)
	}
}

func TestCatalogRepositorySetAttributesReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(newTestDB(t))

	first := []domain.ProductAttribute{
		{Taxonomy: "pa_width", TermID: 1, Position: 0, IsVisible: true},
		{Taxonomy: "pa_diameter", TermID: 2, Position: 1, IsVisible: true},
	}
	if err := repo.SetAttributes(ctx, 9, first); err != nil {
		t.Fatalf("SetAttributes: %v", err)
	}
	if err := repo.SetAttributes(ctx, 9, first[1:]); err != nil {
		t.Fatalf("SetAttributes replace: %v", err)
	}
	attrs, err := repo.Attributes(ctx, 9)
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if len(attrs) != 1 || attrs[0].Taxonomy != "pa_diameter" || attrs[0].ProductID != 9 {
		t.Errorf("Attributes() = %+v", attrs)
	}
}

func TestAssetRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAssetRepository(newTestDB(t))

	if got, err := repo.FindByExternalID(ctx, "A1"); err != nil || got != nil {
		t.Fatalf("FindByExternalID(missing) = %v, %v", got, err)
	}
	asset := &domain.ImageAsset{ExternalID: "A1", StorageKey: "products/a1/a.jpg", ContentType: "image/jpeg"}
	if err := repo.Create(ctx, asset); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.FindByExternalID(ctx, "A1")
	if err != nil || got == nil || got.StorageKey != "products/a1/a.jpg" {
		t.Fatalf("FindByExternalID() = %v, %v", got, err)
	}
	if err := repo.Delete(ctx, got.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after delete", n)
	}
}

func TestSourceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSourceRepository(newTestDB(t))

	if src, err := repo.Get(ctx); err != nil || src != nil {
		t.Fatalf("Get(empty) = %v, %v", src, err)
	}
	if err := repo.Save(ctx, &domain.FeedSource{URL: "https://a.example/feed.xml", BatchSize: 50}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, &domain.FeedSource{URL: "https://b.example/feed.xml", BatchSize: 20, AutoImport: true}); err != nil {
		t.Fatalf("Save replace: %v", err)
	}
	src, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if src.URL != "https://b.example/feed.xml" || src.BatchSize != 20 || !src.AutoImport {
		t.Errorf("Get() = %+v", src)
	}
}

type jobStore interface {
	Get(ctx context.Context) (*domain.ImportJob, error)
	Begin(ctx context.Context, job *domain.ImportJob) error
	UpdateProgress(ctx context.Context, runID string, processed, failed int, message string, status domain.JobStatus) error
	Transition(ctx context.Context, runID string, from, to domain.JobStatus, message string) error
}

func TestJobRepositories(t *testing.T) {
	impls := map[string]func(t *testing.T) jobStore{
		"gorm":   func(t *testing.T) jobStore { return NewJobRepository(newTestDB(t)) },
		"memory": func(t *testing.T) jobStore { return NewMemoryJobRepository() },
	}

	for name, newRepo := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			job, err := repo.Get(ctx)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if job.Status != domain.JobStatusIdle {
				t.Fatalf("initial status = %q, want idle", job.Status)
			}

			run1 := &domain.ImportJob{RunID: "r1", Trigger: domain.TriggerManual, Total: 120, BatchSize: 50, Message: "Import started..."}
			if err := repo.Begin(ctx, run1); err != nil {
				t.Fatalf("Begin: %v", err)
			}
			if err := repo.Begin(ctx, &domain.ImportJob{RunID: "r2", Total: 1, BatchSize: 50}); !errors.Is(err, ErrJobRunning) {
				t.Fatalf("second Begin error = %v, want ErrJobRunning", err)
			}

			if err := repo.UpdateProgress(ctx, "r1", 50, 0, "Processed 50 of 120 products", domain.JobStatusRunning); err != nil {
				t.Fatalf("UpdateProgress: %v", err)
			}
			if err := repo.UpdateProgress(ctx, "other", 60, 0, "x", domain.JobStatusRunning); !errors.Is(err, ErrStaleRun) {
				t.Errorf("UpdateProgress(stale) error = %v, want ErrStaleRun", err)
			}

			job, _ = repo.Get(ctx)
			if job.RunID != "r1" || job.Processed != 50 || job.Total != 120 || job.Message != "Processed 50 of 120 products" {
				t.Errorf("job after progress = %+v", job)
			}

			if err := repo.Transition(ctx, "r1", domain.JobStatusRunning, domain.JobStatusStopped, "Import stopped by user"); err != nil {
				t.Fatalf("Transition: %v", err)
			}
			if err := repo.UpdateProgress(ctx, "r1", 100, 0, "late", domain.JobStatusRunning); !errors.Is(err, ErrStaleRun) {
				t.Errorf("UpdateProgress after stop error = %v, want ErrStaleRun", err)
			}
			job, _ = repo.Get(ctx)
			if job.Status != domain.JobStatusStopped || job.Processed != 50 || job.CompletedAt == nil {
				t.Errorf("job after stop = %+v", job)
			}

			if err := repo.Begin(ctx, &domain.ImportJob{RunID: "r3", Total: 3, BatchSize: 50}); err != nil {
				t.Fatalf("Begin after stop: %v", err)
			}
			job, _ = repo.Get(ctx)
			if job.RunID != "r3" || job.Processed != 0 || job.CompletedAt != nil {
				t.Errorf("job after restart = %+v", job)
			}
		})
	}
}

type printfRecorder struct {
	lines []string
}

func (r *printfRecorder) Printf(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	rec := &printfRecorder{}
	gl := newGormLogger(rec)
	query := func() (string, int64) { return "SELECT * FROM catalog_products", 0 }

	gl.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	if len(rec.lines) != 0 {
		t.Errorf("record not found was logged: %q", rec.lines)
	}

	gl.Trace(context.Background(), time.Now(), query, errors.New("disk I/O error"))
	if len(rec.lines) != 1 {
		t.Errorf("got %d lines for a real error, want 1", len(rec.lines))
	}
}

func TestFindMissingDoesNotLog(t *testing.T) {
	rec := &printfRecorder{}
	db := newTestDB(t).Session(&gorm.Session{Logger: newGormLogger(rec)})
	if got, err := NewCatalogRepository(db).FindBySKU(context.Background(), "missing"); err != nil || got != nil {
		t.Fatalf("FindBySKU = %v, %v", got, err)
	}
	if len(rec.lines) != 0 {
		t.Errorf("lookup miss logged: %q", rec.lines)
	}
}
