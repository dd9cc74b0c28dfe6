package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/repository"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDriverRunToCompletion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 120, 50)
	driver := NewDriver(ctx, h.svc, 0, nil)

	if _, err := h.svc.Start(ctx, domain.TriggerManual); err != nil {
		t.Fatalf("Start: %v", err)
	}
	last, err := driver.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last == nil || last.Status != domain.JobStatusCompleted || last.Processed != 120 {
		t.Errorf("Run() = %+v", last)
	}
}

func TestDriverChainsStepsInBackground(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 120, 50)
	driver := NewDriver(ctx, h.svc, time.Millisecond, nil)
	defer driver.Close()
	h.svc.AttachScheduler(driver)

	if _, err := h.svc.Start(ctx, domain.TriggerManual); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool {
		job, _ := h.svc.Status(ctx)
		return job.Status == domain.JobStatusCompleted
	})
	job, _ := h.svc.Status(ctx)
	if job.Processed != 120 {
		t.Errorf("Processed = %d, want 120", job.Processed)
	}
	if len(h.applier.applied) != 120 {
		t.Errorf("applied %d records, want 120", len(h.applier.applied))
	}
}

func TestDriverStopCancelsPendingStep(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 120, 50)
	driver := NewDriver(ctx, h.svc, time.Hour, nil)
	defer driver.Close()
	h.svc.AttachScheduler(driver)

	if _, err := h.svc.Start(ctx, domain.TriggerManual); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The kick runs the first batch, then the next step waits an hour.
	waitFor(t, func() bool {
		job, _ := h.svc.Status(ctx)
		return job.Processed == 50 && driver.Pending()
	})

	if _, err := h.svc.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if driver.Pending() {
		t.Error("step still pending after stop")
	}
	job, _ := h.svc.Status(ctx)
	if job.Status != domain.JobStatusStopped || job.Processed != 50 {
		t.Errorf("job = %+v", job)
	}
}

func TestDriverManualStepSchedulesNext(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 120, 50)
	driver := NewDriver(ctx, h.svc, time.Hour, nil)
	defer driver.Close()

	if _, err := h.svc.Start(ctx, domain.TriggerManual); err != nil {
		t.Fatalf("Start: %v", err)
	}
	result, err := driver.Step(ctx)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if result.Processed != 50 || !driver.Pending() {
		t.Errorf("Step() = %+v, pending = %v", result, driver.Pending())
	}
	driver.Cancel()
	if driver.Pending() {
		t.Error("Cancel left a pending step")
	}
}

func TestNextDailyRun(t *testing.T) {
	loc := time.UTC
	testCases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before trigger time",
			now:  time.Date(2024, 5, 1, 1, 30, 0, 0, loc),
			want: time.Date(2024, 5, 1, 3, 0, 0, 0, loc),
		},
		{
			name: "exactly at trigger time",
			now:  time.Date(2024, 5, 1, 3, 0, 0, 0, loc),
			want: time.Date(2024, 5, 2, 3, 0, 0, 0, loc),
		},
		{
			name: "after trigger time",
			now:  time.Date(2024, 5, 31, 18, 0, 0, 0, loc),
			want: time.Date(2024, 6, 1, 3, 0, 0, 0, loc),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextDailyRun(tc.now, 3, 0); !got.Equal(tc.want) {
				t.Errorf("NextDailyRun() = %v, want %v", got, tc.want)
			}
		})
	}
}

type countingRunner struct {
	calls chan struct{}
}

func (r *countingRunner) RunScheduled(ctx context.Context) error {
	select {
	case r.calls <- struct{}{}:
	default:
	}
	return nil
}

func TestDailySchedulerFires(t *testing.T) {
	runner := &countingRunner{calls: make(chan struct{}, 1)}
	s := NewDailyScheduler(runner, 3, 0, nil)
	// The clock sits just before 03:00, so the first run is due almost immediately.
	s.now = func() time.Time {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location()).Add(-20 * time.Millisecond)
	}
	if got := s.Next(); got.Hour() != 3 || got.Minute() != 0 {
		t.Fatalf("Next() = %v", got)
	}

	s.Start(context.Background())
	defer s.Stop()
	select {
	case <-runner.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not fire")
	}
}

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "seed.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	store := repository.NewCatalogRepository(db)

	stats, err := SeedCatalog(ctx, store, "juta")
	if err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	if stats.Taxonomies == 0 || stats.Terms != 7 {
		t.Errorf("SeedCatalog() = %+v, want 6 categories and 1 shipping class", stats)
	}
	for _, taxonomy := range []string{"product_cat", "product_brand", "product_shipping_class", "pa_brand", "pa_width", "pa_diameter"} {
		if ok, _ := store.TaxonomyExists(ctx, taxonomy); !ok {
			t.Errorf("taxonomy %s not registered", taxonomy)
		}
	}
	term, err := store.FindTermBySlug(ctx, "product_cat", "summer-tires-pv")
	if err != nil || term == nil || term.Name != "Summer Tires Pv" {
		t.Errorf("category term = %+v, %v", term, err)
	}

	again, err := SeedCatalog(ctx, store, "juta")
	if err != nil {
		t.Fatalf("second SeedCatalog: %v", err)
	}
	if again.Taxonomies != 0 || again.Terms != 0 {
		t.Errorf("second SeedCatalog() = %+v, want nothing new", again)
	}
}
