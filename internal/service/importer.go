package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/feed"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/repository"
)

var (
	// ErrImportRunning is returned when a run is requested while one is active.
	ErrImportRunning = errors.New("an import is already running")
	// ErrImportNotRunning is returned by Step and Stop when no run is active.
	ErrImportNotRunning = errors.New("no active import")
	// ErrFeedNotConfigured is returned when no feed URL has been set.
	ErrFeedNotConfigured = errors.New("feed url not configured")
	// ErrInvalidSettings wraps rejected feed settings.
	ErrInvalidSettings = errors.New("invalid feed settings")
)

// Job messages shown on the control surface.
const (
	MessageStarted   = "Import started..."
	MessageCompleted = "Import completed successfully"
	MessageStopped   = "Import stopped by user"
)

// JobRepository stores the single import job record.
type JobRepository interface {
	Get(ctx context.Context) (*domain.ImportJob, error)
	// Begin atomically starts a run; it fails with repository.ErrJobRunning
	// while another run holds the record.
	Begin(ctx context.Context, job *domain.ImportJob) error
	UpdateProgress(ctx context.Context, runID string, processed, failed int, message string, status domain.JobStatus) error
	Transition(ctx context.Context, runID string, from, to domain.JobStatus, message string) error
}

// SourceRepository stores the operator-editable feed settings.
type SourceRepository interface {
	// Get returns nil, nil before anything was saved.
	Get(ctx context.Context) (*domain.FeedSource, error)
	Save(ctx context.Context, src *domain.FeedSource) error
}

// FeedFetcher downloads the raw feed document.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DatasetStore holds the parsed feed of a run between steps.
type DatasetStore interface {
	Save(ctx context.Context, runID string, records []domain.ProductRecord) error
	Batch(ctx context.Context, runID string, offset, limit int) ([]domain.ProductRecord, error)
	Delete(ctx context.Context, runID string) error
}

// RecordApplier writes one feed record into the catalog.
type RecordApplier interface {
	Apply(ctx context.Context, rec *domain.ProductRecord) (uint, error)
}

// StepScheduler continues a run after Start and abandons it after Stop.
type StepScheduler interface {
	Kick()
	Cancel()
}

// RecordResult is the outcome of applying one staged record.
type RecordResult struct {
	SKU       string `json:"sku"`
	ProductID uint   `json:"product_id,omitempty"`
	Err       error  `json:"-"`
}

// OK reports whether the record was applied.
func (r RecordResult) OK() bool {
	return r.Err == nil
}

// StepResult aggregates one batch.
type StepResult struct {
	RunID     string           `json:"run_id"`
	Offset    int              `json:"offset"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Processed int              `json:"processed"`
	Total     int              `json:"total"`
	Status    domain.JobStatus `json:"status"`
	Message   string           `json:"message"`
	Records   []RecordResult   `json:"-"`
}

// Done reports whether the run needs no further steps.
func (r *StepResult) Done() bool {
	return r.Status != domain.JobStatusRunning
}

// ImportConfig holds the importer's settings defaults and log location.
type ImportConfig struct {
	FeedURL    string // used until feed settings are saved
	BatchSize  int
	AutoImport bool
	DailyAt    string // "HH:MM", shown in the scheduled start message
	LogDir     string
}

// ImportService drives feed runs: start, batched steps, stop and the daily trigger.
type ImportService struct {
	jobs      JobRepository
	sources   SourceRepository
	fetcher   FeedFetcher
	datasets  DatasetStore
	applier   RecordApplier
	scheduler StepScheduler
	logger    *logger.Logger
	cfg       ImportConfig
	newRunID  func() string
	now       func() time.Time
}

// NewImportService creates a new import service. log should be the import
// logger so progress lands in the daily import log.
func NewImportService(
	jobs JobRepository,
	sources SourceRepository,
	fetcher FeedFetcher,
	datasets DatasetStore,
	applier RecordApplier,
	log *logger.Logger,
	cfg *ImportConfig,
) *ImportService {
	if log == nil {
		log = logger.GetDefault()
	}
	c := *cfg
	c.BatchSize = domain.ClampBatchSize(c.BatchSize)
	if c.DailyAt == "" {
		c.DailyAt = "03:00"
	}
	return &ImportService{
		jobs:     jobs,
		sources:  sources,
		fetcher:  fetcher,
		datasets: datasets,
		applier:  applier,
		logger:   log,
		cfg:      c,
		newRunID: func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// AttachScheduler sets the driver that continues runs in the background.
func (s *ImportService) AttachScheduler(scheduler StepScheduler) {
	s.scheduler = scheduler
}

// log returns the import logger carrying the context's tracing fields.
func (s *ImportService) log(ctx context.Context) *logger.Logger {
	return s.logger.Inherit(ctx)
}

// Settings returns the saved feed settings, or the configured defaults.
func (s *ImportService) Settings(ctx context.Context) (*domain.FeedSource, error) {
	src, err := s.sources.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed settings: %w", err)
	}
	if src == nil {
		src = &domain.FeedSource{
			ID:         domain.FeedSourceID,
			URL:        s.cfg.FeedURL,
			BatchSize:  s.cfg.BatchSize,
			AutoImport: s.cfg.AutoImport,
		}
	}
	return src, nil
}

// UpdateSettings validates and saves the feed URL and batch size.
func (s *ImportService) UpdateSettings(ctx context.Context, feedURL string, batchSize int) (*domain.FeedSource, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL != "" {
		if err := config.ValidateFeedURL(feedURL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
	}
	if batchSize < domain.MinBatchSize || batchSize > domain.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size must be between %d and %d", ErrInvalidSettings, domain.MinBatchSize, domain.MaxBatchSize)
	}

	src, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	src.URL = feedURL
	src.BatchSize = batchSize
	if err := s.sources.Save(ctx, src); err != nil {
		return nil, fmt.Errorf("failed to save feed settings: %w", err)
	}
	s.log(ctx).Infof("Settings saved: feed URL %q, batch size %d", feedURL, batchSize)
	return src, nil
}

// SetAutoImport enables or disables the daily scheduled run.
func (s *ImportService) SetAutoImport(ctx context.Context, enabled bool) (*domain.FeedSource, error) {
	src, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	src.AutoImport = enabled
	if err := s.sources.Save(ctx, src); err != nil {
		return nil, fmt.Errorf("failed to save feed settings: %w", err)
	}
	if enabled {
		s.log(ctx).Infof("Auto import enabled - next scheduled import: %s", s.NextScheduled(src))
	} else {
		s.log(ctx).Info("Auto import disabled - cleared scheduled imports")
	}
	return src, nil
}

// NextScheduled formats the next daily run time for src, or "Disabled".
func (s *ImportService) NextScheduled(src *domain.FeedSource) string {
	if src == nil || !src.AutoImport {
		return "Disabled"
	}
	hour, minute, err := config.ImporterConfig{DailyAt: s.cfg.DailyAt}.DailyTime()
	if err != nil {
		return "Not scheduled"
	}
	return NextDailyRun(s.now(), hour, minute).Format("2006-01-02 15:04:05")
}

// Status returns the current job record.
func (s *ImportService) Status(ctx context.Context) (*domain.ImportJob, error) {
	job, err := s.jobs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load import status: %w", err)
	}
	return job, nil
}

// Start fetches and stages the feed and starts a run. Fetch, parse and
// staging failures leave the job record untouched and are returned.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - trigger: what requested the run.
//
// Returns:
//   - *domain.ImportJob: the started run.
//   - error: ErrFeedNotConfigured, ErrImportRunning, or a fetch/parse/staging failure.
func (s *ImportService) Start(ctx context.Context, trigger domain.Trigger) (*domain.ImportJob, error) {
	ctx = logger.WithField(ctx, logger.FieldTrigger, string(trigger))

	src, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if !src.Configured() {
		s.log(ctx).Error("XML URL not configured")
		return nil, ErrFeedNotConfigured
	}
	return s.begin(ctx, src, trigger, MessageStarted)
}

// RunScheduled is the daily trigger. It is skipped when no feed URL is set,
// auto import is disabled or a run is active. Failures are logged only and
// leave the job record untouched.
func (s *ImportService) RunScheduled(ctx context.Context) error {
	ctx = logger.WithField(ctx, logger.FieldTrigger, string(domain.TriggerScheduled))
	log := s.log(ctx)
	log.Infof("Starting scheduled daily import at %s", s.cfg.DailyAt)

	src, err := s.Settings(ctx)
	if err != nil {
		log.WithError(err).Error("Scheduled import failed: could not load feed settings")
		return err
	}
	if !src.Configured() {
		log.Error("Scheduled import failed: XML URL not configured")
		return ErrFeedNotConfigured
	}
	if !src.AutoImport {
		log.Info("Scheduled import skipped: auto import is disabled")
		return nil
	}
	job, err := s.jobs.Get(ctx)
	if err != nil {
		log.WithError(err).Error("Scheduled import failed: could not load import status")
		return err
	}
	if job.IsRunning() {
		log.Warn("Scheduled import skipped: another import is already running")
		return ErrImportRunning
	}

	if _, err := s.begin(ctx, src, domain.TriggerScheduled, fmt.Sprintf("Scheduled import started at %s...", s.cfg.DailyAt)); err != nil {
		log.Errorf("Scheduled import failed: %v", err)
		return err
	}
	log.Info("Scheduled import initiated successfully")
	return nil
}

func (s *ImportService) begin(ctx context.Context, src *domain.FeedSource, trigger domain.Trigger, message string) (*domain.ImportJob, error) {
	log := s.log(ctx)

	current, err := s.jobs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load import status: %w", err)
	}
	if current.IsRunning() {
		return nil, ErrImportRunning
	}

	log.Infof("Starting import from XML URL: %s", src.URL)
	start := time.Now()
	data, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		log.WithError(err).Errorf("Failed to fetch XML data from URL: %s", src.URL)
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	s.logger.Metrics(nil).WithSize(len(data)).Since(start).
		Info(ctx, "XML data fetched successfully. Size: %d bytes", len(data))

	records, err := feed.Parse(data)
	if err != nil {
		log.WithError(err).Error("Failed to parse XML data")
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if len(records) == 0 {
		log.Error("No products found in XML data")
		return nil, feed.ErrNoProducts
	}
	log.Infof("Found %d products in XML", len(records))

	runID := s.newRunID()
	if err := s.datasets.Save(ctx, runID, records); err != nil {
		log.WithError(err).Error("Failed to store products data")
		return nil, fmt.Errorf("failed to stage feed: %w", err)
	}
	log.Infof("Stored %d products for run %s", len(records), runID)

	job := &domain.ImportJob{
		RunID:     runID,
		Trigger:   trigger,
		Total:     len(records),
		BatchSize: domain.ClampBatchSize(src.BatchSize),
		Message:   message,
	}
	if err := s.jobs.Begin(ctx, job); err != nil {
		if delErr := s.datasets.Delete(ctx, runID); delErr != nil {
			log.WithError(delErr).Warn("Failed to discard staged dataset")
		}
		if errors.Is(err, repository.ErrJobRunning) {
			return nil, ErrImportRunning
		}
		return nil, fmt.Errorf("failed to start import: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.Kick()
	}
	return job, nil
}

// Step applies the next batch of the running run. Records are applied in
// feed order starting at the processed count; only successes advance it.
// Returns:
//   - *StepResult: batch outcome and the resulting progress.
//   - error: ErrImportNotRunning when no run is active, or a job store failure.
func (s *ImportService) Step(ctx context.Context) (*StepResult, error) {
	job, err := s.jobs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load import status: %w", err)
	}
	if !job.IsRunning() {
		s.log(ctx).Infof("Batch processing stopped. Status: %s", job.Status)
		return nil, ErrImportNotRunning
	}

	ctx = logger.SetRunID(ctx, job.RunID)
	log := s.log(ctx)

	result := &StepResult{
		RunID:     job.RunID,
		Offset:    job.Processed,
		Processed: job.Processed,
		Total:     job.Total,
		Status:    domain.JobStatusRunning,
	}
	if job.Processed >= job.Total {
		return result, s.complete(ctx, job, result)
	}

	batchSize := domain.ClampBatchSize(job.BatchSize)
	batch, err := s.datasets.Batch(ctx, job.RunID, job.Processed, batchSize)
	if err != nil {
		log.WithError(err).Error("Failed to read products from staged dataset")
		batch = nil
	}
	log.Infof("Processing batch of %d products (batch size: %d)", len(batch), batchSize)

	start := time.Now()
	for i := range batch {
		rr := s.applyRecord(ctx, &batch[i])
		result.Records = append(result.Records, rr)
		if rr.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	s.logger.Metrics(logger.Fields{"succeeded": result.Succeeded, "failed": result.Failed}).
		WithCount(len(batch)).Since(start).Debug(ctx, "Batch applied")

	result.Processed = job.Processed + result.Succeeded
	if result.Processed >= job.Total {
		result.Processed = job.Total
		job.Failed += result.Failed
		job.Processed = result.Processed
		return result, s.complete(ctx, job, result)
	}

	result.Message = fmt.Sprintf("Processed %d of %d products", result.Processed, job.Total)
	if err := s.jobs.UpdateProgress(ctx, job.RunID, result.Processed, job.Failed+result.Failed, result.Message, domain.JobStatusRunning); err != nil {
		return s.lostRun(ctx, result, err)
	}
	return result, nil
}

func (s *ImportService) applyRecord(ctx context.Context, rec *domain.ProductRecord) RecordResult {
	log := s.log(ctx)
	if raw, err := json.Marshal(rec); err == nil {
		log.Debugf("Processing product: %s", raw)
	}

	rr := RecordResult{SKU: rec.ID}
	id, err := s.applier.Apply(ctx, rec)
	if err != nil {
		rr.Err = err
		log.WithField(logger.FieldSKU, rec.ID).Errorf("Failed to import product (SKU: %s): %v", rec.ID, err)
		return rr
	}
	rr.ProductID = id
	log.WithField(logger.FieldSKU, rec.ID).Successf("Successfully imported/updated product ID: %d (SKU: %s)", id, rec.ID)
	return rr
}

func (s *ImportService) complete(ctx context.Context, job *domain.ImportJob, result *StepResult) error {
	log := s.log(ctx)
	if err := s.jobs.UpdateProgress(ctx, job.RunID, job.Processed, job.Failed, MessageCompleted, domain.JobStatusCompleted); err != nil {
		_, err = s.lostRun(ctx, result, err)
		return err
	}
	result.Status = domain.JobStatusCompleted
	result.Message = MessageCompleted
	log.Infof("Import completed successfully. Total products processed: %d", job.Processed)

	if err := s.datasets.Delete(ctx, job.RunID); err != nil {
		log.WithError(err).Warn("Failed to clean up staged dataset")
	} else {
		log.Info("Cleaned up staged dataset")
	}
	s.markSynced(ctx)
	return nil
}

// lostRun handles a progress write rejected because the run was stopped or
// replaced while the batch was being applied.
func (s *ImportService) lostRun(ctx context.Context, result *StepResult, err error) (*StepResult, error) {
	if !errors.Is(err, repository.ErrStaleRun) {
		return nil, fmt.Errorf("failed to update import progress: %w", err)
	}
	s.log(ctx).Infof("Run %s is no longer active, discarding batch progress", result.RunID)
	job, getErr := s.jobs.Get(ctx)
	if getErr == nil && job.RunID == result.RunID {
		result.Status = job.Status
		result.Message = job.Message
		result.Processed = job.Processed
	} else {
		result.Status = domain.JobStatusStopped
	}
	return result, nil
}

func (s *ImportService) markSynced(ctx context.Context) {
	src, err := s.Settings(ctx)
	if err != nil {
		return
	}
	now := s.now()
	src.LastSyncAt = &now
	if err := s.sources.Save(ctx, src); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record last sync time")
	}
}

// Stop ends the running run, drops its staged dataset and cancels any
// pending step. A step already in flight finishes its batch, but its
// progress is discarded.
func (s *ImportService) Stop(ctx context.Context) (*domain.ImportJob, error) {
	job, err := s.jobs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load import status: %w", err)
	}
	if !job.IsRunning() {
		return nil, ErrImportNotRunning
	}

	ctx = logger.SetRunID(ctx, job.RunID)
	log := s.log(ctx)

	if err := s.jobs.Transition(ctx, job.RunID, domain.JobStatusRunning, domain.JobStatusStopped, MessageStopped); err != nil {
		if errors.Is(err, repository.ErrStaleRun) {
			return nil, ErrImportNotRunning
		}
		return nil, fmt.Errorf("failed to stop import: %w", err)
	}
	log.Info("Import manually stopped by user")

	if s.scheduler != nil {
		s.scheduler.Cancel()
	}
	if err := s.datasets.Delete(ctx, job.RunID); err != nil {
		log.WithError(err).Warn("Failed to clean up staged dataset after stop")
	} else {
		log.Info("Cleaned up staged dataset after stop")
	}

	return s.Status(ctx)
}

// Logs returns the import log text.
func (s *ImportService) Logs(ctx context.Context) (string, error) {
	return logger.ReadLogs(s.cfg.LogDir)
}

// ClearLogs deletes all import log files and reports how many were removed.
func (s *ImportService) ClearLogs(ctx context.Context) (string, error) {
	n, err := logger.ClearLogs(s.cfg.LogDir)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Cleared %d log files", n), nil
}
