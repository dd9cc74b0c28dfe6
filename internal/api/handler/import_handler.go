package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/feed"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/service"
)

// ManualStepper runs one step on request without overlapping background steps.
type ManualStepper interface {
	Step(ctx context.Context) (*service.StepResult, error)
}

// ImportHandler serves the import control surface.
type ImportHandler struct {
	importService *service.ImportService
	stepper       ManualStepper
}

// NewImportHandler creates a new import handler.
// Parameters:
//   - importService: import service instance.
//   - stepper: runs manual steps; when nil the service is stepped directly.
//
// Returns:
//   - *ImportHandler: initialized handler.
func NewImportHandler(importService *service.ImportService, stepper ManualStepper) *ImportHandler {
	if stepper == nil {
		stepper = importService
	}
	return &ImportHandler{
		importService: importService,
		stepper:       stepper,
	}
}

// SettingsRequest represents the feed settings update.
type SettingsRequest struct {
	FeedURL   string `json:"feed_url"`
	BatchSize int    `json:"batch_size" binding:"required,min=1,max=1000"`
}

// AutoImportRequest toggles the daily scheduled run.
type AutoImportRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SettingsResponse represents the saved feed settings.
type SettingsResponse struct {
	*domain.FeedSource
	NextScheduled string `json:"next_scheduled"`
}

// StatusResponse represents the job status.
type StatusResponse struct {
	Status    domain.JobStatus `json:"status"`
	Processed int              `json:"processed"`
	Total     int              `json:"total"`
	Failed    int              `json:"failed"`
	Message   string           `json:"message"`
	RunID     string           `json:"run_id,omitempty"`
	Trigger   domain.Trigger   `json:"trigger,omitempty"`
	StartedAt string           `json:"started_at,omitempty"`
}

func newStatusResponse(job *domain.ImportJob) StatusResponse {
	resp := StatusResponse{
		Status:    job.Status,
		Processed: job.Processed,
		Total:     job.Total,
		Failed:    job.Failed,
		Message:   job.Message,
		RunID:     job.RunID,
		Trigger:   job.Trigger,
	}
	if job.StartedAt != nil {
		resp.StartedAt = job.StartedAt.Format("2006-01-02 15:04:05")
	}
	return resp
}

// Start fetches the feed and starts a run.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ImportHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()
	logger.CtxInfo(ctx, "Import start requested: client_ip=%s", c.ClientIP())

	job, err := h.importService.Start(ctx, domain.TriggerManual)
	if err != nil {
		status, msg := startError(err)
		logger.CtxWarn(ctx, "Import start rejected: %v", err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Import started",
		"job":     newStatusResponse(job),
	})
}

func startError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrFeedNotConfigured):
		return http.StatusBadRequest, "XML URL not configured"
	case errors.Is(err, service.ErrImportRunning):
		return http.StatusConflict, "An import is already running"
	case errors.Is(err, feed.ErrNoProducts):
		return http.StatusUnprocessableEntity, "No products found in XML"
	case errors.Is(err, feed.ErrMalformed):
		return http.StatusUnprocessableEntity, "Failed to parse XML data"
	default:
		return http.StatusBadGateway, "Failed to fetch XML data"
	}
}

// Status returns the current job status.
func (h *ImportHandler) Status(c *gin.Context) {
	job, err := h.importService.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newStatusResponse(job))
}

// Stop ends the running import.
func (h *ImportHandler) Stop(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := h.importService.Stop(ctx)
	if errors.Is(err, service.ErrImportNotRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "No active import to stop"})
		return
	}
	if err != nil {
		logger.CtxError(ctx, "Failed to stop import: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Import stopped successfully",
		"job":     newStatusResponse(job),
	})
}

// Step processes the next batch immediately.
func (h *ImportHandler) Step(c *gin.Context) {
	ctx := c.Request.Context()
	result, err := h.stepper.Step(ctx)
	if errors.Is(err, service.ErrImportNotRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "Import not running"})
		return
	}
	if err != nil {
		logger.CtxError(ctx, "Manual step failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logs returns the import log text.
func (h *ImportHandler) Logs(c *gin.Context) {
	logs, err := h.importService.Logs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// ClearLogs deletes all import log files.
func (h *ImportHandler) ClearLogs(c *gin.Context) {
	msg, err := h.importService.ClearLogs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// SetAutoImport enables or disables the daily run.
func (h *ImportHandler) SetAutoImport(c *gin.Context) {
	ctx := c.Request.Context()
	var req AutoImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := h.importService.SetAutoImport(ctx, *req.Enabled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	msg := "Auto import disabled"
	if src.AutoImport {
		msg = "Auto import enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        msg,
		"next_scheduled": h.importService.NextScheduled(src),
	})
}

// GetSettings returns the feed settings.
func (h *ImportHandler) GetSettings(c *gin.Context) {
	src, err := h.importService.Settings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{FeedSource: src, NextScheduled: h.importService.NextScheduled(src)})
}

// UpdateSettings validates and saves the feed settings.
func (h *ImportHandler) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid settings request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := h.importService.UpdateSettings(ctx, req.FeedURL, req.BatchSize)
	if errors.Is(err, service.ErrInvalidSettings) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{FeedSource: src, NextScheduled: h.importService.NextScheduled(src)})
}
