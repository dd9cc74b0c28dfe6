package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/catalogsync/internal/api/handler"
	"github.com/timmy/catalogsync/internal/api/middleware"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/service"
)

// RouterDeps holds what the routes are served from.
type RouterDeps struct {
	Import  *service.ImportService
	Stepper handler.ManualStepper
	DB      handler.Pinger
	Logger  *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps, cfg config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(deps.DB)
	importHandler := handler.NewImportHandler(deps.Import, deps.Stepper)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		imp := v1.Group("/import")
		imp.POST("/start", importHandler.Start)
		imp.GET("/status", importHandler.Status)
		imp.POST("/stop", importHandler.Stop)
		imp.POST("/step", importHandler.Step)
		imp.GET("/logs", importHandler.Logs)
		imp.DELETE("/logs", importHandler.ClearLogs)
		imp.POST("/auto", importHandler.SetAutoImport)
		imp.GET("/settings", importHandler.GetSettings)
		imp.PUT("/settings", importHandler.UpdateSettings)
	}

	return r
}
