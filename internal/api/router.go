package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/mediagate/internal/api/handler"
	"github.com/timmy/mediagate/internal/api/middleware"
	"github.com/timmy/mediagate/internal/logger"
	"github.com/timmy/mediagate/internal/metrics"
	"github.com/timmy/mediagate/internal/service"
)

// RouterConfig controls the optional parts of the router.
type RouterConfig struct {
	Mode        string // release, test or debug
	Version     string
	JWTSecret   string // empty disables bearer auth
	MetricsPath string // empty defaults to /metrics
}

// SetupRouter configures the Gin router with all routes.
// A nil m disables request metrics and the metrics endpoint.
func SetupRouter(
	mediaService *service.MediaService,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg RouterConfig,
) *gin.Engine {
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
	r.Use(middleware.LoggerMiddleware(log))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	r.Use(middleware.CORS())

	healthHandler := handler.NewHealthHandler(cfg.Version)
	mediaHandler := handler.NewMediaHandler(mediaService)

	r.GET("/health", healthHandler.Health)
	if m != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(m.Handler()))
	}

	media := r.Group("/api/media")
	if cfg.JWTSecret != "" {
		media.Use(middleware.RequireAuth(cfg.JWTSecret))
	}
	{
		media.POST("/getUploadUrl", mediaHandler.GetUploadURL)
		media.OPTIONS("/getUploadUrl", middleware.Preflight())

		media.POST("/getSignedUrls", mediaHandler.GetSignedURLs)
		media.OPTIONS("/getSignedUrls", middleware.Preflight())

		media.GET("/list", mediaHandler.List)
		media.OPTIONS("/list", middleware.Preflight())

		media.DELETE("/delete", mediaHandler.Delete)
		media.POST("/delete", mediaHandler.DeleteBatch)
		media.OPTIONS("/delete", middleware.Preflight())
	}

	return r
}
