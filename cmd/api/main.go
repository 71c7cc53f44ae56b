package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/timmy/mediagate/internal/api"
	"github.com/timmy/mediagate/internal/config"
	"github.com/timmy/mediagate/internal/logger"
	"github.com/timmy/mediagate/internal/metrics"
	"github.com/timmy/mediagate/internal/service"
	"github.com/timmy/mediagate/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer func() { _ = logger.Sync() }()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if missing := cfg.Storage.Missing(); len(missing) > 0 {
		log.Warnf("Storage configuration incomplete, store calls will fail: missing=%s", strings.Join(missing, ","))
	}

	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:        storage.StorageType(cfg.Storage.Type),
		Endpoint:    cfg.Storage.Endpoint,
		AccessKey:   cfg.Storage.AccessKeyID,
		SecretKey:   cfg.Storage.SecretAccessKey,
		UseSSL:      cfg.Storage.UseSSL,
		Bucket:      cfg.Storage.Bucket,
		Region:      cfg.Storage.Region,
		PathStyle:   cfg.Storage.PathStyle,
		MaxAttempts: cfg.Storage.MaxAttempts,
	})
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		objectStorage = storage.WithObserver(objectStorage, m)
	}

	ctx := context.Background()
	if cfg.Storage.EnsureBucket {
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to ensure storage bucket: %v", err)
		}
	}

	mediaService := service.NewMediaService(objectStorage, service.MediaConfig{
		UploadURLExpiry:   cfg.Media.UploadURLExpiry,
		DownloadURLExpiry: cfg.Media.DownloadURLExpiry,
		ListDefaultLimit:  cfg.Media.ListDefaultLimit,
		ListMaxLimit:      cfg.Media.ListMaxLimit,
		DeleteBatchMax:    cfg.Media.DeleteBatchMax,
	})

	router := api.SetupRouter(mediaService, m, log, api.RouterConfig{
		Mode:        cfg.Server.Mode,
		Version:     version,
		JWTSecret:   cfg.Auth.JWTSecret,
		MetricsPath: cfg.Metrics.Path,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port":         cfg.Server.Port,
			"mode":         cfg.Server.Mode,
			"storage_type": cfg.Storage.Type,
			"bucket":       cfg.Storage.Bucket,
			"auth":         cfg.Auth.JWTSecret != "",
		}).Infof("Starting API server %s", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
