package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/streamhive/streamhive/config"
	"github.com/streamhive/streamhive/internal/adapter/blob/fs"
	catalogsqlite "github.com/streamhive/streamhive/internal/adapter/catalog/sqlite"
	"github.com/streamhive/streamhive/internal/adapter/encoder/ffmpeg"
	HTTPAdapter "github.com/streamhive/streamhive/internal/adapter/http"
	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/infrastructure/logger"
	"github.com/streamhive/streamhive/internal/metrics"
	"github.com/streamhive/streamhive/internal/port"
	"github.com/streamhive/streamhive/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	logger.Info.Printf("starting streamhive on port %d, storage=%s", cfg.Port, cfg.StorageBackend)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error.Printf("failed to create data directory: %v", err)
		os.Exit(1)
	}

	store, err := catalogsqlite.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error.Printf("failed to open catalog store: %v", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var blobs port.BlobStore
	switch cfg.StorageBackend {
	case config.StorageMount:
		blobs, err = fs.NewMount(cfg.MountPoint)
	default:
		blobs, err = fs.NewLocal(cfg.StoragePath)
	}
	if err != nil {
		logger.Error.Printf("failed to open blob store: %v", err)
		os.Exit(1)
	}

	catalog := catalogsqlite.NewCatalog(store)
	users := catalogsqlite.NewUserStore(store)
	encoder := ffmpeg.NewEncoder(cfg.FFmpegBin, cfg.VideoCodec)
	eventBus := service.NewEventBus()
	m := metrics.New()

	authSvc := service.NewAuthService(users, cfg.AuthSecret)
	if err := authSvc.Bootstrap(context.Background(), cfg.AdminUser, cfg.AdminPassword); err != nil {
		logger.Error.Printf("failed to bootstrap admin user: %v", err)
		os.Exit(1)
	}

	videoSvc := service.NewVideoService(catalog, blobs)
	window := service.NewReportWindow(10 * time.Minute)
	viewSvc := service.NewViewService(catalog, window, m)

	transcoder := service.NewTranscoder(catalog, blobs, encoder, eventBus, m)
	pipeline := service.NewPipeline(catalog, transcoder, eventBus, m, domain.Ladder(), service.PipelineConfig{
		Workers:      cfg.Workers,
		PollInterval: cfg.PollInterval,
		LeaseTTL:     cfg.LeaseTTL,
		MaxAttempts:  cfg.MaxAttempts,
		WorkDir:      filepath.Join(cfg.DataDir, "work"),
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	pipeline.Start(workerCtx)
	go window.Sweep(workerCtx, time.Minute)

	if cfg.IngestDir != "" {
		scanner := service.NewScanner(catalog, cfg.IngestDir)
		go func() {
			if n, err := scanner.ScanOnce(workerCtx); err != nil {
				logger.Error.Printf("initial library scan failed: %v", err)
			} else if n > 0 {
				logger.Info.Printf("initial library scan registered %d videos", n)
			}
			if err := scanner.Watch(workerCtx); err != nil {
				logger.Error.Printf("library watch failed: %v", err)
			}
		}()
	}

	server := HTTPAdapter.NewServer(authSvc, videoSvc, viewSvc, eventBus, blobs, m.Handler(), cfg.MaxUploadSizeMB)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}

		// Stop workers; interrupted jobs are reclaimed when their leases
		// expire.
		workerCancel()

		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error.Printf("server failed: %v", err)
		os.Exit(1)
	}
}
