// Package main implements the video upload agent.
// With file arguments it uploads each file once and exits; without arguments it runs the watcher, queue workers and admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonno85/video-uploader/internal/adapter"
	"github.com/jonno85/video-uploader/internal/config"
	"github.com/jonno85/video-uploader/internal/domain"
	"github.com/jonno85/video-uploader/internal/handlers"
	"github.com/jonno85/video-uploader/internal/service"
	"github.com/jonno85/video-uploader/internal/staging"
	"github.com/jonno85/video-uploader/internal/uploader"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// store is the queue plus watch registry backing the daemon.
type store interface {
	adapter.UploadQueue
	adapter.WatchRegistry
	Close() error
}

// uploadFiles submits every file concurrently and prints outcomes on the main goroutine. Returns the number of failures.
func uploadFiles(ctx context.Context, client *uploader.Client, loop *uploader.MainLoop, paths []string) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	remaining := len(paths)
	failures := 0
	for _, path := range paths {
		path := path
		client.Submit(ctx, path, func(outcome domain.UploadOutcome) {
			if outcome.Succeeded() {
				slog.Info("Upload succeeded", "path", path, "bytes", outcome.BytesSent, "sha256", outcome.Checksum)
			} else {
				failures++
				slog.Error("Upload failed", "path", path, "reason", outcome.Reason)
			}
			remaining--
			if remaining == 0 {
				cancel()
			}
		})
	}
	// Run only returns once ctx is done; that is expected when every outcome arrived.
	if err := loop.Run(ctx); err != nil && remaining > 0 {
		slog.Warn("Interrupted before all uploads finished", "remaining", remaining, "err", err)
	}
	return failures + remaining
}

func newStore(ctx context.Context, cfg config.RedisConfig) (store, error) {
	if cfg.Addr == "" {
		slog.Warn("REDIS_ADDR is empty, using in-memory queue")
		return adapter.NewMemoryStore(), nil
	}
	client, err := adapter.NewRedisClientImpl(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func newArchiver(ctx context.Context, cfg config.MinioConfig) (adapter.Archiver, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}
	client, err := adapter.NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	slog.Info("Archive enabled", "bucket", cfg.ArchiveBucket)
	return client, nil
}

// startMetricsServer serves Prometheus metrics on its own listener.
func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info("Starting Prometheus metrics server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Prometheus metrics server error", "err", err)
		}
	}()
	return server
}

func runDaemon(ctx context.Context, cfg *config.Config, client *uploader.Client) error {
	st, err := newStore(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close queue store", "err", err)
		}
	}()

	archiver, err := newArchiver(ctx, cfg.Minio)
	if err != nil {
		return err
	}

	area, err := staging.New(cfg.Upload.StagingDir)
	if err != nil {
		return err
	}
	if cfg.Upload.StagingDir == "" {
		defer area.Close()
	}
	slog.Info("Staging area ready", "dir", area.Dir())

	uploadService := service.NewUploadService(st, client, area, archiver, cfg.Upload.NumWorkers,
		service.WithShutdownGrace(cfg.Upload.ShutdownGrace),
	)
	intake := func(ctx context.Context, path string) error {
		_, err := uploadService.Intake(ctx, path)
		return err
	}
	pathWatcherAdmin := service.NewPathWatcherAdmin(st, cfg.Watcher.StreamTimeout, intake)
	defer pathWatcherAdmin.Close()

	if err := pathWatcherAdmin.RestoreWatchers(ctx); err != nil {
		slog.Error("Failed to restore watch paths", "err", err)
	}
	if cfg.Watcher.Path != "" {
		if err := pathWatcherAdmin.AddAndWatchPath(ctx, cfg.Watcher.Path); err != nil && !errors.Is(err, domain.ErrPathAlreadyWatched) {
			return err
		}
	}

	slog.Info("Running background: ProcessPendingQueue")
	if err := uploadService.ProcessPendingQueue(ctx); err != nil {
		slog.Error("Failed to drain pending uploads", "err", err)
	}

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		uploadService.ProcessQueue(ctx)
	}()

	router := handlers.NewRouter(&handlers.V1Handler{
		Uploads:     uploadService,
		PathWatcher: pathWatcherAdmin,
	})
	server := config.NewHTTPServer(cfg.Server, router)
	metricsServer := startMetricsServer(cfg.Server.MetricsAddr)

	go func() {
		slog.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
	} else {
		slog.Info("Server exited gracefully")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Metrics server forced to shutdown", "err", err)
	}

	// in-flight uploads get ShutdownGrace to finish, then are left in progress for the next start
	select {
	case <-workersDone:
		slog.Info("Workers stopped")
	case <-time.After(cfg.Upload.ShutdownGrace + 5*time.Second):
		slog.Warn("Workers did not stop before shutdown timeout")
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := uploader.NewMainLoop()
	client := uploader.NewClient(cfg.Upload.Endpoint,
		uploader.WithTimeout(cfg.Upload.Timeout),
		uploader.WithDispatcher(loop),
	)

	if paths := os.Args[1:]; len(paths) > 0 {
		if failures := uploadFiles(ctx, client, loop, paths); failures > 0 {
			os.Exit(1)
		}
		return
	}

	if err := runDaemon(ctx, cfg, client); err != nil {
		slog.Error("Agent stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("Agent shutdown complete")
}
