package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonno85/video-uploader/internal/adapter"
	"github.com/jonno85/video-uploader/internal/domain"
)

// FsPathWatcher is an alias for fsnotify.Watcher, used for file system event watching.
type FsPathWatcher = fsnotify.Watcher

// IntakeFunc receives a video file once it has stopped changing.
type IntakeFunc func(ctx context.Context, path string) error

// PathWatcherService watches one directory and debounces writes to video files.
type PathWatcherService struct {
	fsPathWatcher *FsPathWatcher
	streamTimeout time.Duration
	intake        IntakeFunc
	done          chan struct{}

	mu         sync.Mutex
	fileTimers map[string]*time.Timer
}

type PathWatcherAdminAction interface {
	AddAndWatchPath(ctx context.Context, path string) error
	DeleteWatchPath(ctx context.Context, path string) error
	WatchedPaths() []string
}

// PathWatcherAdmin manages multiple PathWatcherService instances, one per watched directory.
type PathWatcherAdmin struct {
	mu            sync.Mutex
	watchers      map[string]*PathWatcherService
	registry      adapter.WatchRegistry
	streamTimeout time.Duration
	intake        IntakeFunc
}

func NewPathWatcherAdmin(registry adapter.WatchRegistry, streamTimeout time.Duration, intake IntakeFunc) *PathWatcherAdmin {
	return &PathWatcherAdmin{
		watchers:      make(map[string]*PathWatcherService),
		registry:      registry,
		streamTimeout: streamTimeout,
		intake:        intake,
	}
}

func isVideoFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".mp4")
}

// startOrResetTimer (re)arms the debounce timer for filePath. The intake runs once the file has been quiet for streamTimeout.
func (pw *PathWatcherService) startOrResetTimer(filePath string) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if timer, exists := pw.fileTimers[filePath]; exists {
		timer.Stop()
	}

	pw.fileTimers[filePath] = time.AfterFunc(pw.streamTimeout, func() {
		pw.mu.Lock()
		delete(pw.fileTimers, filePath)
		pw.mu.Unlock()

		select {
		case <-pw.done:
			return
		default:
		}
		slog.Info("No updates, processing file", "timeout", pw.streamTimeout.String(), "path", filePath)
		if err := pw.intake(context.Background(), filePath); err != nil {
			slog.Error("Failed to take in video file", "path", filePath, "err", err)
		}
	})
}

func (pw *PathWatcherService) stopTimers() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	for path, timer := range pw.fileTimers {
		timer.Stop()
		delete(pw.fileTimers, path)
	}
}

// handleWatcherEvents listens for file system events until the done channel is closed.
func (pw *PathWatcherService) handleWatcherEvents() {
	for {
		select {
		case event, ok := <-pw.fsPathWatcher.Events:
			if !ok {
				return
			}
			slog.Debug("event", "action", event.Op, "path", event.Name)
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				if isVideoFile(event.Name) {
					pw.startOrResetTimer(event.Name)
				}
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				slog.Debug("file renamed/removed", "path", event.Name)
			default:
				slog.Debug("ignored event", "path", event.Name, "action", event.Op.String())
			}
		case err, ok := <-pw.fsPathWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "err", err)
		case <-pw.done:
			slog.Info("Shutting down path watcher goroutine")
			return
		}
	}
}

// AddAndWatchPath starts watching path and records it in the registry.
func (pw *PathWatcherAdmin) AddAndWatchPath(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if _, ok := pw.watchers[path]; ok {
		return domain.ErrPathAlreadyWatched
	}

	fsPathWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create path watcher: %w", err)
	}
	if err := fsPathWatcher.Add(path); err != nil {
		fsPathWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	if err := pw.registry.SetPathWatcher(ctx, path); err != nil {
		fsPathWatcher.Close()
		return fmt.Errorf("failed to register %s: %w", path, err)
	}

	watcher := &PathWatcherService{
		fsPathWatcher: fsPathWatcher,
		streamTimeout: pw.streamTimeout,
		intake:        pw.intake,
		done:          make(chan struct{}),
		fileTimers:    make(map[string]*time.Timer),
	}
	pw.watchers[path] = watcher
	go watcher.handleWatcherEvents()

	slog.Info("Path added to watchlist", "path", path)
	return nil
}

// DeleteWatchPath stops watching path and removes it from the registry.
func (pw *PathWatcherAdmin) DeleteWatchPath(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	slog.Info("Deleting watch path", "path", path)

	pw.mu.Lock()
	watcher, ok := pw.watchers[path]
	if ok {
		delete(pw.watchers, path)
	}
	pw.mu.Unlock()
	if !ok {
		return domain.ErrPathNotWatched
	}

	watcher.stop()
	if err := pw.registry.DelPathWatcher(ctx, path); err != nil {
		return fmt.Errorf("failed to unregister %s: %w", path, err)
	}
	slog.Info("Path removed from watchlist", "path", path)
	return nil
}

// RestoreWatchers re-adds every path left in the registry by a previous run.
func (pw *PathWatcherAdmin) RestoreWatchers(ctx context.Context) error {
	paths, err := pw.registry.ListPathWatchers(ctx)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := pw.AddAndWatchPath(ctx, path); err != nil && !errors.Is(err, domain.ErrPathAlreadyWatched) {
			slog.Warn("Failed to restore watch path", "path", path, "err", err)
		}
	}
	return nil
}

func (pw *PathWatcherAdmin) WatchedPaths() []string {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	paths := make([]string, 0, len(pw.watchers))
	for path := range pw.watchers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Close stops every watcher without touching the registry, so they come back on restart.
func (pw *PathWatcherAdmin) Close() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	for path, watcher := range pw.watchers {
		watcher.stop()
		delete(pw.watchers, path)
	}
}

func (pw *PathWatcherService) stop() {
	close(pw.done)
	pw.stopTimers()
	pw.fsPathWatcher.Close()
}
