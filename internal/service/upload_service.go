package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonno85/video-uploader/internal/adapter"
	"github.com/jonno85/video-uploader/internal/domain"
	"github.com/jonno85/video-uploader/internal/metrics"
	"github.com/jonno85/video-uploader/internal/uploader"
)

const (
	defaultDequeueTimeout = 5 * time.Second
	defaultShutdownGrace  = 30 * time.Second
)

// Stager keeps private copies of files between intake and upload.
type Stager interface {
	Stage(src string) (string, error)
	Release(path string) error
}

// UploadService feeds queued videos to the upload client, one attempt per record.
type UploadService struct {
	queue          adapter.UploadQueue
	uploader       uploader.VideoUploader
	stager         Stager
	archiver       adapter.Archiver
	numWorkers     uint16
	dequeueTimeout time.Duration
	shutdownGrace  time.Duration
}

type UploadServiceOption func(*UploadService)

// WithShutdownGrace sets how long an in-flight upload may keep going once the worker context is cancelled.
func WithShutdownGrace(grace time.Duration) UploadServiceOption {
	return func(s *UploadService) {
		s.shutdownGrace = grace
	}
}

// NewUploadService creates an UploadService. archiver may be nil to disable archiving.
func NewUploadService(queue adapter.UploadQueue, up uploader.VideoUploader, stager Stager, archiver adapter.Archiver, numWorkers uint16, opts ...UploadServiceOption) *UploadService {
	if numWorkers == 0 {
		numWorkers = 1
	}
	s := &UploadService{
		queue:          queue,
		uploader:       up,
		stager:         stager,
		archiver:       archiver,
		numWorkers:     numWorkers,
		dequeueTimeout: defaultDequeueTimeout,
		shutdownGrace:  defaultShutdownGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Intake stages src and queues it for upload.
func (s *UploadService) Intake(ctx context.Context, src string) (domain.UploadRecord, error) {
	source := filepath.Dir(src)
	staged, err := s.stager.Stage(src)
	if err != nil {
		metrics.FilesIngestedErrors.WithLabelValues(source).Inc()
		return domain.UploadRecord{}, fmt.Errorf("%w: %v", domain.ErrFileUnreadable, err)
	}

	var size int64
	if info, err := os.Stat(staged); err == nil {
		size = info.Size()
	}

	record := domain.UploadRecord{
		ID:         uuid.NewString(),
		SourcePath: src,
		StagedPath: staged,
		FileName:   filepath.Base(src),
		TotalBytes: size,
		Status:     domain.StatusPending,
		EnqueuedAt: time.Now(),
	}
	if err := s.queue.Enqueue(ctx, record); err != nil {
		metrics.FilesIngestedErrors.WithLabelValues(source).Inc()
		s.release(staged)
		return domain.UploadRecord{}, fmt.Errorf("failed to enqueue %s: %w", src, err)
	}

	metrics.FilesIngested.WithLabelValues(source).Inc()
	slog.Info("Video queued for upload", "id", record.ID, "path", src, "size", size)
	return record, nil
}

// ProcessQueue runs the configured number of workers until ctx is cancelled.
func (s *UploadService) ProcessQueue(ctx context.Context) error {
	var wg sync.WaitGroup
	slog.Info("Starting workers", "numWorkers", s.numWorkers)
	for i := 0; i < int(s.numWorkers); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			slog.Info(fmt.Sprintf("Starting worker %d/%d", workerID, s.numWorkers))
			s.processQueueWithDequeueFunc(ctx, workerID, func(ctx context.Context) (adapter.RecordID, error) {
				return s.queue.DequeueInProgress(ctx, s.dequeueTimeout)
			}, true)
		}(i + 1)
	}
	wg.Wait()
	return nil
}

// ProcessPendingQueue uploads records left in progress by a previous run, then returns.
func (s *UploadService) ProcessPendingQueue(ctx context.Context) error {
	return s.processQueueWithDequeueFunc(ctx, 0, s.queue.DequeueStale, false)
}

// processQueueWithDequeueFunc loops over dequeueFunc. With follow set it keeps polling an empty queue until ctx is done.
func (s *UploadService) processQueueWithDequeueFunc(ctx context.Context, workerID int, dequeueFunc func(context.Context) (adapter.RecordID, error), follow bool) error {
	for ctx.Err() == nil {
		id, err := dequeueFunc(ctx)
		if errors.Is(err, adapter.ErrQueueEmpty) {
			if follow {
				continue
			}
			slog.Info("No more videos to process", "workerID", workerID)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("Error dequeuing upload", "workerID", workerID, "err", err)
			if !follow {
				return err
			}
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		slog.Info("Dequeued upload", "workerID", workerID, "id", id)
		if err := s.processRecord(ctx, workerID, id); err != nil {
			slog.Error("Error processing upload", "workerID", workerID, "id", id, "err", err)
		}
	}
	return nil
}

// processRecord makes exactly one upload attempt for the record and files it as succeeded or failed.
func (s *UploadService) processRecord(ctx context.Context, workerID int, id adapter.RecordID) error {
	// bookkeeping must survive shutdown of the worker context
	storeCtx := context.WithoutCancel(ctx)

	record, err := s.queue.GetRecord(storeCtx, id)
	if err != nil {
		return err
	}
	record.Status = domain.StatusInProgress
	record.Attempts++
	if err := s.queue.SetRecord(storeCtx, record); err != nil {
		return err
	}

	s.ensureStaged(&record)

	startTime := time.Now()
	uploadCtx, stop := s.drainContext(ctx)
	outcome := s.uploader.Upload(uploadCtx, record.StagedPath)
	interrupted := ctx.Err() != nil && uploadCtx.Err() != nil
	stop()
	if interrupted && !outcome.Succeeded() {
		// stays in queue:in-progress, ProcessPendingQueue picks it up on the next start
		slog.Warn("Upload interrupted by shutdown", "workerID", workerID, "id", id, "reason", outcome.Reason)
		return nil
	}
	record.Duration = time.Since(startTime)
	record.ApplyOutcome(outcome, time.Now())

	if outcome.Succeeded() {
		s.archive(storeCtx, &record)
		s.release(record.StagedPath)
	}
	slog.Info("Upload finished", "workerID", workerID, "id", id, "status", record.Status, "reason", record.Reason)
	return s.queue.Complete(storeCtx, record)
}

// drainContext detaches the upload from ctx so a shutdown lets it finish, for at most shutdownGrace.
func (s *UploadService) drainContext(ctx context.Context) (context.Context, context.CancelFunc) {
	uploadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(ctx, func() {
		select {
		case <-uploadCtx.Done():
		case <-time.After(s.shutdownGrace):
			cancel()
		}
	})
	return uploadCtx, func() {
		stopAfter()
		cancel()
	}
}

// ensureStaged restages from the source when the staged copy is gone, e.g. after a restart with a temp staging dir.
func (s *UploadService) ensureStaged(record *domain.UploadRecord) {
	if _, err := os.Stat(record.StagedPath); err == nil {
		return
	}
	staged, err := s.stager.Stage(record.SourcePath)
	if err != nil {
		slog.Warn("Staged copy missing and source unavailable", "id", record.ID, "source", record.SourcePath, "err", err)
		return
	}
	record.StagedPath = staged
}

func (s *UploadService) archive(ctx context.Context, record *domain.UploadRecord) {
	if s.archiver == nil {
		return
	}
	file, err := os.Open(record.StagedPath)
	if err != nil {
		metrics.ArchiveErrors.Inc()
		slog.Error("Failed to open staged video for archiving", "id", record.ID, "err", err)
		return
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s", record.ID, record.FileName)
	err = s.archiver.PutObjectWithIdempotency(ctx, key, file, record.Checksum, record.TotalBytes, map[string]string{
		"source":      record.SourcePath,
		"status-code": fmt.Sprintf("%d", record.StatusCode),
	})
	if err != nil {
		metrics.ArchiveErrors.Inc()
		slog.Error("Failed to archive video", "id", record.ID, "key", key, "err", err)
		return
	}
	metrics.ArchiveUploaded.Inc()
	record.ArchiveKey = key
}

func (s *UploadService) release(path string) {
	if err := s.stager.Release(path); err != nil {
		slog.Warn("Failed to release staged video", "path", path, "err", err)
	}
}

// Resubmit queues a failed record for one more attempt. Only the caller decides to retry.
func (s *UploadService) Resubmit(ctx context.Context, id adapter.RecordID) (domain.UploadRecord, error) {
	record, err := s.queue.GetRecord(ctx, id)
	if err != nil {
		return domain.UploadRecord{}, err
	}
	if record.Status != domain.StatusFailed {
		return domain.UploadRecord{}, domain.ErrRecordNotFailed
	}
	removed, err := s.queue.RemoveFailed(ctx, id)
	if err != nil {
		return domain.UploadRecord{}, err
	}
	if !removed {
		return domain.UploadRecord{}, domain.ErrRecordNotFailed
	}

	record.Status = domain.StatusPending
	record.Reason = ""
	record.StatusCode = 0
	record.CompletedAt = time.Time{}
	record.EnqueuedAt = time.Now()
	if err := s.queue.Enqueue(ctx, record); err != nil {
		return domain.UploadRecord{}, err
	}
	slog.Info("Upload resubmitted", "id", id, "attempts", record.Attempts)
	return record, nil
}

func (s *UploadService) Get(ctx context.Context, id adapter.RecordID) (domain.UploadRecord, error) {
	return s.queue.GetRecord(ctx, id)
}

func (s *UploadService) List(ctx context.Context, queue string, limit int64) ([]domain.UploadRecord, error) {
	return s.queue.ListRecords(ctx, queue, limit)
}
