package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jonno85/video-uploader/internal/config"
	"github.com/jonno85/video-uploader/internal/domain"
	redis "github.com/redis/go-redis/v9"
)

const (
	QueueNew        = "queue:new"
	QueueInProgress = "queue:in-progress"
	QueueCompleted  = "queue:completed"
	QueueFailed     = "queue:failed"
	WatchPathsKey   = "watch:paths"
	recordKeyPrefix = "upload:"
	TTL_INFINITE    = 0
)

// ErrQueueEmpty is returned by the dequeue calls when nothing is waiting.
var ErrQueueEmpty = errors.New("queue is empty")

type RecordID = string
type FilePath = string

type UploadQueue interface {
	Enqueue(ctx context.Context, record domain.UploadRecord) error
	DequeueInProgress(ctx context.Context, timeout time.Duration) (RecordID, error)
	DequeueStale(ctx context.Context) (RecordID, error)
	Complete(ctx context.Context, record domain.UploadRecord) error
	GetRecord(ctx context.Context, id RecordID) (domain.UploadRecord, error)
	SetRecord(ctx context.Context, record domain.UploadRecord) error
	ListRecords(ctx context.Context, queue string, limit int64) ([]domain.UploadRecord, error)
	RemoveFailed(ctx context.Context, id RecordID) (bool, error)
}

type WatchRegistry interface {
	SetPathWatcher(ctx context.Context, path FilePath) error
	GetPathWatcher(ctx context.Context, path FilePath) (bool, error)
	DelPathWatcher(ctx context.Context, path FilePath) error
	ListPathWatchers(ctx context.Context) ([]FilePath, error)
}

type RedisClientImpl struct {
	redisClient *redis.Client
}

func NewRedisClientImpl(ctx context.Context, cfg config.RedisConfig) (*RedisClientImpl, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisClientImpl{
		redisClient: client,
	}, nil
}

func recordKey(id RecordID) string {
	return recordKeyPrefix + id
}

// QueueKey maps a public queue name onto its redis list.
func QueueKey(name string) (string, bool) {
	switch name {
	case "new":
		return QueueNew, true
	case "in-progress":
		return QueueInProgress, true
	case "completed":
		return QueueCompleted, true
	case "failed":
		return QueueFailed, true
	}
	return "", false
}

func (r *RedisClientImpl) Enqueue(ctx context.Context, record domain.UploadRecord) error {
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(record.ID), jsonBytes, TTL_INFINITE)
		pipe.LPush(ctx, QueueNew, record.ID)
		return nil
	})
	slog.Debug("Enqueued", "id", record.ID, "err", err)
	return err
}

func (r *RedisClientImpl) DequeueInProgress(ctx context.Context, timeout time.Duration) (RecordID, error) {
	id, err := r.redisClient.BLMove(ctx, QueueNew, QueueInProgress, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	return id, err
}

func (r *RedisClientImpl) DequeueStale(ctx context.Context) (RecordID, error) {
	id, err := r.redisClient.RPop(ctx, QueueInProgress).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	return id, err
}

// Complete moves the record out of in-progress into the completed or failed list and persists its final state.
func (r *RedisClientImpl) Complete(ctx context.Context, record domain.UploadRecord) error {
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	target := QueueCompleted
	if record.Status == domain.StatusFailed {
		target = QueueFailed
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, QueueInProgress, 1, record.ID)
		pipe.LPush(ctx, target, record.ID)
		pipe.Set(ctx, recordKey(record.ID), jsonBytes, TTL_INFINITE)
		return nil
	})
	slog.Debug("Completed", "id", record.ID, "queue", target, "err", err)
	return err
}

func (r *RedisClientImpl) SetRecord(ctx context.Context, record domain.UploadRecord) error {
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.redisClient.Set(ctx, recordKey(record.ID), jsonBytes, TTL_INFINITE).Err()
}

func (r *RedisClientImpl) GetRecord(ctx context.Context, id RecordID) (domain.UploadRecord, error) {
	var record domain.UploadRecord
	jsonBytes, err := r.redisClient.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return record, domain.ErrRecordNotFound
		}
		return record, err
	}
	if err := json.Unmarshal(jsonBytes, &record); err != nil {
		return record, err
	}
	return record, nil
}

// ListRecords returns up to limit records from the given list, newest first. Dangling IDs are skipped.
func (r *RedisClientImpl) ListRecords(ctx context.Context, queue string, limit int64) ([]domain.UploadRecord, error) {
	ids, err := r.redisClient.LRange(ctx, queue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	records := make([]domain.UploadRecord, 0, len(ids))
	for _, id := range ids {
		record, err := r.GetRecord(ctx, id)
		if errors.Is(err, domain.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// RemoveFailed takes id off the failed list, reporting whether it was there.
func (r *RedisClientImpl) RemoveFailed(ctx context.Context, id RecordID) (bool, error) {
	removed, err := r.redisClient.LRem(ctx, QueueFailed, 1, id).Result()
	return removed > 0, err
}

func (r *RedisClientImpl) SetPathWatcher(ctx context.Context, path FilePath) error {
	return r.redisClient.SAdd(ctx, WatchPathsKey, path).Err()
}

func (r *RedisClientImpl) GetPathWatcher(ctx context.Context, path FilePath) (bool, error) {
	return r.redisClient.SIsMember(ctx, WatchPathsKey, path).Result()
}

func (r *RedisClientImpl) DelPathWatcher(ctx context.Context, path FilePath) error {
	return r.redisClient.SRem(ctx, WatchPathsKey, path).Err()
}

func (r *RedisClientImpl) ListPathWatchers(ctx context.Context) ([]FilePath, error) {
	return r.redisClient.SMembers(ctx, WatchPathsKey).Result()
}

func (r *RedisClientImpl) Close() error {
	return r.redisClient.Close()
}
