package adapter

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/jonno85/video-uploader/internal/domain"
)

// MemoryStore is an in-process UploadQueue and WatchRegistry for running without redis.
// Nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	lists   map[string][]RecordID
	records map[RecordID][]byte
	paths   map[FilePath]struct{}
	notify  chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:   make(map[string][]RecordID),
		records: make(map[RecordID][]byte),
		paths:   make(map[FilePath]struct{}),
		notify:  make(chan struct{}, 1),
	}
}

func (m *MemoryStore) putLocked(record domain.UploadRecord) error {
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	m.records[record.ID] = jsonBytes
	return nil
}

func (m *MemoryStore) lpushLocked(list string, id RecordID) {
	m.lists[list] = append([]RecordID{id}, m.lists[list]...)
}

func (m *MemoryStore) lremLocked(list string, id RecordID) bool {
	ids := m.lists[list]
	for i, candidate := range ids {
		if candidate == id {
			m.lists[list] = append(ids[:i:i], ids[i+1:]...)
			return true
		}
	}
	return false
}

func (m *MemoryStore) rpopLocked(list string) (RecordID, bool) {
	ids := m.lists[list]
	if len(ids) == 0 {
		return "", false
	}
	id := ids[len(ids)-1]
	m.lists[list] = ids[:len(ids)-1]
	return id, true
}

func (m *MemoryStore) Enqueue(ctx context.Context, record domain.UploadRecord) error {
	m.mu.Lock()
	if err := m.putLocked(record); err != nil {
		m.mu.Unlock()
		return err
	}
	m.lpushLocked(QueueNew, record.ID)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// DequeueInProgress waits up to timeout for a new record, mirroring BLMOVE.
func (m *MemoryStore) DequeueInProgress(ctx context.Context, timeout time.Duration) (RecordID, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		m.mu.Lock()
		id, ok := m.rpopLocked(QueueNew)
		if ok {
			m.lpushLocked(QueueInProgress, id)
		}
		m.mu.Unlock()
		if ok {
			return id, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrQueueEmpty
		case <-m.notify:
		}
	}
}

func (m *MemoryStore) DequeueStale(ctx context.Context) (RecordID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.rpopLocked(QueueInProgress)
	if !ok {
		return "", ErrQueueEmpty
	}
	return id, nil
}

func (m *MemoryStore) Complete(ctx context.Context, record domain.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := QueueCompleted
	if record.Status == domain.StatusFailed {
		target = QueueFailed
	}
	m.lremLocked(QueueInProgress, record.ID)
	m.lpushLocked(target, record.ID)
	return m.putLocked(record)
}

func (m *MemoryStore) SetRecord(ctx context.Context, record domain.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(record)
}

func (m *MemoryStore) GetRecord(ctx context.Context, id RecordID) (domain.UploadRecord, error) {
	m.mu.Lock()
	jsonBytes, ok := m.records[id]
	m.mu.Unlock()

	var record domain.UploadRecord
	if !ok {
		return record, domain.ErrRecordNotFound
	}
	err := json.Unmarshal(jsonBytes, &record)
	return record, err
}

func (m *MemoryStore) ListRecords(ctx context.Context, queue string, limit int64) ([]domain.UploadRecord, error) {
	m.mu.Lock()
	ids := append([]RecordID(nil), m.lists[queue]...)
	m.mu.Unlock()

	if limit > 0 && int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	records := make([]domain.UploadRecord, 0, len(ids))
	for _, id := range ids {
		record, err := m.GetRecord(ctx, id)
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (m *MemoryStore) RemoveFailed(ctx context.Context, id RecordID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lremLocked(QueueFailed, id), nil
}

func (m *MemoryStore) SetPathWatcher(ctx context.Context, path FilePath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[path] = struct{}{}
	return nil
}

func (m *MemoryStore) GetPathWatcher(ctx context.Context, path FilePath) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.paths[path]
	return ok, nil
}

func (m *MemoryStore) DelPathWatcher(ctx context.Context, path FilePath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.paths, path)
	return nil
}

func (m *MemoryStore) ListPathWatchers(ctx context.Context) ([]FilePath, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]FilePath, 0, len(m.paths))
	for path := range m.paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
