package domain

import "time"

type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusInProgress RecordStatus = "in-progress"
	StatusSucceeded  RecordStatus = "succeeded"
	StatusFailed     RecordStatus = "failed"
)

// UploadRecord tracks a queued file from intake to its terminal outcome.
type UploadRecord struct {
	ID          string        `json:"id"`
	SourcePath  string        `json:"source_path"`
	StagedPath  string        `json:"staged_path"`
	FileName    string        `json:"file_name"`
	TotalBytes  int64         `json:"total_bytes"`
	Status      RecordStatus  `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	StatusCode  int           `json:"status_code,omitempty"`
	Checksum    string        `json:"checksum,omitempty"`
	ArchiveKey  string        `json:"archive_key,omitempty"`
	Attempts    int           `json:"attempts"`
	EnqueuedAt  time.Time     `json:"enqueued_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// ApplyOutcome copies the terminal result of an attempt onto the record.
func (r *UploadRecord) ApplyOutcome(outcome UploadOutcome, completedAt time.Time) {
	r.StatusCode = outcome.StatusCode
	r.Checksum = outcome.Checksum
	r.Reason = outcome.Reason
	r.CompletedAt = completedAt
	if outcome.Succeeded() {
		r.Status = StatusSucceeded
	} else {
		r.Status = StatusFailed
	}
}
