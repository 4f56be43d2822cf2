package domain

import (
	"fmt"
	"time"
)

// EmbeddingJobStatus represents the status of a batch embedding job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending   EmbeddingJobStatus = "pending"
	EmbeddingJobStatusRunning   EmbeddingJobStatus = "running"
	EmbeddingJobStatusCompleted EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed    EmbeddingJobStatus = "failed"
)

// EmbeddingJob tracks a resumable batch backfill of chunk embeddings.
// EntryIDs is a snapshot of the target knowledge IDs captured when the job
// is created, so entries inserted mid-run are excluded until the next job.
type EmbeddingJob struct {
	ID               string
	Status           EmbeddingJobStatus
	BatchSize        int
	TotalEntries     int
	CurrentBatch     int
	ProcessedEntries int
	FailedEntries    int
	EntryIDs         []string
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewEmbeddingJob creates a pending EmbeddingJob over the given entry snapshot
func NewEmbeddingJob(id string, batchSize int, entryIDs []string, createdAt time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:           id,
		Status:       EmbeddingJobStatusPending,
		BatchSize:    batchSize,
		TotalEntries: len(entryIDs),
		EntryIDs:     entryIDs,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// BatchWindow returns the [start, end) slice bounds of the current batch
// within the entry snapshot.
func (j *EmbeddingJob) BatchWindow() (int, int) {
	start := j.CurrentBatch * j.BatchSize
	if start > j.TotalEntries {
		start = j.TotalEntries
	}
	end := start + j.BatchSize
	if end > j.TotalEntries {
		end = j.TotalEntries
	}
	return start, end
}

// Exhausted reports whether the cursor has consumed the entire snapshot.
func (j *EmbeddingJob) Exhausted() bool {
	return j.CurrentBatch*j.BatchSize >= j.TotalEntries
}

// ValidateEmbeddingJob validates an EmbeddingJob instance
func ValidateEmbeddingJob(j *EmbeddingJob) error {
	if j == nil {
		return fmt.Errorf("embedding job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("embedding job ID is required")
	}

	if j.BatchSize <= 0 {
		return fmt.Errorf("embedding job BatchSize must be positive")
	}

	if j.TotalEntries != len(j.EntryIDs) {
		return fmt.Errorf("embedding job TotalEntries does not match snapshot size")
	}

	if !isValidEmbeddingJobStatus(j.Status) {
		return fmt.Errorf("embedding job Status is invalid: %s", j.Status)
	}

	if j.ProcessedEntries < 0 || j.FailedEntries < 0 {
		return fmt.Errorf("embedding job counters cannot be negative")
	}

	return nil
}

// isValidEmbeddingJobStatus checks if an EmbeddingJobStatus is valid
func isValidEmbeddingJobStatus(s EmbeddingJobStatus) bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusRunning,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}
