package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultBatchSize is the number of entries processed per batch invocation
	DefaultBatchSize = 10

	// embeddingCallInterval spaces out embedding provider calls within a
	// batch to respect provider rate limits. This is a per-runner throttle,
	// not a global one: concurrent runners can together exceed the limit.
	embeddingCallInterval = 100 * time.Millisecond
)

// EmbeddingJobRepositoryInterface defines persistence for batch embedding jobs
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
	GetByID(ctx context.Context, id string) (*domain.EmbeddingJob, error)
	Update(ctx context.Context, job *domain.EmbeddingJob) error
	ListUnfinished(ctx context.Context) ([]*domain.EmbeddingJob, error)
}

// UUIDGenerator produces identifiers for new jobs
type UUIDGenerator interface {
	NewID() string
}

// BatchResult reports the state of a job after a batch invocation.
type BatchResult struct {
	JobID            string
	Status           domain.EmbeddingJobStatus
	CurrentBatch     int
	TotalEntries     int
	ProcessedEntries int
	FailedEntries    int
	BatchProcessed   int
	BatchFailed      int
	Completed        bool
}

// BatchRunner drives resumable, checkpointed embedding backfills. Each job
// snapshots the IDs of entries missing embeddings at start time and walks
// them in fixed-size batches, persisting the cursor after every batch so a
// run can be resumed safely.
type BatchRunner struct {
	jobRepo   EmbeddingJobRepositoryInterface
	knowledge EmbeddingKnowledgeRepository
	embedder  *EmbeddingService
	uuids     UUIDGenerator
}

// NewBatchRunner creates a BatchRunner. The embedding client is wrapped with
// a rate limiter so chunk embeddings within a batch are spaced out.
func NewBatchRunner(
	jobRepo EmbeddingJobRepositoryInterface,
	knowledge EmbeddingKnowledgeRepository,
	chunks EmbeddingChunkRepository,
	client EmbeddingClient,
	uuids UUIDGenerator,
) *BatchRunner {
	throttled := &throttledEmbeddingClient{
		inner:   client,
		limiter: rate.NewLimiter(rate.Every(embeddingCallInterval), 1),
	}
	return &BatchRunner{
		jobRepo:   jobRepo,
		knowledge: knowledge,
		embedder:  NewEmbeddingService(throttled, knowledge, chunks),
		uuids:     uuids,
	}
}

// StartJob computes the set of knowledge entries lacking embeddings,
// snapshots their IDs into a new pending job, and persists it. Returns nil
// when nothing is missing.
func (r *BatchRunner) StartJob(ctx context.Context, batchSize int) (*domain.EmbeddingJob, error) {
	ctx, span := telemetry.StartSpan(ctx, "BatchRunner.StartJob", telemetry.SpanAttributes{
		Operation: "embedding_job_start",
	})
	defer span.End()

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	missing, err := r.knowledge.ListIDsMissingEmbeddings(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to list entries missing embeddings: %w", err)
	}

	if len(missing) == 0 {
		return nil, nil
	}

	job := domain.NewEmbeddingJob(r.uuids.NewID(), batchSize, missing, time.Now().UTC())
	if err := r.jobRepo.Create(ctx, job); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to create embedding job: %w", err)
	}

	log.Printf("embedding job %s created: %d entries, batch size %d", job.ID, job.TotalEntries, job.BatchSize)
	return job, nil
}

// ProcessBatch advances a job by one batch. Invoking it on a completed job
// is a safe no-op that reports current state. Chunk embedding failures are
// counted and the batch keeps going.
func (r *BatchRunner) ProcessBatch(ctx context.Context, jobID string) (*BatchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "BatchRunner.ProcessBatch", telemetry.SpanAttributes{
		JobID:     jobID,
		Operation: "embedding_job_batch",
	})
	defer span.End()

	job, err := r.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if job.Status == domain.EmbeddingJobStatusCompleted {
		return resultFromJob(job), nil
	}

	if job.Status != domain.EmbeddingJobStatusRunning {
		job.Status = domain.EmbeddingJobStatusRunning
		job.UpdatedAt = time.Now().UTC()
		if err := r.jobRepo.Update(ctx, job); err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("failed to mark job running: %w", err)
		}
	}

	start, end := job.BatchWindow()
	window := job.EntryIDs[start:end]

	entries, err := r.knowledge.GetByIDs(ctx, window)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to fetch batch entries: %w", err)
	}

	byID := make(map[string]*domain.KnowledgeEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	batchProcessed := 0
	batchFailed := 0
	for _, id := range window {
		entry, ok := byID[id]
		if !ok {
			// Snapshotted entry deleted mid-run.
			batchFailed++
			continue
		}

		res, err := r.embedder.EmbedEntry(ctx, entry)
		if err != nil {
			log.Printf("embedding job %s: entry %s failed: %v", job.ID, id, err)
			batchFailed++
			continue
		}

		batchProcessed++
		batchFailed += res.ChunksFailed
	}

	job.CurrentBatch++
	job.ProcessedEntries += batchProcessed
	job.FailedEntries += batchFailed
	job.UpdatedAt = time.Now().UTC()
	if job.Exhausted() {
		job.Status = domain.EmbeddingJobStatusCompleted
	}

	if err := r.jobRepo.Update(ctx, job); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to checkpoint job: %w", err)
	}

	result := resultFromJob(job)
	result.BatchProcessed = batchProcessed
	result.BatchFailed = batchFailed
	return result, nil
}

// JobStatus returns the current state of a job.
func (r *BatchRunner) JobStatus(ctx context.Context, jobID string) (*BatchResult, error) {
	job, err := r.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return resultFromJob(job), nil
}

func resultFromJob(job *domain.EmbeddingJob) *BatchResult {
	return &BatchResult{
		JobID:            job.ID,
		Status:           job.Status,
		CurrentBatch:     job.CurrentBatch,
		TotalEntries:     job.TotalEntries,
		ProcessedEntries: job.ProcessedEntries,
		FailedEntries:    job.FailedEntries,
		Completed:        job.Status == domain.EmbeddingJobStatusCompleted,
	}
}

// throttledEmbeddingClient spaces out provider calls with a rate limiter.
type throttledEmbeddingClient struct {
	inner   EmbeddingClient
	limiter *rate.Limiter
}

func (c *throttledEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.inner == nil {
		return nil, domain.ErrMissingEmbedding
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.inner.GenerateEmbedding(ctx, text)
}

// DefaultUUIDGenerator generates UUIDs via google/uuid.
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewID() string {
	return uuid.NewString()
}
