package repository

import (
	"context"
	"errors"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EmbeddingJobRepository struct {
	db dbtx
}

func NewEmbeddingJobRepository(pool *pgxpool.Pool) *EmbeddingJobRepository {
	return &EmbeddingJobRepository{db: pool}
}

func NewEmbeddingJobRepositoryWithTx(tx pgx.Tx) *EmbeddingJobRepository {
	return &EmbeddingJobRepository{db: tx}
}

const embeddingJobColumns = `id, status, batch_size, total_entries, current_batch, processed_entries, failed_entries, entry_ids, error, created_at, updated_at`

func (r *EmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO embedding_jobs (`+embeddingJobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.Status, job.BatchSize, job.TotalEntries, job.CurrentBatch,
		job.ProcessedEntries, job.FailedEntries, job.EntryIDs, nullableString(job.Error),
		job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (r *EmbeddingJobRepository) GetByID(ctx context.Context, id string) (*domain.EmbeddingJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+embeddingJobColumns+` FROM embedding_jobs WHERE id = $1`, id)
	job, err := scanEmbeddingJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmbeddingJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// Update checkpoints a job's cursor, counters, and status.
func (r *EmbeddingJobRepository) Update(ctx context.Context, job *domain.EmbeddingJob) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE embedding_jobs
		 SET status = $1, current_batch = $2, processed_entries = $3,
		     failed_entries = $4, error = $5, updated_at = $6
		 WHERE id = $7`,
		job.Status, job.CurrentBatch, job.ProcessedEntries,
		job.FailedEntries, nullableString(job.Error), job.UpdatedAt, job.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEmbeddingJobNotFound
	}
	return nil
}

// ListUnfinished returns jobs still holding work, oldest first, so a worker
// can resume them after a restart.
func (r *EmbeddingJobRepository) ListUnfinished(ctx context.Context) ([]*domain.EmbeddingJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+embeddingJobColumns+`
		 FROM embedding_jobs
		 WHERE status = $1 OR status = $2
		 ORDER BY created_at ASC`,
		domain.EmbeddingJobStatusPending, domain.EmbeddingJobStatusRunning,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.EmbeddingJob
	for rows.Next() {
		job, err := scanEmbeddingJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanEmbeddingJob(row knowledgeScanner) (*domain.EmbeddingJob, error) {
	var job domain.EmbeddingJob
	var errMsg pgtype.Text
	err := row.Scan(&job.ID, &job.Status, &job.BatchSize, &job.TotalEntries,
		&job.CurrentBatch, &job.ProcessedEntries, &job.FailedEntries,
		&job.EntryIDs, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}
