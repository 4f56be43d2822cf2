package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PipelineConfigRepository persists the singleton-per-name configuration of
// recurring pipelines. Intervals are stored as seconds.
type PipelineConfigRepository struct {
	db dbtx
}

func NewPipelineConfigRepository(pool *pgxpool.Pool) *PipelineConfigRepository {
	return &PipelineConfigRepository{db: pool}
}

const pipelineConfigColumns = `name, enabled, interval_seconds, max_entries_per_run, last_run_at, next_run_at, failure_count, max_failures, settings, updated_at`

func (r *PipelineConfigRepository) GetByName(ctx context.Context, name string) (*domain.PipelineConfig, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pipelineConfigColumns+` FROM pipeline_configs WHERE name = $1`, name)
	cfg, err := scanPipelineConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPipelineNotFound
		}
		return nil, err
	}
	return cfg, nil
}

func (r *PipelineConfigRepository) List(ctx context.Context) ([]*domain.PipelineConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+pipelineConfigColumns+` FROM pipeline_configs ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.PipelineConfig
	for rows.Next() {
		cfg, err := scanPipelineConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (r *PipelineConfigRepository) Update(ctx context.Context, cfg *domain.PipelineConfig) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE pipeline_configs
		 SET enabled = $1, interval_seconds = $2, max_entries_per_run = $3,
		     last_run_at = $4, next_run_at = $5, failure_count = $6,
		     max_failures = $7, settings = $8, updated_at = $9
		 WHERE name = $10`,
		cfg.Enabled, int64(cfg.Interval.Seconds()), cfg.MaxEntriesPerRun,
		cfg.LastRunAt, cfg.NextRunAt, cfg.FailureCount,
		cfg.MaxFailures, cfg.Settings, time.Now().UTC(), cfg.Name,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPipelineNotFound
	}
	return nil
}

// Upsert seeds or replaces a pipeline configuration, used at startup to
// install defaults without clobbering scheduler state.
func (r *PipelineConfigRepository) Upsert(ctx context.Context, cfg *domain.PipelineConfig) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO pipeline_configs (`+pipelineConfigColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (name) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			interval_seconds = EXCLUDED.interval_seconds,
			max_entries_per_run = EXCLUDED.max_entries_per_run,
			max_failures = EXCLUDED.max_failures,
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at`,
		cfg.Name, cfg.Enabled, int64(cfg.Interval.Seconds()), cfg.MaxEntriesPerRun,
		cfg.LastRunAt, cfg.NextRunAt, cfg.FailureCount, cfg.MaxFailures,
		cfg.Settings, time.Now().UTC(),
	)
	return err
}

func scanPipelineConfig(row knowledgeScanner) (*domain.PipelineConfig, error) {
	var cfg domain.PipelineConfig
	var intervalSeconds int64
	var lastRun, nextRun pgtype.Timestamptz
	err := row.Scan(&cfg.Name, &cfg.Enabled, &intervalSeconds, &cfg.MaxEntriesPerRun,
		&lastRun, &nextRun, &cfg.FailureCount, &cfg.MaxFailures, &cfg.Settings, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cfg.Interval = time.Duration(intervalSeconds) * time.Second
	if lastRun.Valid {
		t := lastRun.Time
		cfg.LastRunAt = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		cfg.NextRunAt = &t
	}
	return &cfg, nil
}

// PipelineRunRepository records individual pipeline run attempts.
type PipelineRunRepository struct {
	db dbtx
}

func NewPipelineRunRepository(pool *pgxpool.Pool) *PipelineRunRepository {
	return &PipelineRunRepository{db: pool}
}

func (r *PipelineRunRepository) Create(ctx context.Context, run *domain.PipelineRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO pipeline_runs (id, pipeline_name, status, started_at, finished_at, entries_processed, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.PipelineName, run.Status, run.StartedAt, run.FinishedAt,
		run.EntriesProcessed, nullableString(run.Error),
	)
	return err
}

func (r *PipelineRunRepository) Update(ctx context.Context, run *domain.PipelineRun) error {
	_, err := r.db.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $1, finished_at = $2, entries_processed = $3, error = $4
		 WHERE id = $5`,
		run.Status, run.FinishedAt, run.EntriesProcessed, nullableString(run.Error), run.ID,
	)
	return err
}

// ListRecent returns the latest runs for a pipeline, newest first.
func (r *PipelineRunRepository) ListRecent(ctx context.Context, pipelineName string, limit int) ([]*domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, pipeline_name, status, started_at, finished_at, entries_processed, error
		 FROM pipeline_runs
		 WHERE pipeline_name = $1
		 ORDER BY started_at DESC
		 LIMIT $2`,
		pipelineName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.PipelineRun
	for rows.Next() {
		var run domain.PipelineRun
		var finished pgtype.Timestamptz
		var errMsg pgtype.Text
		if err := rows.Scan(&run.ID, &run.PipelineName, &run.Status, &run.StartedAt,
			&finished, &run.EntriesProcessed, &errMsg); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
