package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/telemetry"
)

// Decision reason strings returned by ShouldRun.
const (
	ReasonFirstRun         = "First run"
	ReasonNoNextRun        = "No next run time set"
	ReasonScheduledReached = "Scheduled time reached"
	ReasonIntervalExceeded = "Interval exceeded"
)

// PipelineConfigRepositoryInterface is the scheduler's view of the pipeline
// config store.
type PipelineConfigRepositoryInterface interface {
	GetByName(ctx context.Context, name string) (*domain.PipelineConfig, error)
	List(ctx context.Context) ([]*domain.PipelineConfig, error)
	Update(ctx context.Context, cfg *domain.PipelineConfig) error
	Upsert(ctx context.Context, cfg *domain.PipelineConfig) error
}

// PipelineRunRepositoryInterface records individual run attempts.
type PipelineRunRepositoryInterface interface {
	Create(ctx context.Context, run *domain.PipelineRun) error
	Update(ctx context.Context, run *domain.PipelineRun) error
	ListRecent(ctx context.Context, pipelineName string, limit int) ([]*domain.PipelineRun, error)
}

// PipelineStats is what a pipeline reports back on success.
type PipelineStats struct {
	EntriesProcessed int
}

// PipelineFunc is the unit of work a named pipeline executes.
type PipelineFunc func(ctx context.Context, cfg *domain.PipelineConfig) (*PipelineStats, error)

// RunOutcome is the non-throwing result of a scheduler entry point.
type RunOutcome struct {
	Pipeline         string
	Triggered        bool
	Reason           string
	RunID            string
	EntriesProcessed int
	Message          string
}

// Scheduler decides when recurring pipelines run and drives their lifecycle.
type Scheduler struct {
	configs   PipelineConfigRepositoryInterface
	runs      PipelineRunRepositoryInterface
	pipelines map[string]PipelineFunc
	uuids     UUIDGenerator
	now       func() time.Time
}

// NewScheduler creates a Scheduler with no registered pipelines.
func NewScheduler(configs PipelineConfigRepositoryInterface, runs PipelineRunRepositoryInterface) *Scheduler {
	return &Scheduler{
		configs:   configs,
		runs:      runs,
		pipelines: make(map[string]PipelineFunc),
		uuids:     &DefaultUUIDGenerator{},
		now:       time.Now,
	}
}

// Register binds a pipeline name to its unit of work.
func (s *Scheduler) Register(name string, fn PipelineFunc) {
	s.pipelines[name] = fn
}

// RecentRuns returns the latest run records for a pipeline, newest first.
func (s *Scheduler) RecentRuns(ctx context.Context, name string, limit int) ([]*domain.PipelineRun, error) {
	return s.runs.ListRecent(ctx, name, limit)
}

// EnsureConfig installs a pipeline's configuration row so a registered
// pipeline is runnable on a fresh database. Scheduler state on an existing
// row (last/next run, failure count) is preserved by the store.
func (s *Scheduler) EnsureConfig(ctx context.Context, cfg *domain.PipelineConfig) error {
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("installing pipeline config %s: %w", cfg.Name, err)
	}
	return nil
}

// ShouldRun is the scheduling decision function. The failure-count circuit
// breaker overrides every positive branch.
func ShouldRun(cfg *domain.PipelineConfig, now time.Time) (bool, string) {
	if cfg == nil || !cfg.Enabled {
		return false, "Pipeline disabled"
	}

	run := false
	reason := ""

	switch {
	case cfg.LastRunAt == nil:
		run, reason = true, ReasonFirstRun
	case cfg.NextRunAt == nil:
		run, reason = true, ReasonNoNextRun
	case !now.Before(*cfg.NextRunAt):
		run, reason = true, ReasonScheduledReached
	case now.Sub(*cfg.LastRunAt) >= cfg.Interval:
		run, reason = true, ReasonIntervalExceeded
	default:
		return false, "Not due"
	}

	if run && cfg.FailureCount >= cfg.MaxFailures {
		return false, fmt.Sprintf("Failure count %d reached threshold %d", cfg.FailureCount, cfg.MaxFailures)
	}

	return run, reason
}

// RunPipeline runs one named pipeline now. With force set the schedule
// decision is skipped but the enabled flag still applies. Configuration
// problems come back as a non-triggered outcome, not an error.
func (s *Scheduler) RunPipeline(ctx context.Context, name string, force bool) (*RunOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "Scheduler.RunPipeline", telemetry.SpanAttributes{
		Operation: "pipeline_run",
	})
	defer span.End()

	cfg, err := s.configs.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrPipelineNotFound) {
			return &RunOutcome{Pipeline: name, Message: "pipeline not configured"}, nil
		}
		return nil, fmt.Errorf("loading pipeline config %s: %w", name, err)
	}

	if !cfg.Enabled {
		return &RunOutcome{Pipeline: name, Message: "pipeline disabled"}, nil
	}

	if !force {
		due, reason := ShouldRun(cfg, s.now())
		if !due {
			return &RunOutcome{Pipeline: name, Reason: reason, Message: "not due"}, nil
		}
	}

	fn, ok := s.pipelines[name]
	if !ok {
		return &RunOutcome{Pipeline: name, Message: "no pipeline registered under this name"}, nil
	}

	return s.execute(ctx, cfg, fn)
}

// CheckScheduledRuns sweeps every configured pipeline and triggers the due
// ones. One pipeline's failure never stops the sweep.
func (s *Scheduler) CheckScheduledRuns(ctx context.Context) ([]*RunOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "Scheduler.CheckScheduledRuns", telemetry.SpanAttributes{
		Operation: "pipeline_check",
	})
	defer span.End()

	configs, err := s.configs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pipeline configs: %w", err)
	}

	outcomes := make([]*RunOutcome, 0, len(configs))
	for _, cfg := range configs {
		due, reason := ShouldRun(cfg, s.now())
		if !due {
			outcomes = append(outcomes, &RunOutcome{Pipeline: cfg.Name, Reason: reason})
			continue
		}

		fn, ok := s.pipelines[cfg.Name]
		if !ok {
			outcomes = append(outcomes, &RunOutcome{Pipeline: cfg.Name, Reason: reason, Message: "no pipeline registered under this name"})
			continue
		}

		outcome, err := s.execute(ctx, cfg, fn)
		if err != nil {
			log.Printf("scheduler: pipeline %s: %v", cfg.Name, err)
			outcomes = append(outcomes, &RunOutcome{Pipeline: cfg.Name, Reason: reason, Message: err.Error()})
			continue
		}
		outcome.Reason = reason
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// execute drives one run through its record lifecycle and updates the
// pipeline config afterward. A failed run backs off by a full interval
// rather than leaving next_run_at stale, so a broken pipeline cannot
// retry in a tight loop.
func (s *Scheduler) execute(ctx context.Context, cfg *domain.PipelineConfig, fn PipelineFunc) (*RunOutcome, error) {
	started := s.now()
	run := &domain.PipelineRun{
		ID:           s.uuids.NewID(),
		PipelineName: cfg.Name,
		Status:       domain.PipelineRunStatusPending,
		StartedAt:    started,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating pipeline run: %w", err)
	}

	run.Status = domain.PipelineRunStatusRunning
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("marking pipeline run running: %w", err)
	}

	stats, pipelineErr := fn(ctx, cfg)

	finished := s.now()
	run.FinishedAt = &finished

	next := finished.Add(cfg.Interval)
	cfg.LastRunAt = &started
	cfg.NextRunAt = &next

	if pipelineErr != nil {
		run.Status = domain.PipelineRunStatusFailed
		run.Error = pipelineErr.Error()
		cfg.FailureCount++
	} else {
		run.Status = domain.PipelineRunStatusCompleted
		if stats != nil {
			run.EntriesProcessed = stats.EntriesProcessed
		}
		cfg.FailureCount = 0
	}

	if err := s.runs.Update(ctx, run); err != nil {
		log.Printf("scheduler: updating run %s: %v", run.ID, err)
	}
	if err := s.configs.Update(ctx, cfg); err != nil {
		log.Printf("scheduler: updating pipeline config %s: %v", cfg.Name, err)
	}

	if pipelineErr != nil {
		log.Printf("scheduler: pipeline %s failed (failure %d/%d): %v",
			cfg.Name, cfg.FailureCount, cfg.MaxFailures, pipelineErr)
		return &RunOutcome{
			Pipeline:  cfg.Name,
			Triggered: true,
			RunID:     run.ID,
			Message:   pipelineErr.Error(),
		}, nil
	}

	return &RunOutcome{
		Pipeline:         cfg.Name,
		Triggered:        true,
		RunID:            run.ID,
		EntriesProcessed: run.EntriesProcessed,
	}, nil
}
