package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
)

// JobLister finds embedding jobs that still hold work.
type JobLister interface {
	ListUnfinished(ctx context.Context) ([]*domain.EmbeddingJob, error)
}

// BatchProcessor advances one embedding job by a single batch.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, jobID string) (*service.BatchResult, error)
}

// BatchAdvancer resumes unfinished embedding jobs, advancing each by one
// batch per tick. Because each batch persists its cursor, a crash between
// ticks loses at most one batch of work.
type BatchAdvancer struct {
	jobs   JobLister
	runner BatchProcessor
}

// NewBatchAdvancer creates a new BatchAdvancer instance
func NewBatchAdvancer(jobs JobLister, runner BatchProcessor) *BatchAdvancer {
	return &BatchAdvancer{jobs: jobs, runner: runner}
}

// ProcessJobs implements the JobProcessor interface
func (a *BatchAdvancer) ProcessJobs(ctx context.Context) error {
	unfinished, err := a.jobs.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("listing unfinished embedding jobs: %w", err)
	}

	if len(unfinished) == 0 {
		return nil
	}

	for _, job := range unfinished {
		result, err := a.runner.ProcessBatch(ctx, job.ID)
		if err != nil {
			log.Printf("embedding job %s: batch failed: %v", job.ID, err)
			continue
		}
		if result.Completed {
			log.Printf("embedding job %s completed: %d processed, %d failed",
				job.ID, result.ProcessedEntries, result.FailedEntries)
		}
	}

	return nil
}

// ScheduleChecker sweeps pipeline schedules on each tick.
type ScheduleChecker struct {
	scheduler *service.Scheduler
}

// NewScheduleChecker creates a new ScheduleChecker instance
func NewScheduleChecker(scheduler *service.Scheduler) *ScheduleChecker {
	return &ScheduleChecker{scheduler: scheduler}
}

// ProcessJobs implements the JobProcessor interface
func (c *ScheduleChecker) ProcessJobs(ctx context.Context) error {
	outcomes, err := c.scheduler.CheckScheduledRuns(ctx)
	if err != nil {
		return fmt.Errorf("checking scheduled runs: %w", err)
	}
	for _, outcome := range outcomes {
		if outcome.Triggered {
			log.Printf("pipeline %s triggered (%s): %d entries",
				outcome.Pipeline, outcome.Reason, outcome.EntriesProcessed)
		}
	}
	return nil
}
