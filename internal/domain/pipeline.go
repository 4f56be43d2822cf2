package domain

import (
	"fmt"
	"time"
)

// PipelineRunStatus represents the status of a single pipeline run
type PipelineRunStatus string

const (
	PipelineRunStatusPending   PipelineRunStatus = "pending"
	PipelineRunStatusRunning   PipelineRunStatus = "running"
	PipelineRunStatusCompleted PipelineRunStatus = "completed"
	PipelineRunStatusFailed    PipelineRunStatus = "failed"
)

// PipelineConfig is the singleton-per-name configuration for a recurring
// knowledge-refresh pipeline. The scheduler mutates it after every run
// attempt.
type PipelineConfig struct {
	Name             string
	Enabled          bool
	Interval         time.Duration
	MaxEntriesPerRun int
	LastRunAt        *time.Time
	NextRunAt        *time.Time
	FailureCount     int
	MaxFailures      int
	Settings         map[string]string
	UpdatedAt        time.Time
}

// PipelineRun is the record of a single scheduler-triggered run.
type PipelineRun struct {
	ID               string
	PipelineName     string
	Status           PipelineRunStatus
	StartedAt        time.Time
	FinishedAt       *time.Time
	EntriesProcessed int
	Error            string
}

// ValidatePipelineConfig validates a PipelineConfig instance
func ValidatePipelineConfig(c *PipelineConfig) error {
	if c == nil {
		return fmt.Errorf("pipeline config cannot be nil")
	}

	if c.Name == "" {
		return fmt.Errorf("pipeline config Name is required")
	}

	if c.Interval <= 0 {
		return fmt.Errorf("pipeline config Interval must be positive")
	}

	if c.MaxFailures <= 0 {
		return fmt.Errorf("pipeline config MaxFailures must be positive")
	}

	if c.FailureCount < 0 {
		return fmt.Errorf("pipeline config FailureCount cannot be negative")
	}

	return nil
}
