package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fitstack/coachd/internal/api"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
	"github.com/go-chi/chi/v5"
)

type SchedulerService interface {
	RunPipeline(ctx context.Context, name string, force bool) (*service.RunOutcome, error)
	CheckScheduledRuns(ctx context.Context) ([]*service.RunOutcome, error)
	RecentRuns(ctx context.Context, name string, limit int) ([]*domain.PipelineRun, error)
}

type PipelineHandler struct {
	scheduler SchedulerService
}

func NewPipelineHandler(scheduler SchedulerService) *PipelineHandler {
	return &PipelineHandler{scheduler: scheduler}
}

type RunOutcomeResponse struct {
	Pipeline         string `json:"pipeline"`
	Triggered        bool   `json:"triggered"`
	Reason           string `json:"reason"`
	RunID            string `json:"run_id,omitempty"`
	EntriesProcessed int    `json:"entries_processed"`
	Message          string `json:"message,omitempty"`
}

func outcomeToResponse(o *service.RunOutcome) *RunOutcomeResponse {
	return &RunOutcomeResponse{
		Pipeline:         o.Pipeline,
		Triggered:        o.Triggered,
		Reason:           o.Reason,
		RunID:            o.RunID,
		EntriesProcessed: o.EntriesProcessed,
		Message:          o.Message,
	}
}

func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "pipeline name is required")
		return
	}

	force := r.URL.Query().Get("force") == "true"

	outcome, err := h.scheduler.RunPipeline(r.Context(), name, force)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, outcomeToResponse(outcome))
}

type PipelineRunResponse struct {
	RunID            string `json:"run_id"`
	Pipeline         string `json:"pipeline"`
	Status           string `json:"status"`
	StartedAt        string `json:"started_at"`
	FinishedAt       string `json:"finished_at,omitempty"`
	EntriesProcessed int    `json:"entries_processed"`
	Error            string `json:"error,omitempty"`
}

func (h *PipelineHandler) Runs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "pipeline name is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	runs, err := h.scheduler.RecentRuns(r.Context(), name, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*PipelineRunResponse, len(runs))
	for i, run := range runs {
		resp := &PipelineRunResponse{
			RunID:            run.ID,
			Pipeline:         run.PipelineName,
			Status:           string(run.Status),
			StartedAt:        run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			EntriesProcessed: run.EntriesProcessed,
			Error:            run.Error,
		}
		if run.FinishedAt != nil {
			resp.FinishedAt = run.FinishedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		responses[i] = resp
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"runs":  responses,
		"count": len(responses),
	})
}

func (h *PipelineHandler) Check(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.scheduler.CheckScheduledRuns(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*RunOutcomeResponse, len(outcomes))
	for i, outcome := range outcomes {
		responses[i] = outcomeToResponse(outcome)
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"outcomes":  responses,
		"triggered": countTriggered(outcomes),
	})
}

func countTriggered(outcomes []*service.RunOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Triggered {
			n++
		}
	}
	return n
}
