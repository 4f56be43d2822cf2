package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fitstack/coachd/internal/api"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
	"github.com/go-chi/chi/v5"
)

type BatchService interface {
	StartJob(ctx context.Context, batchSize int) (*domain.EmbeddingJob, error)
	ProcessBatch(ctx context.Context, jobID string) (*service.BatchResult, error)
	JobStatus(ctx context.Context, jobID string) (*service.BatchResult, error)
}

type JobsHandler struct {
	svc BatchService
}

func NewJobsHandler(svc BatchService) *JobsHandler {
	return &JobsHandler{svc: svc}
}

type StartJobRequest struct {
	BatchSize int `json:"batch_size"`
}

type JobResponse struct {
	JobID            string `json:"job_id"`
	Status           string `json:"status"`
	CurrentBatch     int    `json:"current_batch"`
	TotalEntries     int    `json:"total_entries"`
	ProcessedEntries int    `json:"processed_entries"`
	FailedEntries    int    `json:"failed_entries"`
	BatchProcessed   int    `json:"batch_processed,omitempty"`
	BatchFailed      int    `json:"batch_failed,omitempty"`
	Completed        bool   `json:"completed"`
}

func batchResultToResponse(r *service.BatchResult) *JobResponse {
	return &JobResponse{
		JobID:            r.JobID,
		Status:           string(r.Status),
		CurrentBatch:     r.CurrentBatch,
		TotalEntries:     r.TotalEntries,
		ProcessedEntries: r.ProcessedEntries,
		FailedEntries:    r.FailedEntries,
		BatchProcessed:   r.BatchProcessed,
		BatchFailed:      r.BatchFailed,
		Completed:        r.Completed,
	}
}

func (h *JobsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartJobRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.BatchSize < 0 {
		api.Error(w, http.StatusBadRequest, "batch_size must be non-negative")
		return
	}

	job, err := h.svc.StartJob(r.Context(), req.BatchSize)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if job == nil {
		api.Success(w, http.StatusOK, map[string]string{"message": "no entries missing embeddings"})
		return
	}

	api.Success(w, http.StatusCreated, &JobResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		CurrentBatch: job.CurrentBatch,
		TotalEntries: job.TotalEntries,
	})
}

func (h *JobsHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	result, err := h.svc.ProcessBatch(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, batchResultToResponse(result))
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	result, err := h.svc.JobStatus(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, batchResultToResponse(result))
}
