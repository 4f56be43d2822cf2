package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fitstack/coachd/internal/api"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
	"github.com/go-chi/chi/v5"
)

type KnowledgeService interface {
	Upsert(ctx context.Context, input service.UpsertEntryInput) (*domain.KnowledgeEntry, error)
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	List(ctx context.Context, input service.ListEntriesInput) (*service.ListEntriesOutput, error)
	Delete(ctx context.Context, id string) error
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type UpsertKnowledgeRequest struct {
	ID            string   `json:"id"`
	CoachID       string   `json:"coach_id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	ExpertiseArea string   `json:"expertise_area"`
	Priority      string   `json:"priority"`
	Tags          []string `json:"tags"`
	SourceURL     string   `json:"source_url"`
}

type KnowledgeEntryResponse struct {
	ID            string   `json:"id"`
	CoachID       string   `json:"coach_id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	ExpertiseArea string   `json:"expertise_area"`
	Priority      string   `json:"priority"`
	Tags          []string `json:"tags,omitempty"`
	SourceURL     string   `json:"source_url,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func entryToResponse(k *domain.KnowledgeEntry) *KnowledgeEntryResponse {
	return &KnowledgeEntryResponse{
		ID:            k.ID,
		CoachID:       k.CoachID,
		Title:         k.Title,
		Content:       k.Content,
		ExpertiseArea: string(k.ExpertiseArea),
		Priority:      string(k.Priority),
		Tags:          k.Tags,
		SourceURL:     k.SourceURL,
		CreatedAt:     k.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     k.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KnowledgeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CoachID == "" {
		api.Error(w, http.StatusBadRequest, "coach_id is required")
		return
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	entry, err := h.svc.Upsert(r.Context(), service.UpsertEntryInput{
		ID:            req.ID,
		CoachID:       req.CoachID,
		Title:         req.Title,
		Content:       req.Content,
		ExpertiseArea: req.ExpertiseArea,
		Priority:      req.Priority,
		Tags:          req.Tags,
		SourceURL:     req.SourceURL,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, entryToResponse(entry))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

type KnowledgeListResponse struct {
	Items   []*KnowledgeEntryResponse `json:"items"`
	Cursor  string                    `json:"cursor,omitempty"`
	HasMore bool                      `json:"has_more"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	coachID := r.URL.Query().Get("coach_id")
	if coachID == "" {
		api.Error(w, http.StatusBadRequest, "coach_id is required")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListEntriesInput{
		CoachID: coachID,
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*KnowledgeEntryResponse, len(output.Items))
	for i, entry := range output.Items {
		responses[i] = entryToResponse(entry)
	}

	api.Success(w, http.StatusOK, KnowledgeListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}
