package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fitstack/coachd/internal/api"
	"github.com/fitstack/coachd/internal/service"
)

type SearchServiceInterface interface {
	Search(ctx context.Context, input service.SearchInput) ([]*service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchServiceInterface
}

func NewSearchHandler(svc SearchServiceInterface) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query      string `json:"query"`
	CoachID    string `json:"coach_id"`
	Method     string `json:"method"`
	MaxResults int    `json:"max_results"`
}

type SearchHitResponse struct {
	KnowledgeID   string  `json:"knowledge_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	CoachID       string  `json:"coach_id"`
	ExpertiseArea string  `json:"expertise_area"`
	Score         float64 `json:"score"`
}

type SearchResponse struct {
	Results []*SearchHitResponse `json:"results"`
	Count   int                  `json:"count"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.CoachID == "" {
		api.Error(w, http.StatusBadRequest, "coach_id is required")
		return
	}

	method := service.SearchMethod(req.Method)
	switch method {
	case "", service.SearchMethodSemantic, service.SearchMethodKeyword, service.SearchMethodHybrid:
	default:
		api.Error(w, http.StatusBadRequest, "invalid search method")
		return
	}

	results, err := h.svc.Search(r.Context(), service.SearchInput{
		Query:      req.Query,
		CoachID:    req.CoachID,
		Method:     method,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	hits := make([]*SearchHitResponse, len(results))
	for i, res := range results {
		hits[i] = &SearchHitResponse{
			KnowledgeID:   res.KnowledgeID,
			ChunkIndex:    res.ChunkIndex,
			Title:         res.Title,
			Content:       res.Content,
			CoachID:       res.CoachID,
			ExpertiseArea: string(res.ExpertiseArea),
			Score:         res.Score(),
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: hits, Count: len(hits)})
}
