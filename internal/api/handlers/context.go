package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fitstack/coachd/internal/api"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
)

type ContextBuilder interface {
	Build(ctx context.Context, input service.OrchestratorInput) *domain.ContextBundle
}

type ContextHandler struct {
	orchestrator ContextBuilder
}

func NewContextHandler(orchestrator ContextBuilder) *ContextHandler {
	return &ContextHandler{orchestrator: orchestrator}
}

type BuildContextRequest struct {
	UserID     string `json:"user_id"`
	CoachID    string `json:"coach_id"`
	Message    string `json:"message"`
	SkipMemory bool   `json:"skip_memory"`
	SkipDaily  bool   `json:"skip_daily"`
	SkipRAG    bool   `json:"skip_rag"`
	Lite       bool   `json:"lite"`
	TokenCap   int    `json:"token_cap"`
}

type PersonaResponse struct {
	CoachID       string `json:"coach_id"`
	DisplayName   string `json:"display_name"`
	SystemPrompt  string `json:"system_prompt"`
	ExpertiseArea string `json:"expertise_area"`
}

type MemoryResponse struct {
	Summary   string `json:"summary"`
	UpdatedAt string `json:"updated_at"`
}

type DailySummaryResponse struct {
	Date     string `json:"date"`
	Calories int    `json:"calories"`
	ProteinG int    `json:"protein_g"`
	Workouts int    `json:"workouts"`
	Notes    string `json:"notes,omitempty"`
}

type ContextChunkResponse struct {
	SourceID       string  `json:"source_id"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	ExpertiseArea  string  `json:"expertise_area"`
	RelevanceScore float64 `json:"relevance_score"`
}

type ContextBundleResponse struct {
	TraceID             string                 `json:"trace_id"`
	Persona             *PersonaResponse       `json:"persona"`
	Memory              *MemoryResponse        `json:"memory,omitempty"`
	DailySummary        *DailySummaryResponse  `json:"daily_summary,omitempty"`
	ConversationSummary string                 `json:"conversation_summary,omitempty"`
	KnowledgeChunks     []ContextChunkResponse `json:"knowledge_chunks"`
	TokensUsed          int                    `json:"tokens_used"`
}

func bundleToResponse(b *domain.ContextBundle) *ContextBundleResponse {
	resp := &ContextBundleResponse{
		TraceID:             b.TraceID,
		ConversationSummary: b.ConversationSummary,
		KnowledgeChunks:     make([]ContextChunkResponse, len(b.KnowledgeChunks)),
		TokensUsed:          b.TokensUsed,
	}

	if b.Persona != nil {
		resp.Persona = &PersonaResponse{
			CoachID:       b.Persona.CoachID,
			DisplayName:   b.Persona.DisplayName,
			SystemPrompt:  b.Persona.SystemPrompt,
			ExpertiseArea: string(b.Persona.ExpertiseArea),
		}
	}
	if b.Memory != nil {
		resp.Memory = &MemoryResponse{
			Summary:   b.Memory.Summary,
			UpdatedAt: b.Memory.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	if b.DailySummary != nil {
		resp.DailySummary = &DailySummaryResponse{
			Date:     b.DailySummary.Date.Format("2006-01-02"),
			Calories: b.DailySummary.Calories,
			ProteinG: b.DailySummary.ProteinG,
			Workouts: b.DailySummary.Workouts,
			Notes:    b.DailySummary.Notes,
		}
	}
	for i, chunk := range b.KnowledgeChunks {
		resp.KnowledgeChunks[i] = ContextChunkResponse{
			SourceID:       chunk.SourceID,
			Title:          chunk.Title,
			Content:        chunk.Content,
			ExpertiseArea:  string(chunk.ExpertiseArea),
			RelevanceScore: chunk.RelevanceScore,
		}
	}

	return resp
}

func (h *ContextHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req BuildContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.CoachID == "" {
		api.Error(w, http.StatusBadRequest, "coach_id is required")
		return
	}
	if req.TokenCap < 0 {
		api.Error(w, http.StatusBadRequest, "token_cap must be non-negative")
		return
	}

	bundle := h.orchestrator.Build(r.Context(), service.OrchestratorInput{
		UserID:     req.UserID,
		CoachID:    req.CoachID,
		Message:    req.Message,
		SkipMemory: req.SkipMemory,
		SkipDaily:  req.SkipDaily,
		SkipRAG:    req.SkipRAG,
		Lite:       req.Lite,
		TokenCap:   req.TokenCap,
	})

	api.Success(w, http.StatusOK, bundleToResponse(bundle))
}
