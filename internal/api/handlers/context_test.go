package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockContextBuilder struct {
	mock.Mock
}

func (m *MockContextBuilder) Build(ctx context.Context, input service.OrchestratorInput) *domain.ContextBundle {
	args := m.Called(ctx, input)
	return args.Get(0).(*domain.ContextBundle)
}

func newTestBundle() *domain.ContextBundle {
	return &domain.ContextBundle{
		TraceID: "trace-1",
		Persona: &domain.Persona{
			CoachID:       "coach-alpha",
			DisplayName:   "Coach Alex",
			SystemPrompt:  "You are a strength coach.",
			ExpertiseArea: domain.ExpertiseTraining,
		},
		Memory: &domain.MemorySnapshot{
			UserID:    "user-1",
			Summary:   "Training for a marathon.",
			UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		DailySummary: &domain.DailySummary{
			UserID:   "user-1",
			Date:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			Calories: 2400,
			ProteinG: 150,
			Workouts: 1,
		},
		ConversationSummary: "Discussed long run pacing.",
		KnowledgeChunks: []domain.ContextChunk{
			{SourceID: "k-1", Title: "Carb Loading", Content: "Carbs before long runs.", ExpertiseArea: domain.ExpertiseNutrition, RelevanceScore: 0.8},
		},
		TokensUsed: 7,
	}
}

func TestContextHandler_Build_Success(t *testing.T) {
	mockOrch := new(MockContextBuilder)
	handler := NewContextHandler(mockOrch)

	mockOrch.On("Build", mock.Anything, mock.MatchedBy(func(input service.OrchestratorInput) bool {
		return input.UserID == "user-1" && input.CoachID == "coach-alpha" && input.Message == "how should I fuel?"
	})).Return(newTestBundle())

	body := `{"user_id":"user-1","coach_id":"coach-alpha","message":"how should I fuel?"}`
	req := httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Data ContextBundleResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "trace-1", result.Data.TraceID)
	require.NotNil(t, result.Data.Persona)
	assert.Equal(t, "Coach Alex", result.Data.Persona.DisplayName)
	require.NotNil(t, result.Data.DailySummary)
	assert.Equal(t, "2025-06-02", result.Data.DailySummary.Date)
	assert.Len(t, result.Data.KnowledgeChunks, 1)
	assert.Equal(t, 7, result.Data.TokensUsed)
	mockOrch.AssertExpectations(t)
}

func TestContextHandler_Build_SparseBundle(t *testing.T) {
	mockOrch := new(MockContextBuilder)
	handler := NewContextHandler(mockOrch)

	mockOrch.On("Build", mock.Anything, mock.Anything).Return(&domain.ContextBundle{
		TraceID: "trace-2",
		Persona: domain.FallbackPersona(),
	})

	body := `{"user_id":"user-1","coach_id":"coach-alpha","lite":true}`
	req := httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Data ContextBundleResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Nil(t, result.Data.Memory)
	assert.Nil(t, result.Data.DailySummary)
	assert.Empty(t, result.Data.KnowledgeChunks)
	assert.Equal(t, "default", result.Data.Persona.CoachID)
}

func TestContextHandler_Build_MissingUserID(t *testing.T) {
	mockOrch := new(MockContextBuilder)
	handler := NewContextHandler(mockOrch)

	body := `{"coach_id":"coach-alpha","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockOrch.AssertNotCalled(t, "Build")
}

func TestContextHandler_Build_MissingCoachID(t *testing.T) {
	mockOrch := new(MockContextBuilder)
	handler := NewContextHandler(mockOrch)

	body := `{"user_id":"user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContextHandler_Build_InvalidBody(t *testing.T) {
	mockOrch := new(MockContextBuilder)
	handler := NewContextHandler(mockOrch)

	req := httptest.NewRequest(http.MethodPost, "/context", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	handler.Build(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
