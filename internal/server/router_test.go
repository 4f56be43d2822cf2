package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fitstack/coachd/internal/api/handlers"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) Upsert(ctx context.Context, input service.UpsertEntryInput) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) List(ctx context.Context, input service.ListEntriesInput) (*service.ListEntriesOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListEntriesOutput), args.Error(1)
}

func (m *MockKnowledgeService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, input service.SearchInput) ([]*service.SearchResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.SearchResult), args.Error(1)
}

type MockContextBuilder struct {
	mock.Mock
}

func (m *MockContextBuilder) Build(ctx context.Context, input service.OrchestratorInput) *domain.ContextBundle {
	args := m.Called(ctx, input)
	return args.Get(0).(*domain.ContextBundle)
}

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) StartJob(ctx context.Context, batchSize int) (*domain.EmbeddingJob, error) {
	args := m.Called(ctx, batchSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmbeddingJob), args.Error(1)
}

func (m *MockBatchService) ProcessBatch(ctx context.Context, jobID string) (*service.BatchResult, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockBatchService) JobStatus(ctx context.Context, jobID string) (*service.BatchResult, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

type MockSchedulerService struct {
	mock.Mock
}

func (m *MockSchedulerService) RunPipeline(ctx context.Context, name string, force bool) (*service.RunOutcome, error) {
	args := m.Called(ctx, name, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RunOutcome), args.Error(1)
}

func (m *MockSchedulerService) CheckScheduledRuns(ctx context.Context) ([]*service.RunOutcome, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.RunOutcome), args.Error(1)
}

func (m *MockSchedulerService) RecentRuns(ctx context.Context, name string, limit int) ([]*domain.PipelineRun, error) {
	args := m.Called(ctx, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PipelineRun), args.Error(1)
}

type routerMocks struct {
	knowledge *MockKnowledgeService
	search    *MockSearchService
	context   *MockContextBuilder
	batch     *MockBatchService
	scheduler *MockSchedulerService
}

func setupRouter() (http.Handler, *routerMocks) {
	mocks := &routerMocks{
		knowledge: new(MockKnowledgeService),
		search:    new(MockSearchService),
		context:   new(MockContextBuilder),
		batch:     new(MockBatchService),
		scheduler: new(MockSchedulerService),
	}

	cfg := RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(mocks.knowledge),
		SearchHandler:    handlers.NewSearchHandler(mocks.search),
		ContextHandler:   handlers.NewContextHandler(mocks.context),
		JobsHandler:      handlers.NewJobsHandler(mocks.batch),
		PipelineHandler:  handlers.NewPipelineHandler(mocks.scheduler),
	}

	return NewRouter(cfg), mocks
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_KnowledgeRoutes(t *testing.T) {
	router, mocks := setupRouter()

	now := time.Now().UTC()
	entry := &domain.KnowledgeEntry{
		ID:            "k-123",
		CoachID:       "coach-alpha",
		Title:         "Test",
		Content:       "Content",
		ExpertiseArea: domain.ExpertiseGeneral,
		Priority:      domain.KnowledgePriorityMedium,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	mocks.knowledge.On("GetByID", mock.Anything, "k-123").Return(entry, nil)

	req := httptest.NewRequest(http.MethodGet, "/knowledge/k-123", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.knowledge.AssertExpectations(t)
}

func TestRouter_SearchRoute(t *testing.T) {
	router, mocks := setupRouter()

	mocks.search.On("Search", mock.Anything, mock.Anything).Return([]*service.SearchResult{}, nil)

	body := `{"query":"protein","coach_id":"coach-alpha"}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.search.AssertExpectations(t)
}

func TestRouter_ContextRoute(t *testing.T) {
	router, mocks := setupRouter()

	mocks.context.On("Build", mock.Anything, mock.Anything).Return(&domain.ContextBundle{
		TraceID: "trace-1",
		Persona: domain.FallbackPersona(),
	})

	body := `{"user_id":"user-1","coach_id":"coach-alpha","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.context.AssertExpectations(t)
}

func TestRouter_JobRoutes(t *testing.T) {
	router, mocks := setupRouter()

	mocks.batch.On("JobStatus", mock.Anything, "job-1").Return(&service.BatchResult{
		JobID:  "job-1",
		Status: domain.EmbeddingJobStatusRunning,
	}, nil)
	mocks.batch.On("ProcessBatch", mock.Anything, "job-1").Return(&service.BatchResult{
		JobID:  "job-1",
		Status: domain.EmbeddingJobStatusRunning,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/jobs/job-1/process", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	mocks.batch.AssertExpectations(t)
}

func TestRouter_PipelineRoutes(t *testing.T) {
	router, mocks := setupRouter()

	mocks.scheduler.On("RunPipeline", mock.Anything, "knowledge_refresh", false).Return(&service.RunOutcome{
		Pipeline:  "knowledge_refresh",
		Triggered: true,
	}, nil)
	mocks.scheduler.On("CheckScheduledRuns", mock.Anything).Return([]*service.RunOutcome{}, nil)
	mocks.scheduler.On("RecentRuns", mock.Anything, "knowledge_refresh", 0).Return([]*domain.PipelineRun{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/pipelines/knowledge_refresh/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/pipelines/check", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/pipelines/knowledge_refresh/runs", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	mocks.scheduler.AssertExpectations(t)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("{}"))
	req.ContentLength = 10 * 1024 * 1024
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
