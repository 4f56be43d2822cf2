package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fitstack/coachd/internal/config"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSearchRepo mocks the vector/keyword index
type MockSearchRepo struct {
	mock.Mock
}

func (m *MockSearchRepo) SearchSemantic(ctx context.Context, embedding []float32, coachFilter string, threshold float64, limit int) ([]*SearchResult, error) {
	args := m.Called(ctx, embedding, coachFilter, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchResult), args.Error(1)
}

func (m *MockSearchRepo) SearchKeyword(ctx context.Context, query string, coachFilter string, limit int) ([]*SearchResult, error) {
	args := m.Called(ctx, query, coachFilter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchResult), args.Error(1)
}

func (m *MockSearchRepo) SearchHybrid(ctx context.Context, query string, embedding []float32, coachFilter string, semanticWeight, textWeight float64, limit int) ([]*SearchResult, error) {
	args := m.Called(ctx, query, embedding, coachFilter, semanticWeight, textWeight, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchResult), args.Error(1)
}

const testCrossCoach = "head-coach"

func newTestSearchService(repo SearchRepositoryInterface, client EmbeddingClient) *SearchService {
	return NewSearchService(repo, client, nil, testCrossCoach, config.DebugConfig{})
}

func TestSearchService_Search_ScopedToOwnPartition(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	service := newTestSearchService(mockRepo, nil)

	embedding := testEmbedding()
	hits := []*SearchResult{{KnowledgeID: "k1", CoachID: "coach-alpha", Similarity: 0.8}}

	mockRepo.On("SearchHybrid", mock.Anything, "protein timing", embedding, "coach-alpha",
		HybridSemanticWeight, HybridTextWeight, defaultMaxResults).Return(hits, nil)

	results, err := service.Search(context.Background(), SearchInput{
		Query:          "protein timing",
		QueryEmbedding: embedding,
		CoachID:        "coach-alpha",
		Method:         SearchMethodHybrid,
	})

	require.NoError(t, err)
	assert.Len(t, results, 1)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_CrossCoachSeesAllPartitions(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	service := newTestSearchService(mockRepo, nil)

	embedding := testEmbedding()
	mockRepo.On("SearchHybrid", mock.Anything, "cutting tips", embedding, "",
		HybridSemanticWeight, HybridTextWeight, defaultMaxResults).Return([]*SearchResult{}, nil)

	_, err := service.Search(context.Background(), SearchInput{
		Query:          "cutting tips",
		QueryEmbedding: embedding,
		CoachID:        testCrossCoach,
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_SemanticUsesThreshold(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	service := newTestSearchService(mockRepo, nil)

	embedding := testEmbedding()
	mockRepo.On("SearchSemantic", mock.Anything, embedding, "coach-alpha",
		DefaultSimilarityThreshold, 5).Return([]*SearchResult{}, nil)

	_, err := service.Search(context.Background(), SearchInput{
		Query:          "sleep quality",
		QueryEmbedding: embedding,
		CoachID:        "coach-alpha",
		Method:         SearchMethodSemantic,
		MaxResults:     5,
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_KeywordNeedsNoEmbedding(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	service := newTestSearchService(mockRepo, nil)

	mockRepo.On("SearchKeyword", mock.Anything, "magnesium dosage", "coach-alpha", defaultMaxResults).
		Return([]*SearchResult{}, nil)

	_, err := service.Search(context.Background(), SearchInput{
		Query:   "magnesium dosage",
		CoachID: "coach-alpha",
		Method:  SearchMethodKeyword,
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_MissingEmbeddingNoClient(t *testing.T) {
	service := newTestSearchService(new(MockSearchRepo), nil)

	_, err := service.Search(context.Background(), SearchInput{
		Query:   "no embedding available",
		CoachID: "coach-alpha",
		Method:  SearchMethodSemantic,
	})

	assert.ErrorIs(t, err, domain.ErrMissingEmbedding)
}

func TestSearchService_Search_GeneratesEmbeddingWhenAbsent(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	mockClient := new(MockEmbeddingClient)
	service := newTestSearchService(mockRepo, mockClient)

	embedding := testEmbedding()
	mockClient.On("GenerateEmbedding", mock.Anything, "deload week").Return(embedding, nil)
	mockRepo.On("SearchSemantic", mock.Anything, embedding, "coach-alpha",
		DefaultSimilarityThreshold, defaultMaxResults).Return([]*SearchResult{}, nil)

	_, err := service.Search(context.Background(), SearchInput{
		Query:   "deload week",
		CoachID: "coach-alpha",
		Method:  SearchMethodSemantic,
	})

	require.NoError(t, err)
	mockClient.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_UnknownMethodDefaultsToHybrid(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	service := newTestSearchService(mockRepo, nil)

	embedding := testEmbedding()
	mockRepo.On("SearchHybrid", mock.Anything, "anything", embedding, "coach-alpha",
		HybridSemanticWeight, HybridTextWeight, defaultMaxResults).Return([]*SearchResult{}, nil)

	_, err := service.Search(context.Background(), SearchInput{
		Query:          "anything",
		QueryEmbedding: embedding,
		CoachID:        "coach-alpha",
		Method:         SearchMethod("graph"),
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSearchService_Search_RepoErrorPropagates(t *testing.T) {
	mockRepo := new(MockSearchRepo)
	service := newTestSearchService(mockRepo, nil)

	mockRepo.On("SearchKeyword", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("index offline"))

	_, err := service.Search(context.Background(), SearchInput{
		Query:   "whatever",
		CoachID: "coach-alpha",
		Method:  SearchMethodKeyword,
	})

	assert.Error(t, err)
}

func TestSearchResult_Score(t *testing.T) {
	combined := &SearchResult{Similarity: 0.4, CombinedScore: 0.75}
	assert.Equal(t, 0.75, combined.Score())

	semanticOnly := &SearchResult{Similarity: 0.4}
	assert.Equal(t, 0.4, semanticOnly.Score())
}
