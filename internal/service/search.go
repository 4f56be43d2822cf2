package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/fitstack/coachd/internal/config"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/telemetry"
)

// SearchMethod selects the retrieval strategy
type SearchMethod string

const (
	SearchMethodSemantic SearchMethod = "semantic"
	SearchMethodKeyword  SearchMethod = "keyword"
	SearchMethodHybrid   SearchMethod = "hybrid"
)

const (
	// DefaultSimilarityThreshold filters weak semantic matches
	DefaultSimilarityThreshold = 0.6
	// KeywordFlatSimilarity is assigned to keyword-only hits, which have no
	// distance metric.
	KeywordFlatSimilarity = 0.5
	// HybridSemanticWeight and HybridTextWeight combine the two scores.
	HybridSemanticWeight = 0.7
	HybridTextWeight     = 0.3

	defaultMaxResults = 10
)

// SearchInput describes a knowledge search request.
type SearchInput struct {
	Query          string
	QueryEmbedding []float32
	CoachID        string
	Method         SearchMethod
	MaxResults     int
}

// SearchResult is a transient search hit over knowledge chunks.
type SearchResult struct {
	KnowledgeID   string
	ChunkIndex    int
	Content       string
	Title         string
	CoachID       string
	ExpertiseArea domain.ExpertiseArea
	Similarity    float64
	CombinedScore float64
}

// Score returns the ranking score for this hit: the combined score when the
// search produced one, otherwise raw similarity.
func (r *SearchResult) Score() float64 {
	if r.CombinedScore != 0 {
		return r.CombinedScore
	}
	return r.Similarity
}

// SearchRepositoryInterface defines the vector/keyword index the engine
// queries. A nil coachFilter string means all partitions.
type SearchRepositoryInterface interface {
	SearchSemantic(ctx context.Context, embedding []float32, coachFilter string, threshold float64, limit int) ([]*SearchResult, error)
	SearchKeyword(ctx context.Context, query string, coachFilter string, limit int) ([]*SearchResult, error)
	SearchHybrid(ctx context.Context, query string, embedding []float32, coachFilter string, semanticWeight, textWeight float64, limit int) ([]*SearchResult, error)
}

// TraceSink receives append-only telemetry records keyed by a trace ID.
// Core logic only ever writes to it.
type TraceSink interface {
	Append(ctx context.Context, traceID, stage string, data map[string]interface{}) error
}

// SearchService performs semantic, keyword, and hybrid search over the
// knowledge base, scoped by coach partition.
type SearchService struct {
	repo      SearchRepositoryInterface
	embedding EmbeddingClient
	sink      TraceSink
	cross     string
	threshold float64
	debug     config.DebugConfig
}

// NewSearchService creates a SearchService. crossCoachID names the one
// identity allowed to search across all coach partitions.
func NewSearchService(
	repo SearchRepositoryInterface,
	embedding EmbeddingClient,
	sink TraceSink,
	crossCoachID string,
	debug config.DebugConfig,
) *SearchService {
	return &SearchService{
		repo:      repo,
		embedding: embedding,
		sink:      sink,
		cross:     crossCoachID,
		threshold: DefaultSimilarityThreshold,
		debug:     debug,
	}
}

// Search runs the requested search method. Every identity except the
// cross-partition coach is forced to its own partition filter. A missing
// query embedding for semantic or hybrid search is a caller contract
// violation and fails fast.
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]*SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		CoachID:   input.CoachID,
		Operation: "search",
	})
	defer span.End()

	started := time.Now()

	method := normalizeSearchMethod(input.Method)
	limit := input.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	coachFilter := s.scopeFilter(input.CoachID)

	embedding := input.QueryEmbedding
	if method != SearchMethodKeyword && embedding == nil {
		if s.embedding == nil {
			return nil, domain.ErrMissingEmbedding
		}
		var err error
		embedding, err = s.embedding.GenerateEmbedding(ctx, input.Query)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	var results []*SearchResult
	var err error
	switch method {
	case SearchMethodSemantic:
		results, err = s.repo.SearchSemantic(ctx, embedding, coachFilter, s.threshold, limit)
	case SearchMethodKeyword:
		results, err = s.repo.SearchKeyword(ctx, input.Query, coachFilter, limit)
	default:
		results, err = s.repo.SearchHybrid(ctx, input.Query, embedding, coachFilter, HybridSemanticWeight, HybridTextWeight, limit)
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.debug.LogSearch {
		log.Printf("search: method=%s coach=%q filter=%q results=%d in %v",
			method, input.CoachID, coachFilter, len(results), time.Since(started))
	}

	s.appendTrace(ctx, input, method, len(results), time.Since(started))

	return results, nil
}

// scopeFilter applies the partition access rule: the cross-partition coach
// sees everything, everyone else only their own rows.
func (s *SearchService) scopeFilter(coachID string) string {
	if coachID == s.cross {
		return ""
	}
	return coachID
}

func (s *SearchService) appendTrace(ctx context.Context, input SearchInput, method SearchMethod, count int, elapsed time.Duration) {
	if s.sink == nil {
		return
	}
	traceID := telemetry.TraceIDFromContext(ctx)
	if traceID == "" {
		return
	}
	err := s.sink.Append(ctx, traceID, "knowledge_search", map[string]interface{}{
		"method":      string(method),
		"coach_id":    input.CoachID,
		"results":     count,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		log.Printf("search: trace append failed: %v", err)
	}
}

func normalizeSearchMethod(method SearchMethod) SearchMethod {
	switch strings.ToLower(strings.TrimSpace(string(method))) {
	case string(SearchMethodSemantic):
		return SearchMethodSemantic
	case string(SearchMethodKeyword):
		return SearchMethodKeyword
	default:
		return SearchMethodHybrid
	}
}
