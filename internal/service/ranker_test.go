package service

import (
	"strings"
	"testing"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankByRelevance_ContentKeywordBoosts(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "k1", Content: "Protein timing matters", Similarity: 0.5},
	}

	ranked := RankByRelevance(results, "protein timing")

	// 0.5 base + 0.1 for "protein" in content + 0.1 for "timing" in content.
	require.Len(t, ranked, 1)
	assert.InDelta(t, 0.7, ranked[0].CombinedScore, 1e-9)
}

func TestRankByRelevance_TitleBoostOutweighsContent(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "content-hit", Title: "Recovery", Content: "creatine helps strength", Similarity: 0.6},
		{KnowledgeID: "title-hit", Title: "Creatine Guide", Content: "take it daily", Similarity: 0.6},
	}

	ranked := RankByRelevance(results, "creatine")

	assert.Equal(t, "title-hit", ranked[0].KnowledgeID)
	// 0.6 + 0.2 title vs 0.6 + 0.1 content.
	assert.InDelta(t, 0.8, ranked[0].CombinedScore, 1e-9)
	assert.InDelta(t, 0.7, ranked[1].CombinedScore, 1e-9)
}

func TestRankByRelevance_DomainAffinityBoost(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "nutrition", Content: "meal plans", ExpertiseArea: domain.ExpertiseNutrition, Similarity: 0.5},
		{KnowledgeID: "general", Content: "meal plans", ExpertiseArea: domain.ExpertiseGeneral, Similarity: 0.5},
	}

	ranked := RankByRelevance(results, "protein macros")

	assert.Equal(t, "nutrition", ranked[0].KnowledgeID)
	assert.InDelta(t, 0.55, ranked[0].CombinedScore, 1e-9)
	assert.InDelta(t, 0.5, ranked[1].CombinedScore, 1e-9)
}

func TestRankByRelevance_ReordersByAdjustedScore(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "high-sim", Content: "unrelated material", Similarity: 0.75},
		{KnowledgeID: "boosted", Title: "Fasted Cardio", Content: "fasted cardio tradeoffs", Similarity: 0.6},
	}

	ranked := RankByRelevance(results, "fasted cardio")

	// 0.6 + 2*0.2 title + 2*0.1 content beats the raw 0.75.
	assert.Equal(t, "boosted", ranked[0].KnowledgeID)
	assert.Equal(t, "high-sim", ranked[1].KnowledgeID)
}

func TestRankByRelevance_StableForTies(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "first", Content: "same", Similarity: 0.5},
		{KnowledgeID: "second", Content: "same", Similarity: 0.5},
		{KnowledgeID: "third", Content: "same", Similarity: 0.5},
	}

	ranked := RankByRelevance(results, "nomatch")

	assert.Equal(t, "first", ranked[0].KnowledgeID)
	assert.Equal(t, "second", ranked[1].KnowledgeID)
	assert.Equal(t, "third", ranked[2].KnowledgeID)
}

func TestRankByRelevance_DropsNothing(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "a", Similarity: 0.9},
		{KnowledgeID: "b", Similarity: 0.1},
		{KnowledgeID: "c", Similarity: 0.0},
	}

	ranked := RankByRelevance(results, "query terms here")

	assert.Len(t, ranked, 3)
}

func TestRankByRelevance_ShortQueryTermsIgnored(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "k1", Content: "an ab to of it", Similarity: 0.5},
	}

	// Every query term is 2 characters or fewer, so no boosts apply.
	ranked := RankByRelevance(results, "an ab to")

	assert.InDelta(t, 0.5, ranked[0].CombinedScore, 1e-9)
}

func TestBuildContext_StopsAtBudget(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "a", Content: strings.Repeat("x", 50), Similarity: 0.9},
		{KnowledgeID: "b", Content: strings.Repeat("y", 50), Similarity: 0.8},
		{KnowledgeID: "c", Content: strings.Repeat("z", 50), Similarity: 0.7},
	}

	chunks := BuildContext(results, 110)

	// 50 + 50 fits; the third 50 would exceed 110.
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].SourceID)
	assert.Equal(t, "b", chunks[1].SourceID)
}

func TestBuildContext_OrderPreservingBreak(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "a", Content: strings.Repeat("x", 90), Similarity: 0.9},
		{KnowledgeID: "big", Content: strings.Repeat("y", 50), Similarity: 0.8},
		{KnowledgeID: "small", Content: "tiny", Similarity: 0.7},
	}

	chunks := BuildContext(results, 100)

	// The overflow at "big" ends the walk; "small" is not packed in even
	// though it would fit.
	require.Len(t, chunks, 1)
	assert.Equal(t, "a", chunks[0].SourceID)
}

func TestBuildContext_DefaultBudget(t *testing.T) {
	results := []*SearchResult{
		{KnowledgeID: "a", Content: "short", Similarity: 0.9},
	}

	chunks := BuildContext(results, 0)

	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Content)
}

func TestBuildContext_CarriesResultFields(t *testing.T) {
	results := []*SearchResult{
		{
			KnowledgeID:   "k1",
			Title:         "Sleep Hygiene",
			Content:       "Keep the room cool",
			ExpertiseArea: domain.ExpertiseRecovery,
			Similarity:    0.82,
		},
	}

	chunks := BuildContext(results, 1000)

	require.Len(t, chunks, 1)
	assert.Equal(t, "k1", chunks[0].SourceID)
	assert.Equal(t, "Sleep Hygiene", chunks[0].Title)
	assert.Equal(t, domain.ExpertiseRecovery, chunks[0].ExpertiseArea)
	assert.InDelta(t, 0.82, chunks[0].RelevanceScore, 1e-9)
}
