package service

import (
	"sort"
	"strings"

	"github.com/fitstack/coachd/internal/domain"
)

const (
	contentKeywordBoost  = 0.1
	titleKeywordBoost    = 0.2
	expertiseDomainBoost = 0.05

	// DefaultMaxContextLength bounds the characters of knowledge folded
	// into a context bundle.
	DefaultMaxContextLength = 4000
)

// expertiseKeywords maps each expertise area to the query terms that signal
// domain affinity with it.
var expertiseKeywords = map[domain.ExpertiseArea][]string{
	domain.ExpertiseNutrition:   {"protein", "carb", "carbs", "calorie", "calories", "macro", "macros", "meal", "diet", "fasting"},
	domain.ExpertiseTraining:    {"workout", "training", "lift", "lifting", "cardio", "sets", "reps", "exercise", "strength"},
	domain.ExpertiseSupplements: {"supplement", "creatine", "vitamin", "magnesium", "omega"},
	domain.ExpertisePeptides:    {"peptide", "peptides", "dosing", "protocol", "injection"},
	domain.ExpertiseRecovery:    {"sleep", "recovery", "rest", "soreness", "stress"},
}

// RankByRelevance re-scores search hits against the query: +0.1 per query
// keyword found in content, +0.2 per keyword found in title, +0.05 when the
// hit's expertise area has domain affinity with the query. The re-rank is
// stable and drops nothing.
func RankByRelevance(results []*SearchResult, query string) []*SearchResult {
	if len(results) == 0 {
		return results
	}

	keywords := queryKeywords(query)

	type scored struct {
		result *SearchResult
		score  float64
	}

	ranked := make([]scored, len(results))
	for i, r := range results {
		score := r.Score()
		content := strings.ToLower(r.Content)
		title := strings.ToLower(r.Title)

		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				score += contentKeywordBoost
			}
			if strings.Contains(title, kw) {
				score += titleKeywordBoost
			}
		}

		if hasDomainAffinity(r.ExpertiseArea, keywords) {
			score += expertiseDomainBoost
		}

		ranked[i] = scored{result: r, score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]*SearchResult, len(ranked))
	for i, r := range ranked {
		out[i] = r.result
		out[i].CombinedScore = r.score
	}
	return out
}

// BuildContext accumulates ranked results into context chunks while the
// running character total stays within maxContextLength. Truncation is
// order-preserving: the first chunk that would overflow stops the walk,
// with no skip-ahead packing.
func BuildContext(results []*SearchResult, maxContextLength int) []domain.ContextChunk {
	if maxContextLength <= 0 {
		maxContextLength = DefaultMaxContextLength
	}

	chunks := make([]domain.ContextChunk, 0, len(results))
	total := 0

	for _, r := range results {
		if total+len(r.Content) > maxContextLength {
			break
		}
		total += len(r.Content)
		chunks = append(chunks, domain.ContextChunk{
			SourceID:       r.KnowledgeID,
			Title:          r.Title,
			Content:        r.Content,
			ExpertiseArea:  r.ExpertiseArea,
			RelevanceScore: r.Score(),
		})
	}

	return chunks
}

// queryKeywords extracts lowercase query terms longer than 2 characters.
func queryKeywords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

func hasDomainAffinity(area domain.ExpertiseArea, keywords []string) bool {
	domainTerms, ok := expertiseKeywords[area]
	if !ok {
		return false
	}
	for _, kw := range keywords {
		for _, term := range domainTerms {
			if kw == term {
				return true
			}
		}
	}
	return false
}
