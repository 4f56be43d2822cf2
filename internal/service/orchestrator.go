package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fitstack/coachd/internal/config"
	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/telemetry"
	"github.com/google/uuid"
)

const (
	// DefaultTokenCap bounds the approximate token size of a context bundle
	DefaultTokenCap = 8000
	// MaxRAGChunks caps the knowledge chunks folded into a bundle
	MaxRAGChunks = 6
	// DefaultLoaderTimeout bounds each context loader so a hung subsystem
	// cannot stall the chat turn.
	DefaultLoaderTimeout = 4 * time.Second
	// charsPerToken is the character-to-token approximation used for
	// budget accounting.
	charsPerToken = 4
)

// PersonaSource loads a coach persona.
type PersonaSource interface {
	GetPersona(ctx context.Context, coachID string) (*domain.Persona, error)
}

// MemorySource loads the long-term memory snapshot for a user.
type MemorySource interface {
	GetMemory(ctx context.Context, userID string) (*domain.MemorySnapshot, error)
}

// DailySummarySource loads today's metrics summary for a user.
type DailySummarySource interface {
	GetDailySummary(ctx context.Context, userID string, date time.Time) (*domain.DailySummary, error)
}

// ConversationSource loads the running conversation summary for a user.
type ConversationSource interface {
	GetConversationSummary(ctx context.Context, userID string) (string, error)
}

// KnowledgeSearcher is the retrieval entry point used by the RAG loader.
type KnowledgeSearcher interface {
	Search(ctx context.Context, input SearchInput) ([]*SearchResult, error)
}

// OrchestratorInput describes one context-assembly request.
type OrchestratorInput struct {
	UserID  string
	CoachID string
	Message string

	SkipMemory bool
	SkipDaily  bool
	SkipRAG    bool
	// Lite skips memory, conversation summary, and daily metrics together.
	// RAG stays independently toggled.
	Lite bool

	TokenCap int
}

// Orchestrator fans out to every context source concurrently, tolerates
// individual failures, and assembles a bounded ContextBundle. Build never
// returns an error: each subsystem failure is logged and replaced with a
// documented default.
type Orchestrator struct {
	personas      PersonaSource
	memories      MemorySource
	dailies       DailySummarySource
	conversations ConversationSource
	searcher      KnowledgeSearcher
	sink          TraceSink
	loaderTimeout time.Duration
	debug         config.DebugConfig
}

// NewOrchestrator creates an Orchestrator with the default loader timeout.
func NewOrchestrator(
	personas PersonaSource,
	memories MemorySource,
	dailies DailySummarySource,
	conversations ConversationSource,
	searcher KnowledgeSearcher,
	sink TraceSink,
	debug config.DebugConfig,
) *Orchestrator {
	return &Orchestrator{
		personas:      personas,
		memories:      memories,
		dailies:       dailies,
		conversations: conversations,
		searcher:      searcher,
		sink:          sink,
		loaderTimeout: DefaultLoaderTimeout,
		debug:         debug,
	}
}

// loaderResult carries one loader's settlement.
type loaderResult struct {
	value interface{}
	err   error
}

// Build assembles the context bundle for a user turn. All non-skipped
// loaders run concurrently and every settlement is awaited; no failure
// short-circuits the others or reaches the caller.
func (o *Orchestrator) Build(ctx context.Context, input OrchestratorInput) *domain.ContextBundle {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.Build", telemetry.SpanAttributes{
		CoachID:   input.CoachID,
		UserID:    input.UserID,
		Operation: "context_build",
	})
	defer span.End()

	traceID := uuid.NewString()
	ctx = telemetry.WithTraceID(ctx, traceID)
	started := time.Now()

	tokenCap := input.TokenCap
	if tokenCap <= 0 {
		tokenCap = DefaultTokenCap
	}

	skipMemory := input.SkipMemory || input.Lite
	skipDaily := input.SkipDaily || input.Lite
	skipConversation := input.Lite
	skipRAG := input.SkipRAG

	o.appendTrace(ctx, traceID, "context_build_start", map[string]interface{}{
		"user_id":  input.UserID,
		"coach_id": input.CoachID,
		"lite":     input.Lite,
	})

	var (
		wg           sync.WaitGroup
		persona      loaderResult
		memory       loaderResult
		daily        loaderResult
		conversation loaderResult
		rag          loaderResult
	)

	o.launch(ctx, &wg, "persona", &persona, func(ctx context.Context) (interface{}, error) {
		return o.personas.GetPersona(ctx, input.CoachID)
	})

	if !skipMemory {
		o.launch(ctx, &wg, "memory", &memory, func(ctx context.Context) (interface{}, error) {
			return o.memories.GetMemory(ctx, input.UserID)
		})
	}

	if !skipDaily {
		o.launch(ctx, &wg, "daily_summary", &daily, func(ctx context.Context) (interface{}, error) {
			return o.dailies.GetDailySummary(ctx, input.UserID, time.Now().UTC())
		})
	}

	if !skipConversation {
		o.launch(ctx, &wg, "conversation_summary", &conversation, func(ctx context.Context) (interface{}, error) {
			return o.conversations.GetConversationSummary(ctx, input.UserID)
		})
	}

	if !skipRAG {
		o.launch(ctx, &wg, "rag", &rag, func(ctx context.Context) (interface{}, error) {
			return o.loadKnowledge(ctx, input)
		})
	}

	wg.Wait()

	bundle := &domain.ContextBundle{TraceID: traceID}

	if p, ok := persona.value.(*domain.Persona); ok && persona.err == nil && p != nil {
		bundle.Persona = p
	} else {
		if persona.err != nil {
			log.Printf("context build: persona loader failed, using fallback: %v", persona.err)
		}
		bundle.Persona = domain.FallbackPersona()
	}

	if m, ok := memory.value.(*domain.MemorySnapshot); ok && memory.err == nil {
		bundle.Memory = m
	}

	if d, ok := daily.value.(*domain.DailySummary); ok && daily.err == nil {
		bundle.DailySummary = d
	}

	if summary, ok := conversation.value.(string); ok && conversation.err == nil && summary != "" {
		trimmed := trimToTokenCap(summary, tokenCap)
		bundle.ConversationSummary = trimmed
		bundle.TokensUsed += approxTokens(trimmed)
	}

	if chunks, ok := rag.value.([]domain.ContextChunk); ok && rag.err == nil {
		if len(chunks) > MaxRAGChunks {
			chunks = chunks[:MaxRAGChunks]
		}
		bundle.KnowledgeChunks = chunks
	}

	o.appendTrace(ctx, traceID, "context_build_complete", map[string]interface{}{
		"tokens_used":  bundle.TokensUsed,
		"chunks":       len(bundle.KnowledgeChunks),
		"has_memory":   bundle.Memory != nil,
		"has_daily":    bundle.DailySummary != nil,
		"duration_ms":  time.Since(started).Milliseconds(),
		"persona_used": bundle.Persona.CoachID,
	})

	if o.debug.LogContext {
		log.Printf("context build: trace=%s chunks=%d tokens=%d in %v",
			traceID, len(bundle.KnowledgeChunks), bundle.TokensUsed, time.Since(started))
	}

	return bundle
}

// launch runs a loader in its own goroutine with a per-loader timeout and
// panic isolation, recording the settlement into result.
func (o *Orchestrator) launch(ctx context.Context, wg *sync.WaitGroup, name string, result *loaderResult, fn func(ctx context.Context) (interface{}, error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("loader %s panicked: %v", name, r)
				log.Printf("context build: %v", result.err)
			}
		}()

		loaderCtx, cancel := context.WithTimeout(ctx, o.loaderTimeout)
		defer cancel()

		value, err := fn(loaderCtx)
		if err != nil {
			result.err = err
			o.appendTrace(ctx, telemetry.TraceIDFromContext(ctx), "loader_"+name, map[string]interface{}{
				"status": "failed",
				"error":  err.Error(),
			})
			return
		}
		result.value = value
	}()
}

// loadKnowledge runs the RAG pipeline: hybrid search, relevance re-rank,
// and context-budget truncation.
func (o *Orchestrator) loadKnowledge(ctx context.Context, input OrchestratorInput) ([]domain.ContextChunk, error) {
	if o.searcher == nil {
		return nil, nil
	}

	results, err := o.searcher.Search(ctx, SearchInput{
		Query:      input.Message,
		CoachID:    input.CoachID,
		Method:     SearchMethodHybrid,
		MaxResults: MaxRAGChunks * 2,
	})
	if err != nil {
		return nil, err
	}

	ranked := RankByRelevance(results, input.Message)
	return BuildContext(ranked, DefaultMaxContextLength), nil
}

func (o *Orchestrator) appendTrace(ctx context.Context, traceID, stage string, data map[string]interface{}) {
	if o.sink == nil || traceID == "" {
		return
	}
	if err := o.sink.Append(ctx, traceID, stage, data); err != nil {
		log.Printf("context build: trace append failed: %v", err)
	}
}

// trimToTokenCap hard-truncates text to the character budget implied by the
// token cap, backing up to the nearest rune boundary.
func trimToTokenCap(text string, tokenCap int) string {
	maxChars := tokenCap * charsPerToken
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// approxTokens estimates the token count of text as ceil(len/4).
func approxTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}
