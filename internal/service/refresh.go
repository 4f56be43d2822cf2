package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/telemetry"
	"github.com/google/uuid"
)

// RefreshPipelineName is the scheduler registration name for the
// knowledge-refresh pipeline.
const RefreshPipelineName = "knowledge_refresh"

// DefaultRefreshConfig returns the configuration installed for the refresh
// pipeline on startup. Installing it through Scheduler.EnsureConfig keeps
// the scheduler state of an existing row intact.
func DefaultRefreshConfig() *domain.PipelineConfig {
	return &domain.PipelineConfig{
		Name:             RefreshPipelineName,
		Enabled:          true,
		Interval:         6 * time.Hour,
		MaxEntriesPerRun: 50,
		MaxFailures:      3,
	}
}

// SourceDocument is a knowledge document fetched from an external store.
type SourceDocument struct {
	Key           string
	Title         string
	Content       string
	CoachID       string
	ExpertiseArea string
}

// DocumentSource lists and fetches raw knowledge documents.
type DocumentSource interface {
	ListDocuments(ctx context.Context) ([]string, error)
	FetchDocument(ctx context.Context, key string) (*SourceDocument, error)
}

// KnowledgeUpserter persists refreshed entries. Upserts are keyed by entry
// ID so re-ingesting the same document replaces it instead of duplicating.
type KnowledgeUpserter interface {
	Upsert(ctx context.Context, entry *domain.KnowledgeEntry) error
}

// JobStarter kicks off embedding backfill after ingest.
type JobStarter interface {
	StartJob(ctx context.Context, batchSize int) (*domain.EmbeddingJob, error)
}

// RefreshPipeline ingests documents from a source store into the knowledge
// base and hands freshly ingested entries to the embedding backfill. Its Run
// method satisfies PipelineFunc.
type RefreshPipeline struct {
	source    DocumentSource
	knowledge KnowledgeUpserter
	jobs      JobStarter
}

// NewRefreshPipeline creates a RefreshPipeline.
func NewRefreshPipeline(source DocumentSource, knowledge KnowledgeUpserter, jobs JobStarter) *RefreshPipeline {
	return &RefreshPipeline{source: source, knowledge: knowledge, jobs: jobs}
}

// Run ingests up to cfg.MaxEntriesPerRun documents. Individual document
// failures are logged and skipped; the run fails only when the source
// cannot be listed or every fetched document fails to persist.
func (p *RefreshPipeline) Run(ctx context.Context, cfg *domain.PipelineConfig) (*PipelineStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "RefreshPipeline.Run", telemetry.SpanAttributes{
		Operation: "knowledge_refresh",
	})
	defer span.End()

	keys, err := p.source.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing source documents: %w", err)
	}

	maxEntries := cfg.MaxEntriesPerRun
	if maxEntries <= 0 || maxEntries > len(keys) {
		maxEntries = len(keys)
	}

	defaultCoach := cfg.Settings["coach_id"]
	defaultArea := cfg.Settings["expertise_area"]

	ingested := 0
	failed := 0
	for _, key := range keys[:maxEntries] {
		doc, err := p.source.FetchDocument(ctx, key)
		if err != nil {
			log.Printf("refresh %s: fetching %s: %v", cfg.Name, key, err)
			failed++
			continue
		}

		entry := entryFromDocument(doc, defaultCoach, defaultArea)
		if err := domain.ValidateKnowledgeEntry(entry); err != nil {
			log.Printf("refresh %s: skipping %s: %v", cfg.Name, key, err)
			failed++
			continue
		}

		if err := p.knowledge.Upsert(ctx, entry); err != nil {
			log.Printf("refresh %s: upserting %s: %v", cfg.Name, key, err)
			failed++
			continue
		}
		ingested++
	}

	if ingested == 0 && failed > 0 {
		return nil, fmt.Errorf("all %d documents failed to ingest", failed)
	}

	if ingested > 0 && p.jobs != nil {
		if _, err := p.jobs.StartJob(ctx, 0); err != nil {
			log.Printf("refresh %s: starting embedding job: %v", cfg.Name, err)
		}
	}

	return &PipelineStats{EntriesProcessed: ingested}, nil
}

// entryFromDocument maps a source document to a knowledge entry. The entry
// ID is derived deterministically from the document key so repeated runs
// update in place.
func entryFromDocument(doc *SourceDocument, defaultCoach, defaultArea string) *domain.KnowledgeEntry {
	coachID := doc.CoachID
	if coachID == "" {
		coachID = defaultCoach
	}

	areaName := doc.ExpertiseArea
	if areaName == "" {
		areaName = defaultArea
	}
	area := domain.ParseExpertiseArea(areaName)

	title := doc.Title
	if title == "" {
		title = titleFromKey(doc.Key)
	}

	now := time.Now().UTC()
	return domain.NewKnowledgeEntry(
		uuid.NewSHA1(uuid.NameSpaceURL, []byte("coachd:knowledge:"+doc.Key)).String(),
		coachID,
		title,
		doc.Content,
		area,
		domain.KnowledgePriorityMedium,
		nil,
		doc.Key,
		now, now,
	)
}

func titleFromKey(key string) string {
	base := path.Base(key)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.ReplaceAll(base, "_", " ")
}
