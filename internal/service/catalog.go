package service

import (
	"context"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/pagination"
	"github.com/fitstack/coachd/internal/telemetry"
	"github.com/google/uuid"
)

// CatalogRepositoryInterface defines the read/delete surface for the
// knowledge catalog. Writes go through KnowledgeIngestService so chunk
// invalidation stays transactional.
type CatalogRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	ListByCoachWithCursor(ctx context.Context, coachID string, cursor *pagination.Cursor, limit int) (*KnowledgePageResult, error)
	Delete(ctx context.Context, id string) error
}

type KnowledgePageResult struct {
	Items      []*domain.KnowledgeEntry
	NextCursor string
	HasMore    bool
}

type UpsertEntryInput struct {
	ID            string
	CoachID       string
	Title         string
	Content       string
	ExpertiseArea string
	Priority      string
	Tags          []string
	SourceURL     string
}

type ListEntriesInput struct {
	CoachID string
	Cursor  string
	Limit   int
}

type ListEntriesOutput struct {
	Items   []*domain.KnowledgeEntry
	Cursor  string
	HasMore bool
}

// KnowledgeCatalogService manages the knowledge catalog exposed over HTTP:
// manual entry upserts, lookups, paginated listings, and deletes.
type KnowledgeCatalogService struct {
	repo   CatalogRepositoryInterface
	ingest *KnowledgeIngestService
}

func NewKnowledgeCatalogService(repo CatalogRepositoryInterface, ingest *KnowledgeIngestService) *KnowledgeCatalogService {
	return &KnowledgeCatalogService{repo: repo, ingest: ingest}
}

// Upsert validates and writes an entry. A missing ID gets a fresh UUID; an
// existing ID replaces the stored entry and clears its chunks so the next
// embedding backfill picks it up.
func (s *KnowledgeCatalogService) Upsert(ctx context.Context, input UpsertEntryInput) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeCatalogService.Upsert", telemetry.SpanAttributes{
		CoachID:   input.CoachID,
		Operation: "upsert",
	})
	defer span.End()

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	priority := domain.KnowledgePriority(input.Priority)
	if priority == "" {
		priority = domain.KnowledgePriorityMedium
	}

	now := time.Now().UTC()
	entry := domain.NewKnowledgeEntry(
		id, input.CoachID, input.Title, input.Content,
		domain.ParseExpertiseArea(input.ExpertiseArea),
		priority,
		input.Tags,
		input.SourceURL,
		now, now,
	)

	if err := domain.ValidateKnowledgeEntry(entry); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge entry", err)
	}

	if err := s.ingest.Upsert(ctx, entry); err != nil {
		span.SetError(err)
		return nil, err
	}

	return entry, nil
}

func (s *KnowledgeCatalogService) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *KnowledgeCatalogService) List(ctx context.Context, input ListEntriesInput) (*ListEntriesOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeCatalogService.List", telemetry.SpanAttributes{
		CoachID:   input.CoachID,
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.repo.ListByCoachWithCursor(ctx, input.CoachID, cursor, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ListEntriesOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

func (s *KnowledgeCatalogService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeCatalogService.Delete", telemetry.SpanAttributes{
		Operation: "delete",
	})
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}
