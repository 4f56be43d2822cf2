package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fitstack/coachd/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingKnowledgeRepository defines the repository interface for embedding operations
type EmbeddingKnowledgeRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]*domain.KnowledgeEntry, error)
	ListIDsMissingEmbeddings(ctx context.Context) ([]string, error)
}

// EmbeddingChunkRepository defines the repository interface for chunked knowledge embeddings
type EmbeddingChunkRepository interface {
	ReplaceChunks(ctx context.Context, knowledgeID string, chunks []domain.KnowledgeChunk) error
}

// EmbeddingService generates and stores chunk embeddings for knowledge entries
type EmbeddingService struct {
	client    EmbeddingClient
	repo      EmbeddingKnowledgeRepository
	chunkRepo EmbeddingChunkRepository
	maxChunk  int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(
	client EmbeddingClient,
	repo EmbeddingKnowledgeRepository,
	chunkRepo EmbeddingChunkRepository,
) *EmbeddingService {
	return &EmbeddingService{
		client:    client,
		repo:      repo,
		chunkRepo: chunkRepo,
		maxChunk:  DefaultMaxChunkLength,
	}
}

// EmbedEntryResult reports the outcome of embedding a single entry.
type EmbedEntryResult struct {
	ChunksStored int
	ChunksFailed int
}

// EmbedEntry chunks an entry's embedding text, embeds each chunk, and stores
// the resulting chunk rows. A failed chunk embedding is counted and skipped
// rather than aborting the entry, so a flaky provider degrades the entry
// instead of halting the batch.
func (s *EmbeddingService) EmbedEntry(ctx context.Context, entry *domain.KnowledgeEntry) (EmbedEntryResult, error) {
	var result EmbedEntryResult
	if entry == nil {
		return result, fmt.Errorf("entry cannot be nil")
	}

	text := BuildEmbeddingText(entry)
	chunks := ChunkText(text, s.maxChunk)

	createdAt := time.Now().UTC()
	stored := make([]domain.KnowledgeChunk, 0, len(chunks))

	for _, chunk := range chunks {
		embedding, err := s.client.GenerateEmbedding(ctx, chunk)
		if err != nil {
			result.ChunksFailed++
			continue
		}

		// Indexes stay contiguous from 0 even when a chunk is skipped.
		stored = append(stored, domain.KnowledgeChunk{
			KnowledgeID:   entry.ID,
			CoachID:       entry.CoachID,
			ExpertiseArea: entry.ExpertiseArea,
			Title:         entry.Title,
			ChunkIndex:    len(stored),
			Content:       chunk,
			Embedding:     embedding,
			CreatedAt:     createdAt,
		})
	}

	if len(stored) > 0 {
		if err := s.chunkRepo.ReplaceChunks(ctx, entry.ID, stored); err != nil {
			return result, fmt.Errorf("failed to store knowledge chunks: %w", err)
		}
	}

	result.ChunksStored = len(stored)
	return result, nil
}

// BuildEmbeddingText assembles the text embedded for a knowledge entry:
// title, content, and searchable metadata.
func BuildEmbeddingText(k *domain.KnowledgeEntry) string {
	var parts []string

	if k.Title != "" {
		parts = append(parts, k.Title)
	}
	if k.Content != "" {
		parts = append(parts, k.Content)
	}
	if k.ExpertiseArea != "" {
		parts = append(parts, fmt.Sprintf("Expertise: %s", k.ExpertiseArea))
	}
	if len(k.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("Tags: %s", strings.Join(k.Tags, ", ")))
	}

	return strings.Join(parts, "\n\n")
}
