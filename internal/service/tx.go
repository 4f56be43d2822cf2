package service

import (
	"context"

	"github.com/fitstack/coachd/internal/domain"
)

// KnowledgeWriteRepository is the transactional write surface for entries.
type KnowledgeWriteRepository interface {
	Upsert(ctx context.Context, entry *domain.KnowledgeEntry) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Knowledge() KnowledgeWriteRepository
	Chunks() EmbeddingChunkRepository
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// KnowledgeIngestService writes refreshed entries atomically: the entry
// upsert and the stale-chunk purge land together, so an updated entry is
// picked up by the next embedding backfill and never searched with stale
// vectors.
type KnowledgeIngestService struct {
	tx TxRunner
}

func NewKnowledgeIngestService(tx TxRunner) *KnowledgeIngestService {
	return &KnowledgeIngestService{tx: tx}
}

func (s *KnowledgeIngestService) Upsert(ctx context.Context, entry *domain.KnowledgeEntry) error {
	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Knowledge().Upsert(ctx, entry); err != nil {
			return err
		}
		return repos.Chunks().ReplaceChunks(ctx, entry.ID, nil)
	})
}
