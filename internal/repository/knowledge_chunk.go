package repository

import (
	"context"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// KnowledgeChunkRepository handles persistence and retrieval of chunked
// knowledge embeddings, including the vector and keyword search paths.
type KnowledgeChunkRepository struct {
	db dbtx
}

func NewKnowledgeChunkRepository(pool *pgxpool.Pool) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: pool}
}

func NewKnowledgeChunkRepositoryWithTx(tx dbtx) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for an entry and inserts new ones.
func (r *KnowledgeChunkRepository) ReplaceChunks(ctx context.Context, knowledgeID string, chunks []domain.KnowledgeChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE knowledge_id = $1`, knowledgeID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(knowledge_id, coach_id, expertise_area, title, chunk_index, content, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.KnowledgeID,
			c.CoachID,
			c.ExpertiseArea,
			c.Title,
			c.ChunkIndex,
			c.Content,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// SearchSemantic returns chunks by cosine similarity against the query
// embedding, keeping only hits at or above the threshold. An empty
// coachFilter searches all partitions.
func (r *KnowledgeChunkRepository) SearchSemantic(ctx context.Context, embedding []float32, coachFilter string, threshold float64, limit int) ([]*service.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT knowledge_id, chunk_index, content, title, coach_id, expertise_area,
		        1 - (embedding <=> $1) AS similarity
		 FROM knowledge_chunks
		 WHERE embedding IS NOT NULL
		   AND ($2 = '' OR coach_id = $2)
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(embedding), coachFilter, threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSearchResults(rows, false)
}

// SearchKeyword returns chunks matching the query by full-text search.
// Keyword-only hits carry no distance metric, so each gets the flat
// similarity the scorer expects.
func (r *KnowledgeChunkRepository) SearchKeyword(ctx context.Context, query string, coachFilter string, limit int) ([]*service.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT knowledge_id, chunk_index, content, title, coach_id, expertise_area,
		        ts_rank(content_tsv, websearch_to_tsquery('english', $1)) AS rank
		 FROM knowledge_chunks
		 WHERE content_tsv @@ websearch_to_tsquery('english', $1)
		   AND ($2 = '' OR coach_id = $2)
		 ORDER BY rank DESC
		 LIMIT $3`,
		query, coachFilter, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := scanSearchResults(rows, false)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		result.Similarity = service.KeywordFlatSimilarity
	}
	return results, nil
}

// SearchHybrid combines vector similarity and full-text rank with the given
// weights, ordered by the combined score.
func (r *KnowledgeChunkRepository) SearchHybrid(ctx context.Context, query string, embedding []float32, coachFilter string, semanticWeight, textWeight float64, limit int) ([]*service.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT knowledge_id, chunk_index, content, title, coach_id, expertise_area,
		        1 - (embedding <=> $2) AS similarity,
		        $4::float8 * (1 - (embedding <=> $2))
		          + $5::float8 * COALESCE(ts_rank(content_tsv, websearch_to_tsquery('english', $1)), 0) AS combined_score
		 FROM knowledge_chunks
		 WHERE embedding IS NOT NULL
		   AND ($3 = '' OR coach_id = $3)
		 ORDER BY combined_score DESC
		 LIMIT $6`,
		query, pgvector.NewVector(embedding), coachFilter, semanticWeight, textWeight, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSearchResults(rows, true)
}

func scanSearchResults(rows pgx.Rows, withCombined bool) ([]*service.SearchResult, error) {
	results := make([]*service.SearchResult, 0)
	for rows.Next() {
		var result service.SearchResult
		dest := []any{
			&result.KnowledgeID, &result.ChunkIndex, &result.Content,
			&result.Title, &result.CoachID, &result.ExpertiseArea,
			&result.Similarity,
		}
		if withCombined {
			dest = append(dest, &result.CombinedScore)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}
