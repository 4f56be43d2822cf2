package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/pagination"
	"github.com/fitstack/coachd/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

const knowledgeColumns = `id, coach_id, title, content, expertise_area, priority, tags, source_url, created_at, updated_at`

func (r *KnowledgeRepository) Create(ctx context.Context, k *domain.KnowledgeEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_entries (`+knowledgeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		k.ID, k.CoachID, k.Title, k.Content, k.ExpertiseArea, k.Priority, k.Tags, nullableString(k.SourceURL), k.CreatedAt, k.UpdatedAt,
	)
	return err
}

// Upsert inserts or replaces an entry keyed by id. The updated_at timestamp
// always moves forward so refresh runs are visible.
func (r *KnowledgeRepository) Upsert(ctx context.Context, k *domain.KnowledgeEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_entries (`+knowledgeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			coach_id = EXCLUDED.coach_id,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			expertise_area = EXCLUDED.expertise_area,
			priority = EXCLUDED.priority,
			tags = EXCLUDED.tags,
			source_url = EXCLUDED.source_url,
			updated_at = EXCLUDED.updated_at`,
		k.ID, k.CoachID, k.Title, k.Content, k.ExpertiseArea, k.Priority, k.Tags, nullableString(k.SourceURL), k.CreatedAt, time.Now().UTC(),
	)
	return err
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+knowledgeColumns+` FROM knowledge_entries WHERE id = $1`, id)
	entry, err := scanKnowledgeEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *KnowledgeRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.KnowledgeEntry, error) {
	if len(ids) == 0 {
		return []*domain.KnowledgeEntry{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeColumns+` FROM knowledge_entries WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

func (r *KnowledgeRepository) ListByCoach(ctx context.Context, coachID string) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeColumns+` FROM knowledge_entries WHERE coach_id = $1 ORDER BY updated_at DESC`,
		coachID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

func (r *KnowledgeRepository) ListByCoachWithCursor(ctx context.Context, coachID string, cursor *pagination.Cursor, limit int) (*service.KnowledgePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeColumns+`
			 FROM knowledge_entries
			 WHERE coach_id = $1 AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			coachID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeColumns+`
			 FROM knowledge_entries
			 WHERE coach_id = $1
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			coachID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanKnowledgeRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.KnowledgePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListIDsMissingEmbeddings returns IDs of entries with no chunk rows, which
// is how an entry overdue for embedding presents. Updated entries qualify
// because ingestion clears their chunks.
func (r *KnowledgeRepository) ListIDsMissingEmbeddings(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id
		 FROM knowledge_entries e
		 LEFT JOIN knowledge_chunks c ON c.knowledge_id = e.id
		 WHERE c.knowledge_id IS NULL
		 ORDER BY e.created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *KnowledgeRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM knowledge_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeNotFound
	}
	return nil
}

type knowledgeScanner interface {
	Scan(dest ...any) error
}

func scanKnowledgeEntry(row knowledgeScanner) (*domain.KnowledgeEntry, error) {
	var k domain.KnowledgeEntry
	var sourceURL *string
	err := row.Scan(&k.ID, &k.CoachID, &k.Title, &k.Content, &k.ExpertiseArea, &k.Priority, &k.Tags, &sourceURL, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sourceURL != nil {
		k.SourceURL = *sourceURL
	}
	return &k, nil
}

func scanKnowledgeRows(rows pgx.Rows) ([]*domain.KnowledgeEntry, error) {
	var entries []*domain.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
