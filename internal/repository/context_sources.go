package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PersonaRepository loads coach personas for context assembly.
type PersonaRepository struct {
	pool *pgxpool.Pool
}

func NewPersonaRepository(pool *pgxpool.Pool) *PersonaRepository {
	return &PersonaRepository{pool: pool}
}

func (r *PersonaRepository) GetPersona(ctx context.Context, coachID string) (*domain.Persona, error) {
	var p domain.Persona
	err := r.pool.QueryRow(ctx,
		`SELECT coach_id, display_name, system_prompt, expertise_area
		 FROM coach_personas WHERE coach_id = $1`,
		coachID,
	).Scan(&p.CoachID, &p.DisplayName, &p.SystemPrompt, &p.ExpertiseArea)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPersonaNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MemoryRepository loads long-term user memory snapshots.
type MemoryRepository struct {
	pool *pgxpool.Pool
}

func NewMemoryRepository(pool *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{pool: pool}
}

func (r *MemoryRepository) GetMemory(ctx context.Context, userID string) (*domain.MemorySnapshot, error) {
	var m domain.MemorySnapshot
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, summary, updated_at
		 FROM user_memories WHERE user_id = $1`,
		userID,
	).Scan(&m.UserID, &m.Summary, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemorySnapshotNotFound
		}
		return nil, err
	}
	return &m, nil
}

// DailySummaryRepository loads per-day metric summaries.
type DailySummaryRepository struct {
	pool *pgxpool.Pool
}

func NewDailySummaryRepository(pool *pgxpool.Pool) *DailySummaryRepository {
	return &DailySummaryRepository{pool: pool}
}

func (r *DailySummaryRepository) GetDailySummary(ctx context.Context, userID string, date time.Time) (*domain.DailySummary, error) {
	var d domain.DailySummary
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, date, calories, protein_g, workouts, notes
		 FROM daily_summaries WHERE user_id = $1 AND date = $2`,
		userID, date.Format("2006-01-02"),
	).Scan(&d.UserID, &d.Date, &d.Calories, &d.ProteinG, &d.Workouts, &d.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDailySummaryNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ConversationSummaryRepository loads the rolling conversation summary kept
// per user.
type ConversationSummaryRepository struct {
	pool *pgxpool.Pool
}

func NewConversationSummaryRepository(pool *pgxpool.Pool) *ConversationSummaryRepository {
	return &ConversationSummaryRepository{pool: pool}
}

func (r *ConversationSummaryRepository) GetConversationSummary(ctx context.Context, userID string) (string, error) {
	var summary string
	err := r.pool.QueryRow(ctx,
		`SELECT summary FROM conversation_summaries WHERE user_id = $1`,
		userID,
	).Scan(&summary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return summary, nil
}
