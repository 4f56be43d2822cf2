package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TraceRepository is the append-only event store behind request tracing.
// Core logic only ever writes to it; readers are external debug tooling.
type TraceRepository struct {
	pool *pgxpool.Pool
}

func NewTraceRepository(pool *pgxpool.Pool) *TraceRepository {
	return &TraceRepository{pool: pool}
}

func (r *TraceRepository) Append(ctx context.Context, traceID, stage string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO trace_events (trace_id, stage, ts, data)
		 VALUES ($1, $2, $3, $4)`,
		traceID, stage, time.Now().UTC(), payload,
	)
	return err
}
