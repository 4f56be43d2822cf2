//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEmbeddingJobRepository(pool)

	job := domain.NewEmbeddingJob(uuid.NewString(), 2, []string{"k1", "k2", "k3"}, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusPending, got.Status)
	assert.Equal(t, []string{"k1", "k2", "k3"}, got.EntryIDs)
	assert.Equal(t, 3, got.TotalEntries)

	got.Status = domain.EmbeddingJobStatusRunning
	got.CurrentBatch = 1
	got.ProcessedEntries = 2
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.CurrentBatch)
	assert.Equal(t, 2, reloaded.ProcessedEntries)

	unfinished, err := repo.ListUnfinished(ctx)
	require.NoError(t, err)
	require.Len(t, unfinished, 1)

	reloaded.Status = domain.EmbeddingJobStatusCompleted
	reloaded.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, reloaded))

	unfinished, err = repo.ListUnfinished(ctx)
	require.NoError(t, err)
	assert.Empty(t, unfinished)
}

func TestEmbeddingJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEmbeddingJobRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrEmbeddingJobNotFound)

	err = repo.Update(ctx, domain.NewEmbeddingJob(uuid.NewString(), 10, []string{"x"}, time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrEmbeddingJobNotFound)
}
