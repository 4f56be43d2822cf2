//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/fitstack/coachd/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ctx context.Context, t *testing.T) *DocumentStore {
	t.Helper()

	rc := testutil.NewRustFSContainer(ctx, t)
	t.Cleanup(func() {
		_ = rc.Terminate(context.Background())
	})

	store, err := NewDocumentStore(ctx, DocumentStoreConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "coachd-test",
		Prefix:          "knowledge",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	return store
}

func TestDocumentStore_ListAndFetch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(ctx, t)

	require.NoError(t, store.PutDocument(ctx,
		"knowledge/coach-alpha/nutrition/protein_timing.md",
		"# Protein Timing\n\nProtein within two hours of training supports recovery.",
	))
	require.NoError(t, store.PutDocument(ctx,
		"knowledge/coach-alpha/training/progressive_overload.md",
		"Increase load gradually week over week.",
	))
	require.NoError(t, store.PutDocument(ctx,
		"knowledge/coach-alpha/nutrition/photo.png",
		"binary-ish",
	))

	keys, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"knowledge/coach-alpha/nutrition/protein_timing.md",
		"knowledge/coach-alpha/training/progressive_overload.md",
	}, keys)

	doc, err := store.FetchDocument(ctx, "knowledge/coach-alpha/nutrition/protein_timing.md")
	require.NoError(t, err)
	assert.Equal(t, "coach-alpha", doc.CoachID)
	assert.Equal(t, "nutrition", doc.ExpertiseArea)
	assert.Equal(t, "Protein Timing", doc.Title)
	assert.Equal(t, "Protein within two hours of training supports recovery.", doc.Content)

	doc, err = store.FetchDocument(ctx, "knowledge/coach-alpha/training/progressive_overload.md")
	require.NoError(t, err)
	assert.Empty(t, doc.Title)
	assert.Equal(t, "training", doc.ExpertiseArea)
}

func TestDocumentStore_FetchMissingKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(ctx, t)

	_, err := store.FetchDocument(ctx, "knowledge/coach-alpha/nope.md")
	assert.Error(t, err)
}
