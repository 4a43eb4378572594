package ports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCacheStoreContract runs a suite of tests to verify that a CacheStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunCacheStoreContract(t *testing.T, store CacheStore) {
	ctx := context.Background()
	fetched := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.Snapshot{
			Collection: domain.CollectionTensions,
			Rows:       json.RawMessage(`[{"id":1,"title":"Call the bank"}]`),
			Count:      1,
			FetchedAt:  fetched,
		}
		require.NoError(t, store.Save(ctx, snap), "Save should not return error")

		loaded, err := store.Load(ctx, domain.CollectionTensions)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.CollectionTensions, loaded.Collection)
		assert.JSONEq(t, string(snap.Rows), string(loaded.Rows))
		assert.Equal(t, 1, loaded.Count)
		assert.True(t, fetched.Equal(loaded.FetchedAt))
	})

	t.Run("Save replaces wholesale", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.Snapshot{
			Collection: domain.CollectionTensions,
			Rows:       json.RawMessage(`[]`),
			FetchedAt:  fetched.Add(time.Minute),
		}))

		loaded, err := store.Load(ctx, domain.CollectionTensions)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(loaded.Rows))
		assert.Zero(t, loaded.Count)
	})

	t.Run("Load is isolated from callers", func(t *testing.T) {
		rows := json.RawMessage(`{"connected":true}`)
		require.NoError(t, store.Save(ctx, domain.Snapshot{Collection: domain.CollectionCalendarStatus, Rows: rows}))
		rows[2] = 'X'

		loaded, err := store.Load(ctx, domain.CollectionCalendarStatus)
		require.NoError(t, err)
		assert.JSONEq(t, `{"connected":true}`, string(loaded.Rows))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, domain.CollectionBaselineFields)
		assert.ErrorIs(t, err, domain.ErrNotCached)
	})

	t.Run("List", func(t *testing.T) {
		cols, err := store.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.Collection{domain.CollectionTensions, domain.CollectionCalendarStatus}, cols)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, domain.CollectionTensions), "Delete should not return error")

		_, err := store.Load(ctx, domain.CollectionTensions)
		assert.ErrorIs(t, err, domain.ErrNotCached, "Load after Delete should return ErrNotCached")
		assert.NoError(t, store.Delete(ctx, domain.CollectionTensions), "second Delete is a no-op")
	})
}
