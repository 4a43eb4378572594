package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/helix/pkg/adapters/file"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunCacheStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, file.New(dir).Save(ctx, domain.Snapshot{
		Collection: domain.CollectionTensions,
		Rows:       json.RawMessage(`[{"id":3}]`),
		Count:      1,
	}))

	snap, err := file.New(dir).Load(ctx, domain.CollectionTensions)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Count)

	_, err = os.Stat(filepath.Join(dir, "tensions.json"))
	assert.NoError(t, err)
}

func TestFileStore_RejectsUnknownCollection(t *testing.T) {
	err := file.New(t.TempDir()).Save(context.Background(), domain.Snapshot{Collection: "../escape"})
	assert.ErrorIs(t, err, domain.ErrUnknownCollection)
}

func TestFileStore_ListIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widgets.json"), []byte("{}"), 0o644))

	cols, err := file.New(dir).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cols)
}
