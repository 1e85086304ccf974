package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/medicine-finder/internal/storage"
)

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	csv := "store_id,store_name,latitude,longitude,medicine_id,medicine_name,medicine_desc,price,availability\n" +
		"S2,Second,1.5,2.5,M1,Paracetamol,fever relief,10,true\n" +
		"S1,First,0,1,M2,Ibuprofen,pain relief,20.25,false\n"
	cat, err := Load(writeFile(t, "inv.csv", csv), DefaultColumnCandidates())
	require.NoError(t, err)
	return cat
}

func TestFileSnapshotStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileSnapshotStore(dir)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotMissing)

	original := sampleCatalog(t)
	require.NoError(t, store.Save(ctx, original))

	for _, name := range fileNames {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
	assert.Equal(t, "S2", loaded.Stores[0].ID, "store order survives the round trip")
}

func TestFileSnapshotStore_PartialSnapshotIsMissing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileSnapshotStore(dir)
	require.NoError(t, store.Save(ctx, sampleCatalog(t)))

	require.NoError(t, os.Remove(filepath.Join(dir, fileNames[DocDescriptions])))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotMissing)
}

func TestSQLSnapshotStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "snap.db"), storage.Options{MaxOpenConns: 1})
	require.NoError(t, err)

	repo, err := storage.NewSnapshotRepository(ctx, db)
	require.NoError(t, err)

	store := NewSQLSnapshotStore(repo, db.Close)
	defer store.Close()

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotMissing)

	original := sampleCatalog(t)
	require.NoError(t, store.Save(ctx, original))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotMissing)
}

func TestFileSnapshotStore_Clear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileSnapshotStore(dir)

	require.NoError(t, store.Clear(ctx), "clearing an empty directory is fine")

	require.NoError(t, store.Save(ctx, sampleCatalog(t)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))

	require.NoError(t, store.Clear(ctx))
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotMissing)
	assert.FileExists(t, filepath.Join(dir, "unrelated.txt"))
}
