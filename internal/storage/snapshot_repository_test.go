package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SnapshotRepository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "snap.db"), Options{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSnapshotRepository(ctx, db)
	require.NoError(t, err)
	return repo
}

func TestSnapshotRepository_PutGet(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	_, err := repo.GetDocument(ctx, "inventory")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.PutDocuments(ctx, map[string][]byte{
		"inventory": []byte(`{"S1":[]}`),
		"store_meta": []byte(`[]`),
	}))

	doc, err := repo.GetDocument(ctx, "inventory")
	require.NoError(t, err)
	assert.JSONEq(t, `{"S1":[]}`, string(doc))

	// second put overwrites
	require.NoError(t, repo.PutDocuments(ctx, map[string][]byte{"inventory": []byte(`{}`)}))
	doc, err = repo.GetDocument(ctx, "inventory")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(doc))

	require.NoError(t, repo.DeleteAll(ctx))
	_, err = repo.GetDocument(ctx, "store_meta")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", Options{})
	assert.Error(t, err)
}
