package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spherical-ai/medicine-finder/internal/fsutil"
	"github.com/spherical-ai/medicine-finder/internal/storage"
)

// Snapshot document keys.
const (
	DocStoreMeta    = "store_meta"
	DocInventory    = "inventory"
	DocDescriptions = "medicine_descriptions"
)

// SnapshotStore persists a normalized catalog so later runs can skip parsing.
type SnapshotStore interface {
	// Load returns ErrSnapshotMissing unless all three documents are present.
	Load(ctx context.Context) (*Catalog, error)
	Save(ctx context.Context, cat *Catalog) error
	// Clear removes every document; a missing snapshot is not an error.
	Clear(ctx context.Context) error
	Close() error
}

var fileNames = map[string]string{
	DocStoreMeta:    "processed_store_meta.json",
	DocInventory:    "processed_inventory.json",
	DocDescriptions: "processed_med_desc_map.json",
}

// FileSnapshotStore keeps each document as a JSON file in a directory.
type FileSnapshotStore struct {
	dir string
}

// NewFileSnapshotStore returns a store rooted at dir.
func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{dir: dir}
}

// Load implements SnapshotStore.
func (s *FileSnapshotStore) Load(ctx context.Context) (*Catalog, error) {
	return decodeDocuments(func(key string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(s.dir, fileNames[key]))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSnapshotMissing
		}
		return data, err
	})
}

// Save implements SnapshotStore. Each file is replaced atomically.
func (s *FileSnapshotStore) Save(ctx context.Context, cat *Catalog) error {
	docs, err := encodeDocuments(cat)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	for _, key := range []string{DocStoreMeta, DocInventory, DocDescriptions} {
		if err := fsutil.WriteFileAtomic(filepath.Join(s.dir, fileNames[key]), docs[key]); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return nil
}

// Clear implements SnapshotStore.
func (s *FileSnapshotStore) Clear(ctx context.Context) error {
	for _, name := range fileNames {
		err := os.Remove(filepath.Join(s.dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// Close implements SnapshotStore.
func (s *FileSnapshotStore) Close() error { return nil }

// DocumentStore is the subset of storage.SnapshotRepository used here.
type DocumentStore interface {
	GetDocument(ctx context.Context, key string) ([]byte, error)
	PutDocuments(ctx context.Context, docs map[string][]byte) error
	DeleteAll(ctx context.Context) error
}

// SQLSnapshotStore keeps the documents in a sqlite or postgres table.
type SQLSnapshotStore struct {
	docs   DocumentStore
	closer func() error
}

// NewSQLSnapshotStore wraps a document store. closer may be nil.
func NewSQLSnapshotStore(docs DocumentStore, closer func() error) *SQLSnapshotStore {
	return &SQLSnapshotStore{docs: docs, closer: closer}
}

// Load implements SnapshotStore.
func (s *SQLSnapshotStore) Load(ctx context.Context) (*Catalog, error) {
	return decodeDocuments(func(key string) ([]byte, error) {
		data, err := s.docs.GetDocument(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSnapshotMissing
		}
		return data, err
	})
}

// Save implements SnapshotStore. All documents are written in one transaction.
func (s *SQLSnapshotStore) Save(ctx context.Context, cat *Catalog) error {
	docs, err := encodeDocuments(cat)
	if err != nil {
		return err
	}
	return s.docs.PutDocuments(ctx, docs)
}

// Clear implements SnapshotStore.
func (s *SQLSnapshotStore) Clear(ctx context.Context) error {
	return s.docs.DeleteAll(ctx)
}

// Close implements SnapshotStore.
func (s *SQLSnapshotStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func encodeDocuments(cat *Catalog) (map[string][]byte, error) {
	stores := cat.Stores
	if stores == nil {
		stores = []Store{}
	}
	out := make(map[string][]byte, 3)
	for key, v := range map[string]interface{}{
		DocStoreMeta:    stores,
		DocInventory:    cat.Inventory,
		DocDescriptions: cat.Descriptions,
	} {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = data
	}
	return out, nil
}

func decodeDocuments(get func(key string) ([]byte, error)) (*Catalog, error) {
	cat := New()
	targets := []struct {
		key string
		dst interface{}
	}{
		{DocStoreMeta, &cat.Stores},
		{DocInventory, &cat.Inventory},
		{DocDescriptions, &cat.Descriptions},
	}
	for _, t := range targets {
		data, err := get(t.key)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, t.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t.key, err)
		}
	}
	if cat.Inventory == nil {
		cat.Inventory = make(map[string][]Item)
	}
	if cat.Descriptions == nil {
		cat.Descriptions = make(map[string]string)
	}
	return cat, nil
}
