package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/spherical-ai/medicine-finder/internal/fsutil"
)

// StoreCache holds the embeddings of one store's items, row-aligned with ItemIDs.
type StoreCache struct {
	StoreID     string
	Model       string
	Fingerprint string
	ItemIDs     []string
	Vectors     [][]float32
	CreatedAt   time.Time
}

type storeCacheFile struct {
	StoreID     string    `json:"store_id"`
	Model       string    `json:"model"`
	Fingerprint string    `json:"fingerprint"`
	Dimension   int       `json:"dimension"`
	ItemIDs     []string  `json:"item_ids"`
	Vectors     []byte    `json:"vectors"` // little-endian float32, row-major
	CreatedAt   time.Time `json:"created_at"`
}

// Fingerprint identifies the inputs a store cache was built from: the model,
// its dimension and every item id and text in order.
func Fingerprint(model string, dimension int, ids, texts []string) string {
	h := sha256.New()
	writeField := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	writeField(model)
	writeField(strconv.Itoa(dimension))
	for i, id := range ids {
		writeField(id)
		if i < len(texts) {
			writeField(texts[i])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheDir stores one embedding cache file per store.
type CacheDir struct {
	dir string
}

// NewCacheDir returns a cache rooted at dir.
func NewCacheDir(dir string) *CacheDir {
	return &CacheDir{dir: dir}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Path returns the cache file path for a store.
func (c *CacheDir) Path(storeID string) string {
	name := unsafeChars.ReplaceAllString(storeID, "_")
	if name != storeID {
		// keep distinct ids distinct after sanitising
		sum := sha256.Sum256([]byte(storeID))
		name += "_" + hex.EncodeToString(sum[:4])
	}
	return filepath.Join(c.dir, "emb_cache_"+name+".json")
}

// Load reads a store cache. ok is false when no cache file exists.
func (c *CacheDir) Load(storeID string) (cache *StoreCache, ok bool, err error) {
	data, err := os.ReadFile(c.Path(storeID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read embedding cache: %w", err)
	}

	var f storeCacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("decode embedding cache: %w", err)
	}
	vectors, err := Unpack(f.Vectors, f.Dimension)
	if err != nil {
		return nil, false, fmt.Errorf("decode embedding cache: %w", err)
	}
	if len(vectors) != len(f.ItemIDs) {
		return nil, false, fmt.Errorf("embedding cache has %d vectors for %d items", len(vectors), len(f.ItemIDs))
	}

	return &StoreCache{
		StoreID:     f.StoreID,
		Model:       f.Model,
		Fingerprint: f.Fingerprint,
		ItemIDs:     f.ItemIDs,
		Vectors:     vectors,
		CreatedAt:   f.CreatedAt,
	}, true, nil
}

// Save writes a store cache atomically.
func (c *CacheDir) Save(cache *StoreCache) error {
	if len(cache.Vectors) != len(cache.ItemIDs) {
		return fmt.Errorf("embedding cache has %d vectors for %d items", len(cache.Vectors), len(cache.ItemIDs))
	}
	dim := 0
	if len(cache.Vectors) > 0 {
		dim = len(cache.Vectors[0])
	}
	for i, v := range cache.Vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	created := cache.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	data, err := json.Marshal(storeCacheFile{
		StoreID:     cache.StoreID,
		Model:       cache.Model,
		Fingerprint: cache.Fingerprint,
		Dimension:   dim,
		ItemIDs:     cache.ItemIDs,
		Vectors:     Pack(cache.Vectors),
		CreatedAt:   created,
	})
	if err != nil {
		return fmt.Errorf("encode embedding cache: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return fsutil.WriteFileAtomic(c.Path(cache.StoreID), data)
}
