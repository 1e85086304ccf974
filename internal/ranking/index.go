package ranking

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/embedding"
)

// storeIndex is the per-store lookup state built once at initialization.
type storeIndex struct {
	store   catalog.Store
	items   []catalog.Item
	byID    map[string][]int
	byName  map[string][]int
	vectors [][]float32 // row-aligned with items; nil when embeddings are unavailable
}

func newStoreIndex(store catalog.Store, items []catalog.Item) *storeIndex {
	idx := &storeIndex{
		store:  store,
		items:  items,
		byID:   make(map[string][]int),
		byName: make(map[string][]int),
	}
	for i, it := range items {
		if it.ID != "" {
			idx.byID[it.ID] = append(idx.byID[it.ID], i)
		}
		idx.byName[nameKey(it.Name)] = append(idx.byName[nameKey(it.Name)], i)
	}
	return idx
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// exactMatch finds an available item by id, then by case-insensitive name.
// Among candidates an available one wins, then the lowest price; the winner
// is only accepted if it is available.
func (idx *storeIndex) exactMatch(med RequestedMedicine) (catalog.Item, bool) {
	if med.MedicineID != "" {
		if it, ok := idx.bestAvailable(idx.byID[med.MedicineID]); ok {
			return it, true
		}
	}
	if key := nameKey(med.Name); key != "" {
		if it, ok := idx.bestAvailable(idx.byName[key]); ok {
			return it, true
		}
	}
	return catalog.Item{}, false
}

func (idx *storeIndex) bestAvailable(candidates []int) (catalog.Item, bool) {
	best := -1
	for _, i := range candidates {
		if best < 0 || better(idx.items[i], idx.items[best]) {
			best = i
		}
	}
	if best < 0 || !idx.items[best].Available {
		return catalog.Item{}, false
	}
	return idx.items[best], true
}

func better(a, b catalog.Item) bool {
	if a.Available != b.Available {
		return a.Available
	}
	return a.Price < b.Price
}

func (s *Session) buildIndexes(ctx context.Context, cat *catalog.Catalog, progress ProgressFunc) (map[string]*storeIndex, error) {
	out := make(map[string]*storeIndex, len(cat.Stores))
	total := len(cat.Stores)

	for n, store := range cat.Stores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx := newStoreIndex(store, cat.Items(store.ID))
		if s.opts.DryRun {
			idx.vectors = zeroMatrix(len(idx.items), 1)
		} else {
			vecs, err := s.storeVectors(ctx, store.ID, idx.items)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.WithStore(store.ID).Warn().Err(err).
					Msg("store embeddings unavailable, alternatives disabled for store")
			}
			idx.vectors = vecs
		}
		out[store.ID] = idx

		if progress != nil {
			progress(n+1, total, store.ID)
		}
	}
	return out, nil
}

// storeVectors returns the item embeddings of a store, from the cache when
// its fingerprint still matches, otherwise freshly embedded and re-cached.
func (s *Session) storeVectors(ctx context.Context, storeID string, items []catalog.Item) ([][]float32, error) {
	if len(items) == 0 {
		return nil, nil
	}

	emb := s.deps.Embedder
	ids := make([]string, len(items))
	texts := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
		texts[i] = it.EmbeddingText()
	}
	fp := embedding.Fingerprint(emb.Model(), emb.Dimension(), ids, texts)
	log := s.logger.WithStore(storeID)

	if s.deps.EmbeddingCache != nil {
		cached, ok, err := s.deps.EmbeddingCache.Load(storeID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("embedding cache unreadable, rebuilding")
		case ok && cached.Fingerprint == fp && len(cached.Vectors) == len(items):
			log.Debug().Int("items", len(items)).Msg("embedding cache hit")
			return cached.Vectors, nil
		case ok:
			log.Info().Msg("embedding cache stale, rebuilding")
		}
	}

	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed store items: %w", err)
	}
	if len(vecs) != len(items) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d items", len(vecs), len(items))
	}

	if s.deps.EmbeddingCache != nil {
		err := s.deps.EmbeddingCache.Save(&embedding.StoreCache{
			StoreID:     storeID,
			Model:       emb.Model(),
			Fingerprint: fp,
			ItemIDs:     ids,
			Vectors:     vecs,
			CreatedAt:   s.deps.Now().UTC(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to persist embedding cache")
		}
	}
	return vecs, nil
}

func zeroMatrix(rows, dim int) [][]float32 {
	out := make([][]float32, rows)
	for i := range out {
		out[i] = make([]float32, dim)
	}
	return out
}
