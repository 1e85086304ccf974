package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/embedding"
	"github.com/spherical-ai/medicine-finder/internal/monitoring"
	"github.com/spherical-ai/medicine-finder/internal/observability"
)

// State is the lifecycle stage of a Session.
type State int

const (
	StateUninitialized State = iota
	StateLoaded
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Dependencies are the collaborators a Session is built from.
type Dependencies struct {
	// SourcePath is the CSV/TSV inventory parsed when no snapshot exists.
	SourcePath string
	Columns    catalog.ColumnCandidates
	// Snapshots may be nil, in which case the source is parsed on every start.
	Snapshots catalog.SnapshotStore
	// Embedder embeds store items. Required unless Options.DryRun is set.
	Embedder embedding.Embedder
	// QueryEmbedder embeds request text; defaults to Embedder. It must
	// produce vectors comparable with Embedder's.
	QueryEmbedder embedding.Embedder
	// EmbeddingCache persists per-store item embeddings; nil disables it.
	EmbeddingCache *embedding.CacheDir
	ResultLogger   monitoring.ResultLogger
	Logger         *observability.Logger
	Now            func() time.Time
}

// ProgressFunc is called after each store's embeddings are ready.
type ProgressFunc func(done, total int, storeID string)

// Session owns the loaded catalog and per-store embeddings. It initializes
// lazily on first use, exactly once, and is safe for concurrent Rank calls.
type Session struct {
	opts   Options
	deps   Dependencies
	logger *observability.Logger

	// initMu serializes initialization and Rebuild. mu guards the fields
	// below and is only held to read or swap them, never across a build.
	initMu  sync.Mutex
	mu      sync.RWMutex
	state   State
	catalog *catalog.Catalog
	stores  map[string]*storeIndex
}

// NewSession validates options and dependencies and returns an
// uninitialized session.
func NewSession(opts Options, deps Dependencies) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("ranking options: %w", err)
	}
	if deps.Embedder == nil && !opts.DryRun {
		return nil, fmt.Errorf("an embedder is required unless running dry")
	}
	if deps.QueryEmbedder == nil {
		deps.QueryEmbedder = deps.Embedder
	}
	if deps.ResultLogger == nil {
		deps.ResultLogger = monitoring.NopResultLogger{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Session{
		opts:   opts,
		deps:   deps,
		logger: observability.OrNop(deps.Logger).WithOperation("ranking"),
	}, nil
}

// Options returns the session tunables.
func (s *Session) Options() Options { return s.opts }

// State reports the current lifecycle stage.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// EmbeddingModel names the model used for semantic matching, or "" when
// semantic matching is off.
func (s *Session) EmbeddingModel() string {
	if s.opts.DryRun || s.deps.QueryEmbedder == nil {
		return ""
	}
	return s.deps.QueryEmbedder.Model()
}

// Catalog returns the loaded catalog, or nil before initialization.
func (s *Session) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Warm initializes the session now rather than on the first Rank call.
func (s *Session) Warm(ctx context.Context, progress ProgressFunc) error {
	return s.ensureReady(ctx, progress)
}

// Close releases the snapshot store and embedders.
func (s *Session) Close() error {
	var errs []error
	if s.deps.Snapshots != nil {
		errs = append(errs, s.deps.Snapshots.Close())
	}
	if s.deps.QueryEmbedder != nil && s.deps.QueryEmbedder != s.deps.Embedder {
		errs = append(errs, embedding.Close(s.deps.QueryEmbedder))
	}
	if s.deps.Embedder != nil {
		errs = append(errs, embedding.Close(s.deps.Embedder))
	}
	return errors.Join(errs...)
}

func (s *Session) ensureReady(ctx context.Context, progress ProgressFunc) error {
	if s.State() == StateReady {
		return nil
	}
	_, _, err := s.initialize(ctx, progress)
	return err
}

// readyView returns a consistent catalog and index pair from a Ready
// session, initializing it first. A Rebuild that lands afterwards swaps the
// session's fields but not the returned pair.
func (s *Session) readyView(ctx context.Context) (*catalog.Catalog, map[string]*storeIndex, error) {
	s.mu.RLock()
	state, cat, stores := s.state, s.catalog, s.stores
	s.mu.RUnlock()
	if state == StateReady {
		return cat, stores, nil
	}
	return s.initialize(ctx, nil)
}

// initialize brings the session to Ready under initMu and returns what it
// published. mu is only taken to read or swap fields, so State and Catalog
// stay responsive while store embeddings are built.
func (s *Session) initialize(ctx context.Context, progress ProgressFunc) (*catalog.Catalog, map[string]*storeIndex, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.RLock()
	state, cat, stores := s.state, s.catalog, s.stores
	s.mu.RUnlock()
	if state == StateReady {
		return cat, stores, nil
	}

	start := s.deps.Now()
	if state == StateUninitialized {
		loaded, err := s.loadCatalog(ctx)
		if err != nil {
			return nil, nil, err
		}
		cat = loaded
		s.mu.Lock()
		s.catalog = cat
		s.state = StateLoaded
		s.mu.Unlock()
	}

	stores, err := s.buildIndexes(ctx, cat, progress)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.stores = stores
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info().
		Int("stores", len(cat.Stores)).
		Int("items", cat.ItemCount()).
		Dur("duration", s.deps.Now().Sub(start)).
		Bool("dry_run", s.opts.DryRun).
		Msg("session ready")
	return cat, stores, nil
}

func (s *Session) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if s.deps.Snapshots != nil {
		cat, err := s.deps.Snapshots.Load(ctx)
		if err == nil {
			s.logger.Debug().Int("stores", len(cat.Stores)).Msg("catalog snapshot loaded")
			return cat, nil
		}
		if !errors.Is(err, catalog.ErrSnapshotMissing) {
			s.logger.Warn().Err(err).Msg("catalog snapshot unreadable, re-parsing source")
		}
	}

	cat, err := catalog.Load(s.deps.SourcePath, s.deps.Columns)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("source", s.deps.SourcePath).
		Int("stores", len(cat.Stores)).
		Int("items", cat.ItemCount()).
		Msg("catalog parsed")

	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.Save(ctx, cat); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist catalog snapshot")
		}
	}
	return cat, nil
}

// Rebuild re-parses the source, overwrites the snapshot and drops loaded
// state so the next call reinitializes. Cached query embeddings are purged.
func (s *Session) Rebuild(ctx context.Context) (*catalog.Catalog, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	cat, err := catalog.Load(s.deps.SourcePath, s.deps.Columns)
	if err != nil {
		return nil, err
	}
	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.Save(ctx, cat); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}

	s.mu.Lock()
	s.catalog = cat
	s.stores = nil
	s.state = StateLoaded
	s.mu.Unlock()

	s.purgeQueryCache(ctx)
	return cat, nil
}

// ClearCaches deletes the catalog snapshot and cached query embeddings and
// returns the session to Uninitialized. Per-store embedding files are kept;
// their fingerprints already invalidate them when the inventory changes.
func (s *Session) ClearCaches(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.Clear(ctx); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	s.mu.Lock()
	s.catalog = nil
	s.stores = nil
	s.state = StateUninitialized
	s.mu.Unlock()

	s.purgeQueryCache(ctx)
	return nil
}

// purgeQueryCache drops memoized query vectors; a failure only costs
// recomputation, so it is logged.
func (s *Session) purgeQueryCache(ctx context.Context) {
	p, ok := s.deps.QueryEmbedder.(embedding.Purger)
	if !ok {
		return
	}
	if err := p.Purge(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to purge query embedding cache")
		return
	}
	s.logger.Debug().Msg("query embedding cache purged")
}
