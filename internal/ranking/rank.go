package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/geo"
	"github.com/spherical-ai/medicine-finder/internal/monitoring"
	"github.com/spherical-ai/medicine-finder/internal/observability"
	"github.com/spherical-ai/medicine-finder/internal/retrieval"
	"github.com/spherical-ai/medicine-finder/internal/scoring"
)

// Validate checks a request for malformed input.
func (r Request) Validate() error {
	lat, lon := r.Origin.Lat, r.Origin.Lon
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: origin (%v, %v) out of range", ErrInvalidRequest, lat, lon)
	}
	if len(r.Medicines) == 0 {
		return fmt.Errorf("%w: no medicines requested", ErrInvalidRequest)
	}
	for i, m := range r.Medicines {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: medicine %d has no name", ErrInvalidRequest, i)
		}
		if m.ExpectedPrice != nil && (*m.ExpectedPrice < 0 || math.IsNaN(*m.ExpectedPrice)) {
			return fmt.Errorf("%w: medicine %q has an invalid expected price", ErrInvalidRequest, m.Name)
		}
	}
	if r.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Rank evaluates the nearest stores for the request and returns them ordered
// by composite score, best first. The session initializes on first use.
func (s *Session) Rank(ctx context.Context, req Request) (*RankedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cat, stores, err := s.readyView(ctx)
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.opts.TopK
	}

	requestID := uuid.NewString()
	logger := s.logger.With().Str("request_id", requestID).Logger()

	candidates := nearestStores(req.Origin, cat.Stores, topK)
	queries := newQueryMemo(s, req.Medicines, cat, logger)

	results := make([]StoreResult, 0, len(candidates))
	totals := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sr := s.evaluateStore(ctx, stores[c.store.ID], c.distance, req.Medicines, queries)
		results = append(results, sr)
		totals = append(totals, sr.TotalPrice)
	}

	ref := scoring.ReferencePrice(totals)
	for i := range results {
		r := &results[i]
		r.CompositeScore, r.Breakdown = scoring.Score(scoring.Input{
			Available:      r.Counts.Available,
			Alternatives:   r.Counts.Alternatives,
			TotalRequested: r.TotalRequested,
			TotalPrice:     r.TotalPrice,
			DistanceKm:     r.DistanceKm,
		}, ref, s.opts.Weights)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompositeScore > results[j].CompositeScore
	})

	logger.Debug().
		Int("requested", len(req.Medicines)).
		Int("stores", len(results)).
		Float64("reference_price", ref).
		Msg("ranked stores")

	return &RankedResult{
		RequestID:      requestID,
		Origin:         req.Origin,
		Requested:      req.Medicines,
		Stores:         results,
		EmbeddingModel: s.EmbeddingModel(),
		GeneratedAt:    s.deps.Now().UTC(),
	}, nil
}

// RankAndRecord ranks and hands the result to the result logger. Logging
// failures are reported as warnings only.
func (s *Session) RankAndRecord(ctx context.Context, req Request) (*RankedResult, error) {
	res, err := s.Rank(ctx, req)
	if err != nil {
		return nil, err
	}

	entry := monitoring.ResultEntry{RequestID: res.RequestID, GeneratedAt: res.GeneratedAt, Result: res}
	if err := s.deps.ResultLogger.LogResult(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("request_id", res.RequestID).Msg("failed to record result")
	}
	return res, nil
}

type candidate struct {
	store    catalog.Store
	distance float64
}

// nearestStores returns up to k stores by ascending distance; ties keep
// catalog order.
func nearestStores(origin geo.Point, stores []catalog.Store, k int) []candidate {
	points := make([]geo.Point, len(stores))
	for i, st := range stores {
		points[i] = st.Location()
	}
	distances := geo.Distances(origin, points)

	out := make([]candidate, len(stores))
	for i, st := range stores {
		out[i] = candidate{store: st, distance: distances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].distance < out[j].distance
	})
	if k < len(out) {
		out = out[:k]
	}
	return out
}

func (s *Session) evaluateStore(ctx context.Context, idx *storeIndex, distance float64, meds []RequestedMedicine, queries *queryMemo) StoreResult {
	sr := StoreResult{
		DistanceKm:     distance,
		TotalRequested: len(meds),
		Items:          make([]ResolutionEntry, 0, len(meds)),
	}
	if idx == nil {
		idx = newStoreIndex(catalog.Store{}, nil)
	}
	sr.Store = idx.store

	for i, med := range meds {
		entry := s.resolve(ctx, idx, i, med, queries)
		switch entry.Status {
		case StatusAvailable:
			sr.Counts.Available++
		case StatusAlternative:
			sr.Counts.Alternatives++
		default:
			sr.Counts.Missing++
		}
		if entry.PriceUsed != nil {
			sr.TotalPrice += *entry.PriceUsed
		}
		sr.Items = append(sr.Items, entry)
	}
	return sr
}

// resolve classifies one requested medicine at one store.
func (s *Session) resolve(ctx context.Context, idx *storeIndex, i int, med RequestedMedicine, queries *queryMemo) ResolutionEntry {
	entry := ResolutionEntry{Requested: med, Status: StatusMissing}

	if item, ok := idx.exactMatch(med); ok {
		entry.Status = StatusAvailable
		entry.MatchedItem = &item
		entry.PriceUsed = floatPtr(item.Price)
		return entry
	}

	if s.opts.DryRun || len(idx.vectors) == 0 {
		return entry
	}

	query, ok := queries.vector(ctx, i)
	if !ok {
		return entry
	}

	for _, m := range retrieval.TopK(query, idx.vectors, s.opts.AlternativeCandidates) {
		sim := float64(m.Similarity)
		if sim < s.opts.SimilarityThreshold {
			break
		}
		item := idx.items[m.Index]
		if !item.Available {
			continue
		}
		entry.Status = StatusAlternative
		entry.MatchedItem = &item
		entry.Similarity = floatPtr(sim)
		entry.PriceUsed = floatPtr(item.Price)
		if med.ExpectedPrice != nil {
			expected := *med.ExpectedPrice
			entry.PriceJump = expected > 0 && item.Price > s.opts.PriceJumpRatio*expected
		}
		return entry
	}
	return entry
}

func floatPtr(v float64) *float64 { return &v }

// queryMemo embeds each requested medicine at most once per request, and
// only when some store needs a semantic lookup for it.
type queryMemo struct {
	s       *Session
	texts   []string
	vectors [][]float32
	done    []bool
	logger  *observability.Logger
}

func newQueryMemo(s *Session, meds []RequestedMedicine, cat *catalog.Catalog, logger *observability.Logger) *queryMemo {
	texts := make([]string, len(meds))
	for i, m := range meds {
		texts[i] = QueryText(m, cat)
	}
	return &queryMemo{
		s:       s,
		texts:   texts,
		vectors: make([][]float32, len(meds)),
		done:    make([]bool, len(meds)),
		logger:  logger,
	}
}

func (q *queryMemo) vector(ctx context.Context, i int) ([]float32, bool) {
	if !q.done[i] {
		q.done[i] = true
		if q.texts[i] != "" {
			vec, err := q.s.deps.QueryEmbedder.EmbedSingle(ctx, q.texts[i])
			if err != nil {
				q.logger.Warn().Err(err).Str("query", q.texts[i]).Msg("query embedding failed, treating as missing")
			} else {
				q.vectors[i] = vec
			}
		}
	}
	return q.vectors[i], q.vectors[i] != nil
}

// QueryText builds the semantic query for a requested medicine: its name
// followed by the inline description, or else the catalog description.
func QueryText(m RequestedMedicine, cat *catalog.Catalog) string {
	name := strings.TrimSpace(m.Name)
	desc := strings.TrimSpace(m.Description)
	if desc == "" && cat != nil {
		desc, _ = cat.Description(name)
	}
	return strings.TrimSpace(name + " " + desc)
}
