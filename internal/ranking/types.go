// Package ranking resolves requested medicines against nearby stores and
// orders those stores by a composite of availability, price and distance.
package ranking

import (
	"errors"
	"time"

	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/geo"
	"github.com/spherical-ai/medicine-finder/internal/scoring"
)

// ErrInvalidRequest is wrapped by every request validation failure.
var ErrInvalidRequest = errors.New("invalid ranking request")

// Status is the resolution outcome for one requested medicine at one store.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusAlternative Status = "alternative"
	StatusMissing     Status = "missing"
)

// RequestedMedicine is one line of the shopper's request.
type RequestedMedicine struct {
	Name          string   `json:"name"`
	MedicineID    string   `json:"medicine_id,omitempty"`
	ExpectedPrice *float64 `json:"expected_price,omitempty"`
	// Description, when set, replaces the catalog description in the
	// semantic query for this medicine.
	Description string `json:"description,omitempty"`
}

// Request is a ranking request. TopK of zero uses the session default.
type Request struct {
	Origin    geo.Point           `json:"origin"`
	Medicines []RequestedMedicine `json:"medicines"`
	TopK      int                 `json:"top_k,omitempty"`
}

// ResolutionEntry records how one requested medicine was resolved at a store.
type ResolutionEntry struct {
	Requested   RequestedMedicine `json:"requested"`
	Status      Status            `json:"status"`
	MatchedItem *catalog.Item     `json:"matched_item"`
	Similarity  *float64          `json:"similarity,omitempty"`
	PriceUsed   *float64          `json:"price_used"`
	PriceJump   bool              `json:"price_jump"`
}

// Counts tallies resolution outcomes for a store.
type Counts struct {
	Available    int `json:"available"`
	Alternatives int `json:"alternatives"`
	Missing      int `json:"missing"`
}

// Total returns the number of tallied entries.
func (c Counts) Total() int {
	return c.Available + c.Alternatives + c.Missing
}

// StoreResult is the evaluation of one candidate store.
type StoreResult struct {
	catalog.Store
	DistanceKm     float64           `json:"distance_km"`
	Counts         Counts            `json:"counts"`
	TotalRequested int               `json:"total_requested"`
	Items          []ResolutionEntry `json:"items"`
	TotalPrice     float64           `json:"total_price"`
	CompositeScore float64           `json:"composite_score"`
	Breakdown      scoring.Breakdown `json:"score_breakdown"`
}

// RankedResult is the full answer to a Request.
type RankedResult struct {
	RequestID      string              `json:"request_id"`
	Origin         geo.Point           `json:"source"`
	Requested      []RequestedMedicine `json:"requested"`
	Stores         []StoreResult       `json:"top_stores"`
	EmbeddingModel string              `json:"embedding_model,omitempty"`
	GeneratedAt    time.Time           `json:"generated_at"`
}
