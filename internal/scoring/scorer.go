// Package scoring combines availability, price and distance into a single
// store score.
package scoring

import (
	"fmt"
	"math"
	"sort"
)

// AlternativeCredit is the share of an exact match an alternative is worth.
const AlternativeCredit = 0.5

// Weights are the relative importance of each sub-score.
type Weights struct {
	Availability float64 `json:"availability"`
	Price        float64 `json:"price"`
	Distance     float64 `json:"distance"`
}

// DefaultWeights returns 0.6 availability, 0.25 price, 0.15 distance.
func DefaultWeights() Weights {
	return Weights{Availability: 0.6, Price: 0.25, Distance: 0.15}
}

// Validate rejects negative weights and an all-zero weighting.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Availability, w.Price, w.Distance} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weights must be finite and non-negative")
		}
	}
	if w.Availability+w.Price+w.Distance <= 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}

// Input describes one candidate store.
type Input struct {
	Available      int
	Alternatives   int
	TotalRequested int
	TotalPrice     float64
	DistanceKm     float64
}

// Breakdown exposes the sub-scores behind a composite score.
type Breakdown struct {
	Availability   float64 `json:"availability"`
	Price          float64 `json:"price"`
	Distance       float64 `json:"distance"`
	ReferencePrice float64 `json:"reference_price"`
}

// Score computes the weighted composite score of a store. A reference price
// that is not positive is treated as 1.0. TotalRequested must be positive.
func Score(in Input, referencePrice float64, w Weights) (float64, Breakdown) {
	if referencePrice <= 0 {
		referencePrice = 1.0
	}

	b := Breakdown{ReferencePrice: referencePrice}
	if in.TotalRequested > 0 {
		b.Availability = (float64(in.Available) + AlternativeCredit*float64(in.Alternatives)) / float64(in.TotalRequested)
	}
	b.Price = 1 / (1 + in.TotalPrice/referencePrice)
	b.Distance = 1 / (1 + in.DistanceKm)

	score := w.Availability*b.Availability + w.Price*b.Price + w.Distance*b.Distance
	return score, b
}

// ReferencePrice returns the median of totals, or 0 when there are none.
func ReferencePrice(totals []float64) float64 {
	if len(totals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), totals...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
