package ranking

import (
	"fmt"

	"github.com/spherical-ai/medicine-finder/internal/scoring"
)

// Options are the ranking tunables.
type Options struct {
	TopK                  int
	SimilarityThreshold   float64
	AlternativeCandidates int
	PriceJumpRatio        float64
	Weights               scoring.Weights
	// DryRun skips embeddings entirely; only exact matches resolve.
	DryRun bool
}

// DefaultOptions returns the standard tunables.
func DefaultOptions() Options {
	return Options{
		TopK:                  5,
		SimilarityThreshold:   0.75,
		AlternativeCandidates: 2,
		PriceJumpRatio:        1.5,
		Weights:               scoring.DefaultWeights(),
	}
}

// Validate checks the options for errors.
func (o Options) Validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1")
	}
	if o.AlternativeCandidates < 1 {
		return fmt.Errorf("alternative candidates must be at least 1")
	}
	if o.PriceJumpRatio <= 0 {
		return fmt.Errorf("price jump ratio must be positive")
	}
	if err := o.Weights.Validate(); err != nil {
		return err
	}
	return nil
}
