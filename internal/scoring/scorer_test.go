package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_KnownValues(t *testing.T) {
	in := Input{Available: 1, Alternatives: 1, TotalRequested: 2, TotalPrice: 10, DistanceKm: 1}

	score, b := Score(in, 10, DefaultWeights())

	assert.InDelta(t, 0.75, b.Availability, 1e-9)
	assert.InDelta(t, 0.5, b.Price, 1e-9)
	assert.InDelta(t, 0.5, b.Distance, 1e-9)
	assert.InDelta(t, 0.6*0.75+0.25*0.5+0.15*0.5, score, 1e-9)
}

func TestScore_NonPositiveReferencePriceIsOne(t *testing.T) {
	in := Input{Available: 1, TotalRequested: 1, TotalPrice: 1}

	_, b := Score(in, 0, DefaultWeights())
	assert.Equal(t, 1.0, b.ReferencePrice)
	assert.InDelta(t, 0.5, b.Price, 1e-9)

	_, b = Score(in, -3, DefaultWeights())
	assert.Equal(t, 1.0, b.ReferencePrice)
}

func TestScore_Monotonicity(t *testing.T) {
	w := DefaultWeights()
	base := Input{Available: 1, Alternatives: 1, TotalRequested: 4, TotalPrice: 20, DistanceKm: 3}
	baseScore, _ := Score(base, 15, w)

	moreAvailable := base
	moreAvailable.Available++
	s, _ := Score(moreAvailable, 15, w)
	assert.Greater(t, s, baseScore, "one more available item never lowers the score")

	upgraded := base
	upgraded.Alternatives--
	upgraded.Available++
	s, _ = Score(upgraded, 15, w)
	assert.Greater(t, s, baseScore, "an alternative becoming available never lowers the score")

	closer := base
	closer.DistanceKm = 1
	s, _ = Score(closer, 15, w)
	assert.Greater(t, s, baseScore, "closer never lowers the score")

	cheaper := base
	cheaper.TotalPrice = 5
	s, _ = Score(cheaper, 15, w)
	assert.Greater(t, s, baseScore, "cheaper never lowers the score")
}

func TestScore_Bounds(t *testing.T) {
	all := Input{Available: 3, TotalRequested: 3}
	s, b := Score(all, 1, DefaultWeights())
	assert.Equal(t, 1.0, b.Availability)
	assert.Equal(t, 1.0, b.Price)
	assert.Equal(t, 1.0, b.Distance)
	assert.InDelta(t, 1.0, s, 1e-9)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.NoError(t, Weights{Distance: 1}.Validate())
	assert.Error(t, Weights{}.Validate())
	assert.Error(t, Weights{Availability: 1, Price: -0.1}.Validate())
}

func TestReferencePrice(t *testing.T) {
	assert.Zero(t, ReferencePrice(nil))
	assert.Equal(t, 5.0, ReferencePrice([]float64{9, 1, 5}))
	assert.Equal(t, 3.0, ReferencePrice([]float64{4, 2}))

	totals := []float64{3, 1, 2}
	ReferencePrice(totals)
	assert.Equal(t, []float64{3, 1, 2}, totals, "input is not reordered")
}
