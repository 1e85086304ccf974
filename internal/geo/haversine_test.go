package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine_OneDegreeAtEquator(t *testing.T) {
	d := Haversine(Point{0, 0}, Point{0, 1})
	// 6371 km radius: one degree of arc is 111.195 km.
	assert.InDelta(t, 111.195, d, 0.001)
	assert.InDelta(t, 111.32, d, 0.15)
}

func TestHaversine_Properties(t *testing.T) {
	points := []Point{
		{12.9716, 77.5946},
		{28.6139, 77.2090},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{0, 0},
	}

	for _, a := range points {
		assert.Zero(t, Haversine(a, a))
		for _, b := range points {
			ab := Haversine(a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.InDelta(t, ab, Haversine(b, a), 1e-9)
		}
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	d := Haversine(Point{0, 0}, Point{0, 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
}

func TestHaversine_NaNPropagates(t *testing.T) {
	d := Haversine(Point{math.NaN(), 0}, Point{0, 1})
	assert.True(t, math.IsNaN(d))
}

func TestDistances_PreservesOrder(t *testing.T) {
	origin := Point{0, 0}
	got := Distances(origin, []Point{{0, 2}, {0, 0}, {0, 1}})

	assert.Len(t, got, 3)
	assert.InDelta(t, 222.390, got[0], 0.001)
	assert.Zero(t, got[1])
	assert.InDelta(t, 111.195, got[2], 0.001)
	assert.Empty(t, Distances(origin, nil))
}

func TestPoint_IsZero(t *testing.T) {
	assert.True(t, Point{}.IsZero())
	assert.False(t, Point{Lat: 0.0001}.IsZero())
}
