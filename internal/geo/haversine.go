// Package geo computes great-circle distances between coordinates.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether p is the (0,0) placeholder used for unknown locations.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}

// Haversine returns the great-circle distance between a and b in kilometres.
// NaN inputs yield NaN.
func Haversine(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(h, 1)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Distances returns the distance from origin to each point, in input order.
func Distances(origin Point, points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = Haversine(origin, p)
	}
	return out
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
