package domain

import "math"

const (
	// EarthRadiusKm is the sphere radius used for great-circle distances.
	EarthRadiusKm = 6371.0

	// DefaultRadiusKm is the neighbor search radius used when none is configured.
	DefaultRadiusKm = 10.0
)

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// HaversineKm returns the great-circle distance between a and b on a sphere
// of the given radius.
func HaversineKm(a, b Coordinate, earthRadiusKm float64) float64 {
	lat1 := Deg2Rad(a.Latitude)
	lat2 := Deg2Rad(b.Latitude)
	dLat := lat2 - lat1
	dLon := Deg2Rad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h marginally outside [0, 1] for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Neighbors returns the rows of table within radiusKm of target, in their
// input order. An empty result is valid and means no forecast cell lies
// close enough.
func Neighbors(table *ForecastTable, target Coordinate, radiusKm, earthRadiusKm float64) *NeighborSet {
	out := &NeighborSet{}
	if table == nil {
		return out
	}
	out.Source = table.Source

	// Each row is checked independently, so cells repeated across valid times
	// are kept or dropped together.
	for _, r := range table.Rows {
		d := HaversineKm(target, Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}, earthRadiusKm)
		if d <= radiusKm {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
