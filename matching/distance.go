package matching

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000

// DistanceFunc computes the distance in meters between two points.
type DistanceFunc func(lat1, lng1, lat2, lng2 float64) (float64, error)

// HaversineMeters is the default DistanceFunc. It rejects coordinates
// outside the valid lat/lng ranges so a bad row skips its pairs instead
// of producing a bogus near-zero distance.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) (float64, error) {
	for _, lat := range []float64{lat1, lat2} {
		if math.IsNaN(lat) || lat < -90 || lat > 90 {
			return 0, fmt.Errorf("invalid latitude: %f", lat)
		}
	}
	for _, lng := range []float64{lng1, lng2} {
		if math.IsNaN(lng) || lng < -180 || lng > 180 {
			return 0, fmt.Errorf("invalid longitude: %f", lng)
		}
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c, nil
}
