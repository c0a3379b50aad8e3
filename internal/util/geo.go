package util

import (
	"fmt"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// PointInRing tests whether the point lies inside the ring using even-odd
// ray casting. Rings with fewer than 3 points never contain anything.
// Points exactly on an edge are a known ambiguous case: the result depends
// on floating point rounding and is not defined either way.
func PointInRing(ring orb.Ring, point orb.Point) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1

	for i := 0; i < len(ring); i++ {
		if ((ring[i][1] > point[1]) != (ring[j][1] > point[1])) &&
			(point[0] < (ring[j][0]-ring[i][0])*(point[1]-ring[i][1])/(ring[j][1]-ring[i][1])+ring[i][0]) {
			inside = !inside
		}
		j = i
	}

	return inside
}

// PointInPolygon tests the point against the polygon's outer ring and then
// subtracts holes: inside the outer ring but inside any hole means outside.
func PointInPolygon(polygon orb.Polygon, point orb.Point) bool {
	if len(polygon) == 0 {
		return false
	}

	if !PointInRing(polygon[0], point) {
		return false
	}

	for _, hole := range polygon[1:] {
		if PointInRing(hole, point) {
			return false
		}
	}

	return true
}

// HaversineDistance returns the great-circle distance between two
// coordinates in meters.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	point1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lng1))
	point2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lng2))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(point1, point2).Angle())

	earthRadiusMeters := 6371000.0
	distanceMeters := angle.Radians() * earthRadiusMeters

	return distanceMeters
}

// FormatDistance renders a kilometer distance for display: meters below 1 km,
// one decimal of kilometers above.
func FormatDistance(km float64) string {
	if km < 0 {
		km = 0
	}
	if km < 1 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.1f km", km)
}
