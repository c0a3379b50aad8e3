package util

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func unitSquare() orb.Ring {
	return orb.Ring{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}
}

func TestPointInRing(t *testing.T) {
	square := unitSquare()

	cases := []struct {
		name  string
		point orb.Point
		want  bool
	}{
		{"center is inside", orb.Point{0.5, 0.5}, true},
		{"far outside is not inside", orb.Point{10, 10}, false},
		{"outside but aligned with an edge", orb.Point{2, 0.5}, false},
		{"just inside an edge", orb.Point{0.999, 0.5}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PointInRing(square, tc.point))
		})
	}

	// Corners sit exactly on the boundary: containment there is documented
	// as implementation-dependent, so no assertion either way.
}

func TestPointInRingDegenerate(t *testing.T) {
	assert.False(t, PointInRing(orb.Ring{}, orb.Point{0, 0}))
	assert.False(t, PointInRing(orb.Ring{{0, 0}}, orb.Point{0, 0}))
	assert.False(t, PointInRing(orb.Ring{{0, 0}, {1, 1}}, orb.Point{0.5, 0.5}))
}

func TestPointInPolygonWithHole(t *testing.T) {
	// Outer 0..10 square with a 4..6 hole
	polygon := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}

	assert.True(t, PointInPolygon(polygon, orb.Point{2, 2}), "inside outer, outside hole")
	assert.False(t, PointInPolygon(polygon, orb.Point{5, 5}), "inside hole is outside the polygon")
	assert.False(t, PointInPolygon(polygon, orb.Point{20, 20}), "outside outer ring")
	assert.False(t, PointInPolygon(orb.Polygon{}, orb.Point{0, 0}), "empty polygon")
}

func TestHaversineDistance(t *testing.T) {
	// One degree of longitude at the equator is roughly 111.2 km
	d := HaversineDistance(0, 0, 0, 1)
	assert.InDelta(t, 111195, d, 200)

	assert.InDelta(t, 0, HaversineDistance(48.85, 2.35, 48.85, 2.35), 0.001)
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "850 m", FormatDistance(0.85))
	assert.Equal(t, "1.0 km", FormatDistance(1.0))
	assert.Equal(t, "12.4 km", FormatDistance(12.44))
	assert.Equal(t, "0 m", FormatDistance(-3))
}
