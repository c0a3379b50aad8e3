package model

import (
	"github.com/paulmach/orb"
)

// Cell is one fixed rectangular unit of the pre-generated forest grid.
// Cells are created once at load time and never mutated afterwards; every
// consumer outside the grid service receives read-only references.
type Cell struct {
	Index  int
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64

	// Cached geometry for quick containment and bounds checks
	Ring  orb.Ring
	Bound orb.Bound
}

// NewCell builds a cell and precomputes its closed rectangle ring.
func NewCell(index int, minLng, minLat, maxLng, maxLat float64) *Cell {
	c := &Cell{
		Index:  index,
		MinLng: minLng,
		MinLat: minLat,
		MaxLng: maxLng,
		MaxLat: maxLat,
	}
	c.BuildGeometry()
	return c
}

// BuildGeometry fills the cached ring and bound from the corner coordinates.
// The ring is closed (5 points) so it can go straight into containment tests
// and GeoJSON output.
func (c *Cell) BuildGeometry() {
	c.Ring = orb.Ring{
		orb.Point{c.MinLng, c.MinLat},
		orb.Point{c.MaxLng, c.MinLat},
		orb.Point{c.MaxLng, c.MaxLat},
		orb.Point{c.MinLng, c.MaxLat},
		orb.Point{c.MinLng, c.MinLat},
	}
	c.Bound = orb.Bound{
		Min: orb.Point{c.MinLng, c.MinLat},
		Max: orb.Point{c.MaxLng, c.MaxLat},
	}
}

// Intersects reports whether the cell's rectangle overlaps the given bound.
func (c *Cell) Intersects(b orb.Bound) bool {
	return c.Bound.Intersects(b)
}
