package model

import (
	"github.com/paulmach/orb"
)

// Viewport is the currently visible map region plus zoom level, as reported
// by the map widget on zoom change or pan end.
type Viewport struct {
	Zoom  float64 `json:"zoom"`
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Bound converts the viewport edges into an orb bound.
func (v Viewport) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{v.West, v.South},
		Max: orb.Point{v.East, v.North},
	}
}

// RenderSet is the culled, capped set of cells the display layer should draw
// for one viewport state. Allowed and Blocked are partitions of the same
// visible set; blocked cells are styled differently and never receive click
// handlers.
type RenderSet struct {
	Generation   uint64  `json:"generation"`
	Zoom         float64 `json:"zoom"`
	BelowMinZoom bool    `json:"belowMinZoom"`
	TotalVisible int     `json:"totalVisible"`
	SampleStride int     `json:"sampleStride"`
	Truncated    bool    `json:"truncated"`
	Allowed      []*Cell `json:"allowed"`
	Blocked      []*Cell `json:"blocked"`
}

// Size returns the number of cells actually submitted for rendering.
func (r *RenderSet) Size() int {
	return len(r.Allowed) + len(r.Blocked)
}
