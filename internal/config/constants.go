package config

import "time"

// Grid rendering policy. These values encode a tested performance and
// usability tradeoff and are shared by the culling engine and its tests.
const (
	// MinZoomForGrid is the zoom level below which no cells are rendered at
	// all; the UI shows a "zoom in to see the grid" hint instead.
	MinZoomForGrid = 12.0

	// ClusterZoomThreshold separates sampled rendering (below) from full
	// rendering with a hard cap (at or above).
	ClusterZoomThreshold = 15.0

	// MaxCellsToRender caps the number of cells submitted to the map layer
	// for any single viewport state.
	MaxCellsToRender = 2000

	// ViewportPaddingDegrees expands the visible bounds on every side so
	// cells just off-screen are already loaded when the user pans slightly.
	ViewportPaddingDegrees = 0.1
)

// Remote spatial query defaults.
const (
	DefaultMaxDistanceKm    = 50.0
	DefaultMaxNearestPoints = 5
	QueryTimeout            = 30 * time.Second
	LivenessTimeout         = 5 * time.Second
)

// Worker intervals
const (
	// RenderStatsInterval defines how often the render-set worker publishes
	// its statistics snapshot to Redis.
	RenderStatsInterval = 10 * time.Second
)
