package culling

import (
	"log"
	"sync"
	"sync/atomic"

	"forestgrid/internal/config"
	"forestgrid/internal/model"
	"forestgrid/internal/service/classify"
	"forestgrid/internal/service/grid"
)

// ViewportSource abstracts the map widget's viewport events so the engine is
// testable without a real map. Implementations must deliver events in
// arrival order and only on zoom changes or pan completion, never on
// intermediate pan frames.
type ViewportSource interface {
	OnViewportChange(handler func(model.Viewport))
	Viewport() model.Viewport
}

// Engine computes the bounded render-set for the current viewport. It owns
// the "current render-set"; other components read it through Current or the
// recompute return value, never through shared mutable references.
type Engine struct {
	grid     *grid.Service
	classify *classify.Service

	// Tuning knobs, preset from config and overridable in tests
	MinZoomForGrid       float64
	ClusterZoomThreshold float64
	MaxCellsToRender     int
	PaddingDegrees       float64

	generation uint64 // monotonically increasing render generation

	mu      sync.RWMutex
	current *model.RenderSet
}

// NewEngine wires the engine to its grid and classification stores.
func NewEngine(gridService *grid.Service, classifyService *classify.Service) *Engine {
	return &Engine{
		grid:                 gridService,
		classify:             classifyService,
		MinZoomForGrid:       config.MinZoomForGrid,
		ClusterZoomThreshold: config.ClusterZoomThreshold,
		MaxCellsToRender:     config.MaxCellsToRender,
		PaddingDegrees:       config.ViewportPaddingDegrees,
	}
}

// Start subscribes the engine to viewport changes and computes the initial
// render-set from the source's current viewport.
func (e *Engine) Start(source ViewportSource) {
	source.OnViewportChange(func(vp model.Viewport) {
		e.Recompute(vp)
	})
	e.Recompute(source.Viewport())
}

// DefaultViewport is the startup viewport used before the map widget has
// reported anything: fully zoomed out, whole world, so nothing renders until
// a real viewport arrives.
func (e *Engine) DefaultViewport() model.Viewport {
	return model.Viewport{Zoom: 0, North: 90, South: -90, East: 180, West: -180}
}

// Recompute runs one full, synchronous culling pass for the viewport and
// installs the result as the current render-set unless a newer pass has
// already superseded it. The decision logic is a single pass so no consumer
// can ever observe a torn intermediate set.
func (e *Engine) Recompute(vp model.Viewport) *model.RenderSet {
	gen := atomic.AddUint64(&e.generation, 1)

	rs := e.compute(gen, vp)

	// A stale recomputation must not overwrite a newer one.
	if atomic.LoadUint64(&e.generation) == gen {
		e.mu.Lock()
		if e.current == nil || e.current.Generation < rs.Generation {
			e.current = rs
		}
		e.mu.Unlock()
	} else {
		log.Printf("render generation %d superseded, discarding", gen)
	}

	return rs
}

func (e *Engine) compute(gen uint64, vp model.Viewport) *model.RenderSet {
	rs := &model.RenderSet{
		Generation: gen,
		Zoom:       vp.Zoom,
	}

	if vp.Zoom < e.MinZoomForGrid {
		rs.BelowMinZoom = true
		return rs
	}

	visible := e.grid.CellsInViewport(vp.Bound(), e.PaddingDegrees)
	rs.TotalVisible = len(visible)
	if len(visible) == 0 {
		return rs
	}

	selected := visible
	if vp.Zoom < e.ClusterZoomThreshold {
		// Uniform sampling: keep every Nth cell so low-zoom coverage stays
		// spatially even while the rendered count stays bounded.
		stride := len(visible) / e.MaxCellsToRender
		if stride < 1 {
			stride = 1
		}
		rs.SampleStride = stride
		if stride > 1 {
			sampled := make([]*model.Cell, 0, len(visible)/stride+1)
			for i := 0; i < len(visible); i += stride {
				sampled = append(sampled, visible[i])
			}
			selected = sampled
		}
	} else if len(visible) > e.MaxCellsToRender {
		// High zoom implies a naturally small visible set; hitting the cap
		// here is the degenerate case, so a prefix cut is acceptable.
		selected = visible[:e.MaxCellsToRender]
		rs.Truncated = true
	}

	rs.Allowed, rs.Blocked = e.partition(selected)
	return rs
}

// partition splits the selected cells into the allowed/unclassified and
// classified-blocked subsets. Blocked cells are still rendered, with their
// own styling, but must never receive click handlers.
func (e *Engine) partition(cells []*model.Cell) (allowed, blocked []*model.Cell) {
	allowed = make([]*model.Cell, 0, len(cells))
	for _, cell := range cells {
		if e.classify != nil && e.classify.Blocked(cell.Index) {
			blocked = append(blocked, cell)
		} else {
			allowed = append(allowed, cell)
		}
	}
	return allowed, blocked
}

// Current returns the most recently installed render-set, or nil before the
// first recompute.
func (e *Engine) Current() *model.RenderSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Generation returns the latest render generation issued.
func (e *Engine) Generation() uint64 {
	return atomic.LoadUint64(&e.generation)
}
