package gating

import (
	"log"

	"forestgrid/internal/model"
	"forestgrid/internal/service/boundary"
	"forestgrid/internal/service/classify"
	"forestgrid/internal/service/grid"
)

// Dispatcher receives clicks that passed every gate. The spatial query
// coordinator implements it; tests substitute a recorder.
type Dispatcher interface {
	DispatchClick(lng, lat float64)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(lng, lat float64)

func (f DispatcherFunc) DispatchClick(lng, lat float64) { f(lng, lat) }

// Pipeline gates user map clicks, strictly ordered and short-circuiting:
// boundary check, then cell classification check, then dispatch. Rejections
// are structured outcomes for the display layer to present; the pipeline
// itself formats nothing and owns no timers.
type Pipeline struct {
	boundary   *boundary.Service
	grid       *grid.Service
	classify   *classify.Service
	dispatcher Dispatcher
}

// NewPipeline wires the gating stages. dispatcher may be nil, in which case
// accepted clicks are only reported in the outcome.
func NewPipeline(b *boundary.Service, g *grid.Service, c *classify.Service, dispatcher Dispatcher) *Pipeline {
	return &Pipeline{
		boundary:   b,
		grid:       g,
		classify:   c,
		dispatcher: dispatcher,
	}
}

// Gate runs one click through all stages. The dispatcher is invoked only
// after every stage has passed, never optimistically.
func (p *Pipeline) Gate(lng, lat float64) model.GateOutcome {
	// Stage 1: jurisdiction boundary
	if !p.boundary.Contains(lng, lat) {
		log.Printf("click (%.6f, %.6f) rejected: outside boundary", lng, lat)
		return model.GateOutcome{
			Accepted:  false,
			Reason:    model.ReasonOutsideBoundary,
			Longitude: lng,
			Latitude:  lat,
		}
	}

	// Stage 2: per-cell classification. A click landing on no cell, or on an
	// unclassified cell, proceeds.
	if cell := p.grid.CellAt(lng, lat); cell != nil {
		if p.classify != nil && p.classify.Blocked(cell.Index) {
			log.Printf("click (%.6f, %.6f) rejected: cell %d blocked", lng, lat, cell.Index)
			index := cell.Index
			return model.GateOutcome{
				Accepted:  false,
				Reason:    model.ReasonCellBlocked,
				Longitude: lng,
				Latitude:  lat,
				CellIndex: &index,
			}
		}
	}

	// Stage 3: dispatch
	if p.dispatcher != nil {
		p.dispatcher.DispatchClick(lng, lat)
	}

	return model.GateOutcome{
		Accepted:  true,
		Longitude: lng,
		Latitude:  lat,
	}
}
