package culling

import (
	"sync"

	"forestgrid/internal/model"
)

// Feed is a ViewportSource fed by the transport layer. The map widget only
// reports zoom changes and pan completion, so every Publish is already a
// settled viewport; handlers run synchronously in arrival order.
type Feed struct {
	mu       sync.RWMutex
	current  model.Viewport
	handlers []func(model.Viewport)
}

// NewFeed creates a feed starting at the given viewport.
func NewFeed(initial model.Viewport) *Feed {
	return &Feed{current: initial}
}

// OnViewportChange registers a handler for future viewport updates.
func (f *Feed) OnViewportChange(handler func(model.Viewport)) {
	f.mu.Lock()
	f.handlers = append(f.handlers, handler)
	f.mu.Unlock()
}

// Viewport returns the latest published viewport.
func (f *Feed) Viewport() model.Viewport {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Publish records a settled viewport and notifies handlers in order.
func (f *Feed) Publish(vp model.Viewport) {
	f.mu.Lock()
	f.current = vp
	handlers := make([]func(model.Viewport), len(f.handlers))
	copy(handlers, f.handlers)
	f.mu.Unlock()

	for _, handler := range handlers {
		handler(vp)
	}
}
