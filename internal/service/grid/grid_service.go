package grid

import (
	"log"
	"sync"
	"time"

	"forestgrid/internal/model"
	"forestgrid/internal/service/storage"
	"forestgrid/internal/util"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// CellSpatial represents a grid cell with its spatial information for R-tree indexing
type CellSpatial struct {
	Index int
	Cell  *model.Cell
}

// Bounds implements the rtreego.Spatial interface
// Returns the bounding rectangle of the cell for R-tree indexing.
// Loaders reject inverted and zero-area bounds, so NewRect cannot fail here.
func (c *CellSpatial) Bounds() rtreego.Rect {
	minX, minY := c.Cell.Bound.Min[0], c.Cell.Bound.Min[1]
	maxX, maxY := c.Cell.Bound.Max[0], c.Cell.Bound.Max[1]

	rect, _ := rtreego.NewRect(
		rtreego.Point{minX, minY},
		[]float64{maxX - minX, maxY - minY},
	)

	return rect
}

// Service holds the full fixed-resolution cell grid and answers viewport and
// point lookups against it. The grid is loaded once at startup and treated as
// immutable shared state until Clear.
type Service struct {
	storage      storage.Storage[int, *model.Cell]
	spatialIndex *rtreego.Rtree
	indexMutex   sync.RWMutex
	ordered      []*model.Cell // cells in load order, for stable iteration

	loaded    bool
	loadMutex sync.RWMutex

	skippedRows int
}

// NewService creates an empty grid index. Callers pass it explicitly to the
// components that need it; there is no ambient global instance.
func NewService() *Service {
	return &Service{
		storage:      storage.NewShardedMemoryStorage[int, *model.Cell](8, nil),
		spatialIndex: rtreego.NewTree(2, 25, 50), // 2D index with min 25, max 50 entries per node
	}
}

// load ingests parsed cells, skipping duplicates, and rebuilds the spatial
// index. Used by both the CSV and PostgreSQL load paths.
func (s *Service) load(cells []*model.Cell, skipped int) model.LoadResult {
	s.loadMutex.Lock()
	defer s.loadMutex.Unlock()

	log.Println("=== Starting grid load ===")
	totalStartTime := time.Now()

	// Step 1: Load cells into memory storage, dropping duplicate indices
	memoryLoadStart := time.Now()
	loaded := make([]*model.Cell, 0, len(cells))
	for i, cell := range cells {
		if _, exists := s.storage.Get(cell.Index); exists {
			log.Printf("Duplicate cell index %d, skipping row", cell.Index)
			skipped++
			continue
		}
		s.storage.Set(cell.Index, cell)
		loaded = append(loaded, cell)

		if (i+1)%100000 == 0 || i == len(cells)-1 {
			log.Printf("Memory loading progress: %d/%d cells (%.1f%%)",
				i+1, len(cells), float64(i+1)/float64(len(cells))*100)
		}
	}
	s.indexMutex.Lock()
	s.ordered = append(s.ordered, loaded...)
	s.indexMutex.Unlock()
	memoryLoadDuration := time.Since(memoryLoadStart)
	log.Printf("Memory loading completed: %d cells stored in %v", len(loaded), memoryLoadDuration)

	// Step 2: Build spatial index
	indexBuildStart := time.Now()
	s.rebuildSpatialIndex()
	indexBuildDuration := time.Since(indexBuildStart)
	log.Printf("Spatial index built in %v", indexBuildDuration)

	s.skippedRows += skipped
	s.loaded = true

	totalDuration := time.Since(totalStartTime)
	log.Printf("=== Grid load completed: %d cells, %d rows skipped, %v total ===",
		s.storage.Count(), skipped, totalDuration)

	return model.LoadResult{Loaded: len(loaded), Skipped: skipped}
}

// rebuildSpatialIndex rebuilds the R-tree from the stored cells
func (s *Service) rebuildSpatialIndex() {
	s.indexMutex.Lock()
	defer s.indexMutex.Unlock()

	s.spatialIndex = rtreego.NewTree(2, 25, 50)

	s.storage.ForEach(func(index int, cell *model.Cell) bool {
		if len(cell.Ring) == 0 {
			cell.BuildGeometry()
		}
		s.spatialIndex.Insert(&CellSpatial{Index: index, Cell: cell})
		return true
	})
}

// CellsInViewport returns cells whose rectangle intersects the viewport
// bounds expanded by padding degrees on every side. Padding keeps cells just
// beyond the visible edge available during small pans. Cells come back in
// load order so sampling downstream stays spatially even.
func (s *Service) CellsInViewport(bound orb.Bound, padding float64) []*model.Cell {
	if !s.Loaded() {
		return nil
	}

	if padding > 0 {
		bound = bound.Pad(padding)
	}

	s.indexMutex.RLock()
	defer s.indexMutex.RUnlock()

	searchRect, err := rtreego.NewRect(
		rtreego.Point{bound.Min[0], bound.Min[1]},
		[]float64{bound.Max[0] - bound.Min[0], bound.Max[1] - bound.Min[1]},
	)
	if err != nil {
		log.Printf("invalid search rect: %v", err)
		return nil
	}

	spatialResults := s.spatialIndex.SearchIntersect(searchRect)
	if len(spatialResults) == 0 {
		return nil
	}

	hits := make(map[int]bool, len(spatialResults))
	for _, item := range spatialResults {
		hits[item.(*CellSpatial).Index] = true
	}

	result := make([]*model.Cell, 0, len(hits))
	for _, cell := range s.ordered {
		if hits[cell.Index] {
			result = append(result, cell)
		}
	}

	return result
}

// CellAt returns the cell containing the given point, or nil. The R-tree only
// pre-filters candidates by bounding box; every candidate still goes through
// the full ray-cast containment test, so the lookup stays correct if cell
// geometry ever stops being rectangular.
func (s *Service) CellAt(lng, lat float64) *model.Cell {
	if !s.Loaded() {
		return nil
	}

	s.indexMutex.RLock()
	defer s.indexMutex.RUnlock()

	point := orb.Point{lng, lat}

	// Small search rectangle around the point for R-tree filtering
	searchRect, err := rtreego.NewRect(
		rtreego.Point{lng, lat},
		[]float64{0.0001, 0.0001},
	)
	if err != nil {
		log.Printf("invalid search rect: %v", err)
		return nil
	}

	spatialResults := s.spatialIndex.SearchIntersect(searchRect)

	for _, item := range spatialResults {
		cellSpatial := item.(*CellSpatial)
		if safeRingContains(cellSpatial.Cell, point) {
			return cellSpatial.Cell
		}
	}

	return nil
}

// safeRingContains runs the containment test for one cell, absorbing panics
// from malformed ring data so a single bad cell cannot take down a whole
// lookup or viewport pass.
func safeRingContains(cell *model.Cell, point orb.Point) (contained bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("containment test failed for cell %d: %v", cell.Index, r)
			contained = false
		}
	}()
	return util.PointInRing(cell.Ring, point)
}

// Get returns the cell with the given index.
func (s *Service) Get(index int) (*model.Cell, bool) {
	return s.storage.Get(index)
}

// Count returns the number of loaded cells.
func (s *Service) Count() int {
	return s.storage.Count()
}

// SkippedRows returns how many source rows were dropped across all loads.
func (s *Service) SkippedRows() int {
	s.loadMutex.RLock()
	defer s.loadMutex.RUnlock()
	return s.skippedRows
}

// Loaded reports whether a load has completed.
func (s *Service) Loaded() bool {
	s.loadMutex.RLock()
	defer s.loadMutex.RUnlock()
	return s.loaded
}

// Clear drops all cells and the spatial index, returning the service to its
// pre-load state. Used on memory-pressure resets.
func (s *Service) Clear() {
	s.loadMutex.Lock()
	defer s.loadMutex.Unlock()

	s.storage.Clear()

	s.indexMutex.Lock()
	s.spatialIndex = rtreego.NewTree(2, 25, 50)
	s.ordered = nil
	s.indexMutex.Unlock()

	s.loaded = false
	s.skippedRows = 0
	log.Println("Grid index cleared")
}
