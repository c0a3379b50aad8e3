package boundary

import (
	"fmt"
	"log"
	"os"
	"sync"

	"forestgrid/internal/util"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Service answers whether a coordinate lies inside the jurisdiction boundary.
//
// The boundary is deliberately fail-open: until a boundary has been loaded,
// Contains returns true for every point, so a slow or failed boundary fetch
// degrades gating rather than blocking all interaction.
type Service struct {
	mu       sync.RWMutex
	polygons []orb.Polygon
	loaded   bool
}

// NewService creates an empty, fail-open boundary service.
func NewService() *Service {
	return &Service{}
}

// LoadFromGeoJSON parses a Feature, FeatureCollection or bare geometry and
// keeps every Polygon/MultiPolygon found. Non-areal geometries are skipped
// and counted, never fatal.
func (s *Service) LoadFromGeoJSON(data []byte) error {
	polygons, skipped, err := decodePolygons(data)
	if err != nil {
		return err
	}
	if len(polygons) == 0 {
		return fmt.Errorf("boundary source contains no polygon geometry")
	}

	s.mu.Lock()
	s.polygons = polygons
	s.loaded = true
	s.mu.Unlock()

	log.Printf("Boundary loaded: %d polygons, %d non-areal geometries skipped", len(polygons), skipped)
	return nil
}

// LoadFromFile reads path and loads it via LoadFromGeoJSON.
func (s *Service) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read boundary source %s: %w", path, err)
	}
	return s.LoadFromGeoJSON(data)
}

func decodePolygons(data []byte) ([]orb.Polygon, int, error) {
	var polygons []orb.Polygon
	skipped := 0

	collect := func(g orb.Geometry) {
		switch geom := g.(type) {
		case orb.Polygon:
			polygons = append(polygons, geom)
		case orb.MultiPolygon:
			polygons = append(polygons, geom...)
		default:
			skipped++
		}
	}

	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		for _, f := range fc.Features {
			collect(f.Geometry)
		}
		return polygons, skipped, nil
	}

	if f, err := geojson.UnmarshalFeature(data); err == nil {
		collect(f.Geometry)
		return polygons, skipped, nil
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse boundary GeoJSON: %w", err)
	}
	collect(g.Geometry())
	return polygons, skipped, nil
}

// Contains reports whether the point is inside the boundary. A point is
// inside iff some polygon's outer ring contains it and none of that
// polygon's holes do; polygons are independent of each other. Returns true
// when no boundary is loaded.
func (s *Service) Contains(lng, lat float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return true
	}

	point := orb.Point{lng, lat}
	for _, polygon := range s.polygons {
		if util.PointInPolygon(polygon, point) {
			return true
		}
	}
	return false
}

// Loaded reports whether boundary data is present.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// PolygonCount returns how many constituent polygons the boundary has.
func (s *Service) PolygonCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.polygons)
}

// Clear drops the boundary, returning the service to fail-open behavior.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polygons = nil
	s.loaded = false
}
