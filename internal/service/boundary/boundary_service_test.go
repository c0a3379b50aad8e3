package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 0..10 outer square with a 4..6 hole, as a GeoJSON Feature.
const boundaryWithHole = `{
	"type": "Feature",
	"properties": {"name": "jurisdiction"},
	"geometry": {
		"type": "Polygon",
		"coordinates": [
			[[0,0],[10,0],[10,10],[0,10],[0,0]],
			[[4,4],[6,4],[6,6],[4,6],[4,4]]
		]
	}
}`

const boundaryMultiPolygon = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"properties": {},
		"geometry": {
			"type": "MultiPolygon",
			"coordinates": [
				[[[0,0],[2,0],[2,2],[0,2],[0,0]]],
				[[[10,10],[12,10],[12,12],[10,12],[10,10]]]
			]
		}
	}]
}`

func TestContainsFailsOpenWhenUnloaded(t *testing.T) {
	s := NewService()

	assert.False(t, s.Loaded())
	assert.True(t, s.Contains(123.4, 56.7), "unloaded boundary must not block interaction")
}

func TestContainsWithHole(t *testing.T) {
	s := NewService()
	require.NoError(t, s.LoadFromGeoJSON([]byte(boundaryWithHole)))
	require.True(t, s.Loaded())

	assert.True(t, s.Contains(2, 2), "inside outer ring, outside hole")
	assert.False(t, s.Contains(5, 5), "inside the hole is outside the boundary")
	assert.False(t, s.Contains(20, 20), "outside the outer ring")
}

func TestContainsMultiPolygon(t *testing.T) {
	s := NewService()
	require.NoError(t, s.LoadFromGeoJSON([]byte(boundaryMultiPolygon)))

	assert.Equal(t, 2, s.PolygonCount())
	assert.True(t, s.Contains(1, 1))
	assert.True(t, s.Contains(11, 11))
	assert.False(t, s.Contains(5, 5), "between the two polygons")
}

func TestLoadRejectsNonArealSources(t *testing.T) {
	s := NewService()

	err := s.LoadFromGeoJSON([]byte(`{"type":"Point","coordinates":[1,2]}`))
	assert.Error(t, err)
	assert.False(t, s.Loaded())

	err = s.LoadFromGeoJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestClearRestoresFailOpen(t *testing.T) {
	s := NewService()
	require.NoError(t, s.LoadFromGeoJSON([]byte(boundaryWithHole)))
	require.False(t, s.Contains(20, 20))

	s.Clear()

	assert.False(t, s.Loaded())
	assert.True(t, s.Contains(20, 20))
}
