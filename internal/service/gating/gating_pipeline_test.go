package gating

import (
	"strings"
	"testing"

	"forestgrid/internal/model"
	"forestgrid/internal/service/boundary"
	"forestgrid/internal/service/classify"
	"forestgrid/internal/service/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The jurisdiction covers the 0..10 square; everything else is outside.
const testBoundary = `{
	"type": "Feature",
	"properties": {},
	"geometry": {
		"type": "Polygon",
		"coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]
	}
}`

// Two cells inside the boundary; cell 2 is classified non-cultivable.
const testGrid = "1,1.0,1.0,2.0,2.0\n2,3.0,3.0,4.0,4.0\n"
const testClassification = "2,0,degraded,0.9\n"

type recordingDispatcher struct {
	calls []clickPoint
}

type clickPoint struct{ lng, lat float64 }

func (r *recordingDispatcher) DispatchClick(lng, lat float64) {
	r.calls = append(r.calls, clickPoint{lng, lat})
}

func newTestPipeline(t *testing.T) (*Pipeline, *recordingDispatcher) {
	t.Helper()

	b := boundary.NewService()
	require.NoError(t, b.LoadFromGeoJSON([]byte(testBoundary)))

	g := grid.NewService()
	_, err := g.LoadFromCSV(strings.NewReader(testGrid))
	require.NoError(t, err)

	c := classify.NewService()
	_, err = c.LoadFromCSV(strings.NewReader(testClassification))
	require.NoError(t, err)

	rec := &recordingDispatcher{}
	return NewPipeline(b, g, c, rec), rec
}

func TestGateRejectsOutsideBoundary(t *testing.T) {
	p, rec := newTestPipeline(t)

	outcome := p.Gate(50, 50)

	assert.False(t, outcome.Accepted)
	assert.Equal(t, model.ReasonOutsideBoundary, outcome.Reason)
	assert.Equal(t, 50.0, outcome.Longitude)
	assert.Nil(t, outcome.CellIndex)
	assert.Empty(t, rec.calls, "rejected clicks never reach the dispatcher")
}

func TestGateRejectsBlockedCell(t *testing.T) {
	p, rec := newTestPipeline(t)

	outcome := p.Gate(3.5, 3.5)

	assert.False(t, outcome.Accepted)
	assert.Equal(t, model.ReasonCellBlocked, outcome.Reason)
	require.NotNil(t, outcome.CellIndex)
	assert.Equal(t, 2, *outcome.CellIndex)
	assert.Empty(t, rec.calls)
}

func TestGateAcceptsAndDispatchesOnce(t *testing.T) {
	p, rec := newTestPipeline(t)

	// Inside boundary, on an unblocked classified-free cell
	outcome := p.Gate(1.5, 1.5)

	assert.True(t, outcome.Accepted)
	assert.Empty(t, outcome.Reason)
	require.Len(t, rec.calls, 1, "exactly one dispatch per accepted click")
	assert.Equal(t, clickPoint{1.5, 1.5}, rec.calls[0])
}

func TestGateAcceptsClickOutsideAnyCell(t *testing.T) {
	p, rec := newTestPipeline(t)

	// Inside boundary but between cells: no cell found, click proceeds
	outcome := p.Gate(7.0, 7.0)

	assert.True(t, outcome.Accepted)
	assert.Len(t, rec.calls, 1)
}

func TestGateOrderBoundaryBeforeClassification(t *testing.T) {
	b := boundary.NewService()
	require.NoError(t, b.LoadFromGeoJSON([]byte(testBoundary)))

	// A blocked cell lying outside the boundary: the boundary stage must win
	g := grid.NewService()
	_, err := g.LoadFromCSV(strings.NewReader("9,20.0,20.0,21.0,21.0\n"))
	require.NoError(t, err)

	c := classify.NewService()
	_, err = c.LoadFromCSV(strings.NewReader("9,0,degraded,0.9\n"))
	require.NoError(t, err)

	p := NewPipeline(b, g, c, nil)
	outcome := p.Gate(20.5, 20.5)

	assert.Equal(t, model.ReasonOutsideBoundary, outcome.Reason)
	assert.Nil(t, outcome.CellIndex)
}
