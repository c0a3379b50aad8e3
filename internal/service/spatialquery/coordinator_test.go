package spatialquery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"forestgrid/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const healthBody = `{"indexedLayers":3,"totalFeatures":1200}`

const queryBody = `{
	"clickCoordinates": {"longitude": 5.5, "latitude": 45.5},
	"polygonMatches": [
		{"properties": {"name": "Reserve A"}, "layerId": "reserves", "layerName": "Nature reserves"}
	],
	"nearestPoints": [
		{"properties": {"name": "Station 2"}, "layerId": "stations", "layerName": "Stations", "distanceKm": 2.5},
		{"properties": {"name": "Station 1"}, "layerId": "stations", "layerName": "Stations", "distanceKm": 0.4}
	],
	"totalLayersSearched": 3,
	"queryDurationMs": 41.5,
	"queryTimestamp": "2025-06-01T10:00:00Z"
}`

func testRequest() model.QueryRequest {
	return model.QueryRequest{Longitude: 5.5, Latitude: 45.5, MaxDistanceKm: 50, MaxNearestPoints: 5}
}

// newEndpoint builds a fake remote endpoint. If gate is non-nil the query
// handler blocks until the channel is closed, letting tests hold a query in
// flight deterministically.
func newEndpoint(t *testing.T, gate chan struct{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(healthBody))
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		w.Write([]byte(queryBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestQueryDeliversNormalizedResult(t *testing.T) {
	server := newEndpoint(t, nil)
	c := NewCoordinator(server.URL)

	results := make(chan *model.QueryResult, 1)
	var stages []string

	_, err := c.Query(testRequest(), func(p model.QueryProgress) {
		stages = append(stages, p.Stage)
	}, func(result *model.QueryResult, err error) {
		require.NoError(t, err)
		results <- result
	})
	require.NoError(t, err)

	select {
	case result := <-results:
		assert.Equal(t, 5.5, result.ClickLongitude)
		assert.Equal(t, 45.5, result.ClickLatitude)
		assert.True(t, result.IsComplete)
		assert.Equal(t, 41.5, result.QueryDurationMs)

		require.Len(t, result.PolygonMatches, 1)
		assert.Equal(t, "reserves", result.PolygonMatches[0].LayerID)

		// Nearest points come back sorted by distance with display labels
		require.Len(t, result.NearestPoints, 2)
		assert.Equal(t, 0.4, result.NearestPoints[0].DistanceKm)
		assert.Equal(t, "400 m", result.NearestPoints[0].DistanceLabel)
		assert.Equal(t, "2.5 km", result.NearestPoints[1].DistanceLabel)
	case <-time.After(2 * time.Second):
		t.Fatal("query result never delivered")
	}

	assert.Equal(t, []string{"availability", "querying", "normalizing"}, stages)
	assert.False(t, c.Busy())
}

func TestQueryRefusedWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	server := newEndpoint(t, gate)
	c := NewCoordinator(server.URL)

	var resultCount int32
	done := make(chan struct{}, 1)

	_, err := c.Query(testRequest(), nil, func(result *model.QueryResult, err error) {
		atomic.AddInt32(&resultCount, 1)
		done <- struct{}{}
	})
	require.NoError(t, err)
	assert.True(t, c.Busy())

	// Second start while the first is in flight is refused, not queued
	_, err = c.Query(testRequest(), nil, func(*model.QueryResult, error) {
		atomic.AddInt32(&resultCount, 1)
	})
	assert.ErrorIs(t, err, ErrQueryInFlight)

	close(gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first query never completed")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&resultCount), "one logical click, one result")
	assert.False(t, c.Busy())
}

func TestCancelSuppressesLateCallbacks(t *testing.T) {
	gate := make(chan struct{})
	server := newEndpoint(t, gate)
	c := NewCoordinator(server.URL)

	callbacks := make(chan struct{}, 2)
	handle, err := c.Query(testRequest(), func(model.QueryProgress) {
	}, func(result *model.QueryResult, err error) {
		callbacks <- struct{}{}
	})
	require.NoError(t, err)
	require.True(t, c.Busy())

	handle.Cancel()
	assert.False(t, c.Busy(), "cancel releases the coordinator immediately")

	// Let the remote response resolve after cancellation
	close(gate)

	select {
	case <-callbacks:
		t.Fatal("callback fired for a cancelled request")
	case <-time.After(300 * time.Millisecond):
	}

	// A fresh query can start right away
	_, err = c.Query(testRequest(), nil, nil)
	assert.NoError(t, err)
}

func TestCoordinatorCancelTargetsLiveQuery(t *testing.T) {
	gate := make(chan struct{})
	server := newEndpoint(t, gate)
	c := NewCoordinator(server.URL)

	// A completed query advances the generation before the one we cancel
	done := make(chan struct{}, 1)
	_, err := c.Query(testRequest(), nil, func(*model.QueryResult, error) {
		done <- struct{}{}
	})
	require.NoError(t, err)
	gate <- struct{}{}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first query never completed")
	}

	callbacks := make(chan struct{}, 1)
	_, err = c.Query(testRequest(), nil, func(*model.QueryResult, error) {
		callbacks <- struct{}{}
	})
	require.NoError(t, err)
	require.True(t, c.Busy())

	// Coordinator-level cancel aborts whichever query is in flight now
	c.Cancel()
	assert.False(t, c.Busy())

	close(gate)
	select {
	case <-callbacks:
		t.Fatal("callback fired for a cancelled request")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCancelWhenIdleIsNoOp(t *testing.T) {
	c := NewCoordinator("http://localhost:0")
	c.Cancel()
	assert.False(t, c.Busy())
}

func TestAvailabilityFailureIsNotCached(t *testing.T) {
	var healthCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&healthCalls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(healthBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewCoordinator(server.URL)

	_, err := c.CheckAvailability(context.Background())
	require.ErrorIs(t, err, ErrEndpointUnavailable)
	assert.Nil(t, c.Status(), "a failed check must not be cached")

	status, err := c.CheckAvailability(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Available)
	assert.Equal(t, 3, status.IndexedLayers)

	// A cached success is reused without another remote call
	_, err = c.CheckAvailability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&healthCalls))
}

func TestQueryErrorSurfacesOnceAndInvalidatesAvailability(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(healthBody))
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewCoordinator(server.URL)

	errs := make(chan error, 1)
	_, err := c.Query(testRequest(), nil, func(result *model.QueryResult, err error) {
		errs <- err
	})
	require.NoError(t, err)

	select {
	case err := <-errs:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	case <-time.After(2 * time.Second):
		t.Fatal("query error never surfaced")
	}

	assert.Nil(t, c.Status(), "query failure invalidates the liveness cache")

	_, _, lastErr := c.LastOutcome()
	assert.Error(t, lastErr)
}

func TestNormalizeResponseComputesMissingDistance(t *testing.T) {
	raw := &rawQueryResponse{}
	raw.NearestPoints = append(raw.NearestPoints, struct {
		Properties map[string]interface{} `json:"properties"`
		LayerID    string                 `json:"layerId"`
		LayerName  string                 `json:"layerName"`
		DistanceKm float64                `json:"distanceKm"`
	}{
		// No distanceKm from the remote, but the point carries its own
		// coordinates: 0.01 degrees of latitude north of the click.
		Properties: map[string]interface{}{"longitude": 5.5, "latitude": 45.51},
		LayerID:    "stations",
	}, struct {
		Properties map[string]interface{} `json:"properties"`
		LayerID    string                 `json:"layerId"`
		LayerName  string                 `json:"layerName"`
		DistanceKm float64                `json:"distanceKm"`
	}{
		// Neither a distance nor coordinates: nothing to compute from.
		Properties: map[string]interface{}{"name": "Station X"},
		LayerID:    "stations",
	})

	result := normalizeResponse(testRequest(), raw, 10*time.Millisecond)

	require.Len(t, result.NearestPoints, 2)
	computed := result.NearestPoints[1]
	assert.InDelta(t, 1.112, computed.DistanceKm, 0.01, "distance derived from click and point coordinates")
	assert.Equal(t, "1.1 km", computed.DistanceLabel)

	bare := result.NearestPoints[0]
	assert.Zero(t, bare.DistanceKm)
	assert.Equal(t, "0 m", bare.DistanceLabel)
}

func TestNormalizeResponseFallbacks(t *testing.T) {
	raw := &rawQueryResponse{}
	req := testRequest()

	result := normalizeResponse(req, raw, 150*time.Millisecond)

	assert.Equal(t, req.Longitude, result.ClickLongitude, "missing remote coordinates fall back to the request")
	assert.Equal(t, req.Latitude, result.ClickLatitude)
	assert.Equal(t, float64(150), result.QueryDurationMs, "missing remote duration falls back to local timing")
	assert.WithinDuration(t, time.Now(), result.Timestamp, time.Minute)
	assert.True(t, result.IsComplete)
	assert.Empty(t, result.PolygonMatches)
}
