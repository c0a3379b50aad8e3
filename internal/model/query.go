package model

import "time"

// QueryRequest is the payload sent to the remote spatial query endpoint for
// one accepted click.
type QueryRequest struct {
	Longitude        float64 `json:"longitude"`
	Latitude         float64 `json:"latitude"`
	MaxDistanceKm    float64 `json:"maxDistanceKm"`
	MaxNearestPoints int     `json:"maxNearestPoints"`
}

// PolygonMatch is one remote layer polygon that contains the click point.
type PolygonMatch struct {
	Properties map[string]interface{} `json:"properties"`
	LayerID    string                 `json:"layerId"`
	LayerName  string                 `json:"layerName"`
}

// NearestPoint is one nearby remote feature, with both the raw distance and
// a label ready for display.
type NearestPoint struct {
	Properties    map[string]interface{} `json:"properties"`
	LayerID       string                 `json:"layerId"`
	LayerName     string                 `json:"layerName"`
	DistanceKm    float64                `json:"distanceKm"`
	DistanceLabel string                 `json:"distanceLabel"`
}

// QueryResult is the normalized shape handed to the display layer. Remote
// schema drift is absorbed before this struct is built, never after.
type QueryResult struct {
	ClickLongitude  float64        `json:"clickLongitude"`
	ClickLatitude   float64        `json:"clickLatitude"`
	PolygonMatches  []PolygonMatch `json:"polygonMatches"`
	NearestPoints   []NearestPoint `json:"nearestPoints"`
	QueryDurationMs float64        `json:"queryDurationMs"`
	Timestamp       time.Time      `json:"timestamp"`
	IsComplete      bool           `json:"isComplete"`
}

// QueryProgress reports coordinator stages to the caller while a query runs.
type QueryProgress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// EndpointStatus is the liveness snapshot returned by the remote endpoint's
// health check and cached by the coordinator.
type EndpointStatus struct {
	Available     bool      `json:"available"`
	IndexedLayers int       `json:"indexedLayers"`
	TotalFeatures int       `json:"totalFeatures"`
	CheckedAt     time.Time `json:"checkedAt"`
}
