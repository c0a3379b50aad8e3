package spatialquery

import (
	"sort"
	"time"

	"forestgrid/internal/model"
	"forestgrid/internal/util"
)

// rawQueryResponse mirrors the remote endpoint's wire format. It exists only
// inside this package: any drift in the remote schema is absorbed here and
// never leaks past normalizeResponse.
type rawQueryResponse struct {
	ClickCoordinates struct {
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
	} `json:"clickCoordinates"`
	PolygonMatches []struct {
		Properties map[string]interface{} `json:"properties"`
		LayerID    string                 `json:"layerId"`
		LayerName  string                 `json:"layerName"`
	} `json:"polygonMatches"`
	NearestPoints []struct {
		Properties map[string]interface{} `json:"properties"`
		LayerID    string                 `json:"layerId"`
		LayerName  string                 `json:"layerName"`
		DistanceKm float64                `json:"distanceKm"`
	} `json:"nearestPoints"`
	TotalLayersSearched int     `json:"totalLayersSearched"`
	QueryDurationMs     float64 `json:"queryDurationMs"`
	QueryTimestamp      string  `json:"queryTimestamp"`
}

// normalizeResponse converts the remote shape into the stable result the
// display layer consumes. Nearest points come back sorted by distance with a
// display label attached; missing remote fields fall back to request data
// and local timing.
func normalizeResponse(req model.QueryRequest, raw *rawQueryResponse, elapsed time.Duration) *model.QueryResult {
	result := &model.QueryResult{
		ClickLongitude:  raw.ClickCoordinates.Longitude,
		ClickLatitude:   raw.ClickCoordinates.Latitude,
		PolygonMatches:  make([]model.PolygonMatch, 0, len(raw.PolygonMatches)),
		NearestPoints:   make([]model.NearestPoint, 0, len(raw.NearestPoints)),
		QueryDurationMs: raw.QueryDurationMs,
		IsComplete:      true,
	}

	if result.ClickLongitude == 0 && result.ClickLatitude == 0 {
		result.ClickLongitude = req.Longitude
		result.ClickLatitude = req.Latitude
	}

	if result.QueryDurationMs == 0 {
		result.QueryDurationMs = float64(elapsed.Milliseconds())
	}

	if ts, err := time.Parse(time.RFC3339, raw.QueryTimestamp); err == nil {
		result.Timestamp = ts
	} else {
		result.Timestamp = time.Now()
	}

	for _, m := range raw.PolygonMatches {
		result.PolygonMatches = append(result.PolygonMatches, model.PolygonMatch{
			Properties: m.Properties,
			LayerID:    m.LayerID,
			LayerName:  m.LayerName,
		})
	}

	for _, p := range raw.NearestPoints {
		distanceKm := p.DistanceKm
		if distanceKm == 0 {
			if lng, lat, ok := propertyCoordinates(p.Properties); ok {
				distanceKm = util.HaversineDistance(result.ClickLatitude, result.ClickLongitude, lat, lng) / 1000
			}
		}
		result.NearestPoints = append(result.NearestPoints, model.NearestPoint{
			Properties:    p.Properties,
			LayerID:       p.LayerID,
			LayerName:     p.LayerName,
			DistanceKm:    distanceKm,
			DistanceLabel: util.FormatDistance(distanceKm),
		})
	}

	sort.Slice(result.NearestPoints, func(i, j int) bool {
		return result.NearestPoints[i].DistanceKm < result.NearestPoints[j].DistanceKm
	})

	return result
}

// propertyCoordinates pulls a point's own coordinates out of its property
// bag. Endpoints differ on key names, so a few common spellings are tried.
func propertyCoordinates(props map[string]interface{}) (lng, lat float64, ok bool) {
	lngKeys := []string{"longitude", "lng", "lon"}
	latKeys := []string{"latitude", "lat"}

	lng, lngOK := firstNumber(props, lngKeys)
	lat, latOK := firstNumber(props, latKeys)
	return lng, lat, lngOK && latOK
}

func firstNumber(props map[string]interface{}, keys []string) (float64, bool) {
	for _, key := range keys {
		if v, found := props[key]; found {
			if n, isNumber := v.(float64); isNumber {
				return n, true
			}
		}
	}
	return 0, false
}
