package worker

import (
	"log"
	"time"

	"forestgrid/internal/config"
	redis_client "forestgrid/internal/redis"
	"forestgrid/internal/service/culling"
)

const renderStatsRedisKey = "grid:renderstats"

// renderStats is the snapshot published for dashboards and debugging.
type renderStats struct {
	Generation   uint64    `json:"generation"`
	Zoom         float64   `json:"zoom"`
	TotalVisible int       `json:"totalVisible"`
	Rendered     int       `json:"rendered"`
	Blocked      int       `json:"blocked"`
	SampleStride int       `json:"sampleStride"`
	Truncated    bool      `json:"truncated"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// StartRenderStatsWorker periodically publishes render-set statistics to
// Redis so they survive restarts and feed the operations dashboard.
func StartRenderStatsWorker(engine *culling.Engine) {
	ticker := time.NewTicker(config.RenderStatsInterval)
	go func() {
		var lastPublished uint64
		for range ticker.C {
			rs := engine.Current()
			if rs == nil || rs.Generation == lastPublished {
				continue
			}

			stats := renderStats{
				Generation:   rs.Generation,
				Zoom:         rs.Zoom,
				TotalVisible: rs.TotalVisible,
				Rendered:     rs.Size(),
				Blocked:      len(rs.Blocked),
				SampleStride: rs.SampleStride,
				Truncated:    rs.Truncated,
				PublishedAt:  time.Now(),
			}

			if err := redis_client.SetJSON(renderStatsRedisKey, stats, 0); err != nil {
				log.Printf("failed to publish render stats: %v", err)
				continue
			}
			lastPublished = rs.Generation
		}
	}()

	log.Println("Render stats worker started with interval:", config.RenderStatsInterval)
}
