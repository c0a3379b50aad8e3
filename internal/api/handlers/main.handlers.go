package routes

import (
	"forestgrid/internal/service/boundary"
	"forestgrid/internal/service/classify"
	"forestgrid/internal/service/culling"
	"forestgrid/internal/service/gating"
	"forestgrid/internal/service/grid"
	"forestgrid/internal/service/spatialquery"

	"github.com/gin-gonic/gin"
)

// Deps bundles the explicitly constructed services the handlers consume.
type Deps struct {
	Grid        *grid.Service
	Classify    *classify.Service
	Boundary    *boundary.Service
	Engine      *culling.Engine
	Feed        *culling.Feed
	Pipeline    *gating.Pipeline
	Coordinator *spatialquery.Coordinator
}

// SetupMainHandlers registers the main application endpoints
func SetupMainHandlers(router *gin.RouterGroup, deps *Deps) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "forestgrid",
			"cells":   deps.Grid.Count(),
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"gridLoaded":          deps.Grid.Loaded(),
			"cells":               deps.Grid.Count(),
			"classificationCount": deps.Classify.Count(),
			"boundaryLoaded":      deps.Boundary.Loaded(),
			"queryEndpoint":       deps.Coordinator.Status(),
		})
	})
}
