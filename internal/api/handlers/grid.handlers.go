package routes

import (
	"log"

	"forestgrid/internal/model"

	"github.com/gin-gonic/gin"
)

// SetupGridHandlers registers the grid rendering endpoints
func SetupGridHandlers(router *gin.RouterGroup, deps *Deps) {
	gridGroup := router.Group("/grid")

	gridGroup.GET("/renderset", func(c *gin.Context) {
		GetRenderSet(c, deps)
	})
	gridGroup.GET("/stats", func(c *gin.Context) {
		GetGridStats(c, deps)
	})

	router.POST("/viewport", func(c *gin.Context) {
		PublishViewport(c, deps)
	})
}

// GetRenderSet returns the current culled render-set
func GetRenderSet(c *gin.Context, deps *Deps) {
	rs := deps.Engine.Current()
	if rs == nil {
		c.JSON(200, gin.H{
			"status":  "pending",
			"message": "No viewport has been published yet",
		})
		return
	}
	c.JSON(200, rs)
}

// PublishViewport accepts a settled viewport (zoom change or pan end) and
// recomputes the render-set
func PublishViewport(c *gin.Context, deps *Deps) {
	var vp model.Viewport
	if err := c.ShouldBindJSON(&vp); err != nil {
		c.JSON(400, gin.H{
			"status":  "error",
			"message": "Invalid viewport payload: " + err.Error(),
		})
		return
	}

	if vp.North < vp.South {
		c.JSON(400, gin.H{
			"status":  "error",
			"message": "Viewport north edge is below its south edge",
		})
		return
	}

	deps.Feed.Publish(vp)

	rs := deps.Engine.Current()
	if rs == nil {
		c.JSON(200, gin.H{
			"status":  "pending",
			"message": "Render-set not computed yet",
		})
		return
	}
	log.Printf("Viewport published: zoom=%.1f, generation=%d", vp.Zoom, rs.Generation)
	c.JSON(200, rs)
}

// GetGridStats returns load statistics for the grid and classification sets
func GetGridStats(c *gin.Context, deps *Deps) {
	c.JSON(200, gin.H{
		"cells":                  deps.Grid.Count(),
		"skippedRows":            deps.Grid.SkippedRows(),
		"classified":             deps.Classify.Count(),
		"classificationSkipped":  deps.Classify.SkippedRows(),
		"boundaryPolygons":       deps.Boundary.PolygonCount(),
		"latestRenderGeneration": deps.Engine.Generation(),
	})
}
