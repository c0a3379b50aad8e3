package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupClickHandlers registers the click gating and query endpoints
func SetupClickHandlers(router *gin.RouterGroup, deps *Deps) {
	router.POST("/click", func(c *gin.Context) {
		GateClick(c, deps)
	})

	queryGroup := router.Group("/query")
	queryGroup.GET("/status", func(c *gin.Context) {
		GetQueryStatus(c, deps)
	})
	queryGroup.POST("/cancel", func(c *gin.Context) {
		CancelQuery(c, deps)
	})
}

// Coordinates deliberately carry no "required" binding: zero is a valid
// longitude and latitude.
type clickPayload struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// GateClick runs a map click through the gating pipeline. Rejections are
// expected outcomes and come back as 200 with a reason code; the display
// layer renders them as transient notices.
func GateClick(c *gin.Context, deps *Deps) {
	var payload clickPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{
			"status":  "error",
			"message": "Invalid click payload: " + err.Error(),
		})
		return
	}

	outcome := deps.Pipeline.Gate(payload.Longitude, payload.Latitude)
	c.JSON(200, outcome)
}

// GetQueryStatus reports the coordinator's busy state, latest progress and
// last delivered outcome
func GetQueryStatus(c *gin.Context, deps *Deps) {
	result, progress, err := deps.Coordinator.LastOutcome()

	response := gin.H{
		"busy":     deps.Coordinator.Busy(),
		"progress": progress,
		"result":   result,
	}
	if err != nil {
		response["error"] = err.Error()
		response["retryable"] = true
	}

	c.JSON(200, response)
}

// CancelQuery aborts the in-flight query, if any
func CancelQuery(c *gin.Context, deps *Deps) {
	deps.Coordinator.Cancel()
	c.JSON(200, gin.H{
		"status":  "success",
		"message": "Query cancelled",
	})
}
