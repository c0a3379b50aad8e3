package api

import (
	routes "forestgrid/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes all application routes
func SetupRouter(r *gin.Engine, deps *routes.Deps) {
	// API group
	api := r.Group("/api")

	// Setup main handlers
	routes.SetupMainHandlers(r.Group(""), deps)

	// Setup grid handlers
	routes.SetupGridHandlers(api, deps)

	// Setup click and query handlers
	routes.SetupClickHandlers(api, deps)
}
