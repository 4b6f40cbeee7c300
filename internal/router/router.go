package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raccommode/P-StreamRec/internal/handler"
	"github.com/raccommode/P-StreamRec/pkg/constants"
)

// New builds the HTTP router.
func New(
	dashboard *handler.DashboardHandler,
	patchWS *handler.PatchWSHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	// REST dashboard API
	api := r.Group("/api")
	{
		api.GET("/dashboard", dashboard.GetDashboard)
		api.GET("/models", dashboard.ListModels)
		api.POST("/models", dashboard.AddModel)
		api.GET("/model/:username/status", dashboard.GetModelStatus)
	}

	// WebSocket: patch stream for renderers
	r.GET(constants.PathPatchWS, patchWS.ServeWS)

	return r
}
