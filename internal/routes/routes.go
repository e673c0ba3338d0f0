package routes

import (
	"github.com/gin-gonic/gin"

	"okazje-ingest/internal/handlers"
)

// RegisterRoutes mounts the admin API. auth guards everything under /v1.
func RegisterRoutes(router *gin.Engine, h *handlers.ImportHandler, auth gin.HandlerFunc) {
	router.GET("/health", h.Health)

	v1 := router.Group("/v1", auth)
	{
		v1.GET("/import-profiles", h.ListProfiles)
		v1.POST("/import-profiles", h.CreateProfile)
		v1.GET("/import-profiles/:id", h.GetProfile)
		v1.PUT("/import-profiles/:id", h.UpdateProfile)
		v1.POST("/import-profiles/:id/runs", h.StartRun)

		v1.GET("/import-runs", h.ListRuns)
		v1.GET("/import-runs/:id", h.GetRun)

		v1.GET("/vendors/:vendor/items/:id", h.PreviewItem)
	}
}
