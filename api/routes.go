package api

import (
	"github.com/gin-gonic/gin"

	"github.com/helmsman-ai/helmsman/api/handlers"
)

// SetupRoutes initializes all API endpoints
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/agents", handlers.CreateAgent)
		api.GET("/agents", handlers.ListAgents)
		api.GET("/agents/:id", handlers.GetAgentStatus)
		api.POST("/agents/:id/strategy", handlers.SetStrategy)
		api.POST("/agents/:id/start", handlers.StartAgent)
		api.POST("/agents/:id/pause", handlers.PauseAgent)
		api.POST("/agents/:id/resume", handlers.ResumeAgent)
		api.POST("/agents/:id/kill", handlers.KillAgent)
		api.GET("/agents/:id/decisions", handlers.GetRecentDecisions)
		api.GET("/risk/breakers", handlers.GetBreakers)
		api.POST("/risk/breakers/:type/reset", handlers.ResetBreaker)
		api.POST("/risk/breakers/:type/trip", handlers.TripBreaker)
		api.GET("/risk/limits", handlers.GetLimits)
		api.PUT("/risk/limits", handlers.SetLimits)
	}
	router.GET("/ws", handlers.HandleWebSocket)
}
