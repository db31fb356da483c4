package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/interfaces/http/handlers"
)

type DebugRouteConfig struct {
	DebugHandler *handlers.DebugHandler
	DebugGuard   gin.HandlerFunc
}

// SetupDebugRoutes mounts store inspection endpoints behind the debug guard.
func SetupDebugRoutes(api *gin.RouterGroup, cfg *DebugRouteConfig) {
	debug := api.Group("/debug", cfg.DebugGuard)
	{
		debug.GET("/rate-limiter", cfg.DebugHandler.RateLimiterStats)
		debug.GET("/revoked-tokens", cfg.DebugHandler.RevokedTokenStats)
	}
}
