package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/interfaces/http/handlers"
	"github.com/happy-observatory/observatory/internal/interfaces/http/middleware"
)

// AuthRouteConfig holds dependencies for authentication routes.
type AuthRouteConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	// AuthRateLimit guards credential checks; APIRateLimit everything else.
	AuthRateLimit gin.HandlerFunc
	APIRateLimit  gin.HandlerFunc
}

func SetupAuthRoutes(api *gin.RouterGroup, cfg *AuthRouteConfig) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", cfg.AuthRateLimit, cfg.AuthHandler.Login)
		auth.POST("/logout", cfg.APIRateLimit, cfg.AuthMiddleware.RequireAuth(), cfg.AuthHandler.Logout)
		auth.GET("/session", cfg.APIRateLimit, cfg.AuthMiddleware.RequireAuth(), cfg.AuthHandler.Session)
	}
}
