package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/happy-observatory/observatory/internal/infrastructure/config"
	"github.com/happy-observatory/observatory/internal/interfaces/http/handlers"
	"github.com/happy-observatory/observatory/internal/interfaces/http/middleware"
	"github.com/happy-observatory/observatory/internal/interfaces/http/routes"
	"github.com/happy-observatory/observatory/internal/shared/logger"
)

// Router owns the gin engine and the container behind it.
type Router struct {
	*Container
}

func NewRouter(cfg *config.Config, redisClient *redis.Client, log logger.Interface) (*Router, error) {
	c, err := NewContainer(cfg, redisClient, log)
	if err != nil {
		return nil, err
	}
	return &Router{Container: c}, nil
}

func (r *Router) SetupRoutes() {
	r.engine.Use(
		middleware.Recovery(r.log),
		middleware.RequestLogger(r.log.Named("http")),
	)

	r.engine.GET("/health", handlers.Health)

	api := r.engine.Group("/api")

	routes.SetupAuthRoutes(api, &routes.AuthRouteConfig{
		AuthHandler:    r.authHandler,
		AuthMiddleware: r.authMiddleware,
		AuthRateLimit:  r.rateLimit(config.PolicyAuth),
		APIRateLimit:   r.rateLimit(config.PolicyAPI),
	})

	routes.SetupDebugRoutes(api, &routes.DebugRouteConfig{
		DebugHandler: r.debugHandler,
		DebugGuard:   middleware.DebugGuard(r.cfg.Server.IsDevelopment(), r.cfg.Debug.Token, r.log.Named("debug")),
	})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// StartBackground starts the sweep jobs.
func (r *Router) StartBackground() {
	r.schedulerManager.Start()
}

// Shutdown stops background jobs and waits for running sweeps.
func (r *Router) Shutdown() {
	if err := r.schedulerManager.Stop(); err != nil {
		r.log.Errorw("failed to stop scheduler", "error", err)
	}
}
