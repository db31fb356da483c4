package http

import (
	"fmt"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/happy-observatory/observatory/internal/application/session/usecases"
	"github.com/happy-observatory/observatory/internal/infrastructure/auth"
	"github.com/happy-observatory/observatory/internal/infrastructure/config"
	"github.com/happy-observatory/observatory/internal/infrastructure/ratelimit"
	"github.com/happy-observatory/observatory/internal/infrastructure/revocation"
	"github.com/happy-observatory/observatory/internal/infrastructure/scheduler"
	"github.com/happy-observatory/observatory/internal/interfaces/http/handlers"
	"github.com/happy-observatory/observatory/internal/interfaces/http/middleware"
	"github.com/happy-observatory/observatory/internal/shared/logger"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// Container wires stores, services, middleware and handlers together and
// owns the background sweep scheduler.
type Container struct {
	engine *gin.Engine
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	// Stores
	limiters    map[string]ratelimit.RateLimiter
	revocations revocation.Store

	// Middlewares
	authMiddleware *middleware.AuthMiddleware
	rateLimits     map[string]*middleware.RateLimitMiddleware

	// Handlers
	authHandler  *handlers.AuthHandler
	debugHandler *handlers.DebugHandler

	schedulerManager *scheduler.SchedulerManager
}

// NewContainer builds every component. redisClient may be nil unless
// store.backend is "redis".
func NewContainer(cfg *config.Config, redisClient *redis.Client, log logger.Interface) (*Container, error) {
	if cfg.Store.Backend == backendRedis && redisClient == nil {
		return nil, fmt.Errorf("store backend %q requires a redis client", backendRedis)
	}

	c := &Container{
		engine: gin.New(),
		cfg:    cfg,
		log:    log,
		redis:  redisClient,
	}

	if err := c.initStores(); err != nil {
		return nil, err
	}
	if err := c.initAuth(); err != nil {
		return nil, err
	}
	if err := c.initScheduler(); err != nil {
		return nil, err
	}

	c.debugHandler = handlers.NewDebugHandler(c.limiters, c.revocations, log.Named("debug"))

	return c, nil
}

func (c *Container) initStores() error {
	c.limiters = make(map[string]ratelimit.RateLimiter, len(c.cfg.RateLimit.Policies))
	c.rateLimits = make(map[string]*middleware.RateLimitMiddleware, len(c.cfg.RateLimit.Policies))
	keyFunc := middleware.ClientIPKey(c.cfg.Server.TrustProxy)
	limitLog := c.log.Named("ratelimit")

	for name, pc := range c.cfg.RateLimit.Policies {
		policy := ratelimit.Policy{
			Name:        name,
			Window:      pc.Window(),
			MaxRequests: pc.MaxRequests,
			MaxSize:     pc.MaxSize,
		}

		var limiter ratelimit.RateLimiter
		var err error
		if c.cfg.Store.Backend == backendRedis {
			limiter, err = ratelimit.NewRedisRateLimiter(c.redis, policy)
		} else {
			limiter, err = ratelimit.NewMemoryRateLimiter(policy)
		}
		if err != nil {
			return fmt.Errorf("rate limit policy %q: %w", name, err)
		}

		c.limiters[name] = limiter
		c.rateLimits[name] = middleware.NewRateLimitMiddleware(limiter, keyFunc, limitLog)
	}

	if c.cfg.Store.Backend == backendRedis {
		c.revocations = revocation.NewRedisStore(c.redis)
	} else {
		c.revocations = revocation.NewMemoryStore()
	}

	c.log.Infow("stores initialized",
		"backend", c.cfg.Store.Backend,
		"policies", c.policyNames(),
	)
	return nil
}

func (c *Container) initAuth() error {
	authLog := c.log.Named("auth")
	jwtCfg := c.cfg.Auth.JWT

	jwtService := auth.NewJWTService(jwtCfg.Secret, jwtCfg.Issuer, jwtCfg.AccessExpMinutes)
	hasher, err := auth.NewBcryptPasswordHasher(c.cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("auth.bcrypt_cost: %w", err)
	}

	if len(c.cfg.Auth.Users) == 0 {
		c.log.Warnw("no users configured; login will always fail")
	}

	loginUC, err := usecases.NewLoginUseCase(c.cfg.Auth.Users, hasher, jwtService, authLog)
	if err != nil {
		return err
	}
	logoutUC := usecases.NewLogoutUseCase(c.revocations, authLog)

	c.authMiddleware = middleware.NewAuthMiddleware(jwtService, c.revocations, authLog)
	c.authHandler = handlers.NewAuthHandler(loginUC, logoutUC, c.cfg.Auth.Cookie, authLog)
	return nil
}

func (c *Container) initScheduler() error {
	manager, err := scheduler.NewSchedulerManager(c.log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	c.schedulerManager = manager

	// Redis expires keys itself; only in-process stores need sweeping.
	if c.cfg.Store.Backend != backendMemory {
		return nil
	}

	for _, name := range c.policyNames() {
		limiter := c.limiters[name]
		if err := manager.RegisterSweepJob("ratelimit-"+name, limiter.Policy().Window, limiter); err != nil {
			return err
		}
	}
	return manager.RegisterSweepJob("revocation", c.cfg.Revocation.SweepInterval, c.revocations)
}

// rateLimit returns the guard for a policy, or a pass-through when rate
// limiting is disabled or the policy is not configured.
func (c *Container) rateLimit(policy string) gin.HandlerFunc {
	mw, ok := c.rateLimits[policy]
	if !c.cfg.RateLimit.Enabled || !ok {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	return mw.Limit()
}

func (c *Container) policyNames() []string {
	names := make([]string, 0, len(c.limiters))
	for name := range c.limiters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
