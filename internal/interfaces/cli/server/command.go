package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/happy-observatory/observatory/internal/infrastructure/config"
	httpRouter "github.com/happy-observatory/observatory/internal/interfaces/http"
	"github.com/happy-observatory/observatory/internal/shared/biztime"
	"github.com/happy-observatory/observatory/internal/shared/constants"
	"github.com/happy-observatory/observatory/internal/shared/logger"
	"github.com/happy-observatory/observatory/internal/shared/version"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the observatory HTTP server with rate limiting, token revocation and debug endpoints.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (development, test, production); overrides server.mode")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Server.Timezone, err)
	}

	log := logger.NewLogger()
	log.Infow("starting server",
		"environment", cfg.Server.Mode,
		"version", version.String(),
		"store_backend", cfg.Store.Backend,
	)

	gin.SetMode(mapModeToGinMode(cfg.Server.Mode))
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	var redisClient *redis.Client
	if cfg.Store.Backend == "redis" {
		redisClient, err = connectRedis(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	router, err := httpRouter.NewRouter(cfg, redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	router.SetupRoutes()
	router.StartBackground()
	defer router.Shutdown()

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server listening", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		log.Errorw("server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Infow("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

// loadConfig overrides server.mode only when --env or OBSERVATORY_ENV is given,
// so the mode from config.yaml or OBSERVATORY_SERVER_MODE otherwise stands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	override := ""
	if envVar := os.Getenv("OBSERVATORY_ENV"); envVar != "" {
		override = normalizeEnv(envVar)
	}
	if cmd.Flags().Changed("env") {
		override = normalizeEnv(env)
	}

	cfg, err := config.Load(override)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}

	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())
	return client, nil
}

func normalizeEnv(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return constants.EnvProduction
	case "test", "testing":
		return constants.EnvTest
	default:
		return constants.EnvDevelopment
	}
}

func mapModeToGinMode(mode string) string {
	switch mode {
	case constants.EnvProduction:
		return gin.ReleaseMode
	case constants.EnvTest:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
