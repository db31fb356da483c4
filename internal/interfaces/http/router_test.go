package http

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happy-observatory/observatory/internal/infrastructure/auth"
	"github.com/happy-observatory/observatory/internal/infrastructure/config"
	sharedConfig "github.com/happy-observatory/observatory/internal/shared/config"
	"github.com/happy-observatory/observatory/internal/shared/logger"
)

const (
	testDebugToken = "debug-secret"
	testPassword   = "correct horse battery"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	hasher, err := auth.NewBcryptPasswordHasher(4)
	require.NoError(t, err)
	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)

	return &config.Config{
		Server: sharedConfig.ServerConfig{Host: "127.0.0.1", Port: 8080, Mode: mode},
		Auth: sharedConfig.AuthConfig{
			JWT:        sharedConfig.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", AccessExpMinutes: 15, Issuer: "observatory"},
			Cookie:     sharedConfig.CookieConfig{Path: "/", SameSite: "Lax"},
			BcryptCost: 4,
			Users:      []sharedConfig.UserConfig{{Username: "ops", PasswordHash: hash, Role: "admin"}},
		},
		RateLimit: sharedConfig.RateLimitConfig{
			Enabled: true,
			Policies: map[string]sharedConfig.RateLimitPolicyConfig{
				config.PolicyAPI:  {WindowMs: 60000, MaxRequests: 100, MaxSize: 1000},
				config.PolicyAuth: {WindowMs: 60000, MaxRequests: 3, MaxSize: 1000},
			},
		},
		Revocation: sharedConfig.RevocationConfig{SweepInterval: time.Minute},
		Store:      sharedConfig.StoreConfig{Backend: "memory"},
		Debug:      sharedConfig.DebugConfig{Token: testDebugToken},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, redisClient *redis.Client) *Router {
	t.Helper()
	r, err := NewRouter(cfg, redisClient, logger.NewDiscard())
	require.NoError(t, err)
	r.SetupRoutes()
	t.Cleanup(r.Shutdown)
	return r
}

func serve(r *Router, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *Router) string {
	t.Helper()
	w := serve(r, nethttp.MethodPost, "/api/auth/login", map[string]string{"username": "ops", "password": testPassword}, nil)
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, testConfig(t, "production"), nil)

	w := serve(r, nethttp.MethodGet, "/health", nil, nil)
	assert.Equal(t, nethttp.StatusOK, w.Code)
}

func TestRouter_LoginLogoutRevokes(t *testing.T) {
	r := newTestRouter(t, testConfig(t, "production"), nil)

	token := login(t, r)

	w := serve(r, nethttp.MethodGet, "/api/auth/session", nil, bearer(token))
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))

	w = serve(r, nethttp.MethodPost, "/api/auth/logout", nil, bearer(token))
	require.Equal(t, nethttp.StatusOK, w.Code)

	w = serve(r, nethttp.MethodGet, "/api/auth/session", nil, bearer(token))
	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired token")

	// A fresh login is unaffected.
	fresh := login(t, r)
	w = serve(r, nethttp.MethodGet, "/api/auth/session", nil, bearer(fresh))
	assert.Equal(t, nethttp.StatusOK, w.Code)
}

func TestRouter_LoginIsRateLimited(t *testing.T) {
	r := newTestRouter(t, testConfig(t, "production"), nil)
	bad := map[string]string{"username": "ops", "password": "wrong"}

	for i := 0; i < 3; i++ {
		w := serve(r, nethttp.MethodPost, "/api/auth/login", bad, nil)
		assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
	}

	w := serve(r, nethttp.MethodPost, "/api/auth/login", map[string]string{"username": "ops", "password": testPassword}, nil)
	assert.Equal(t, nethttp.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retry_after")
}

func TestRouter_RateLimitDisabled(t *testing.T) {
	cfg := testConfig(t, "production")
	cfg.RateLimit.Enabled = false
	r := newTestRouter(t, cfg, nil)

	for i := 0; i < 5; i++ {
		w := serve(r, nethttp.MethodPost, "/api/auth/login", map[string]string{"username": "ops", "password": "wrong"}, nil)
		assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRouter_DebugRoutes(t *testing.T) {
	t.Run("hidden outside development", func(t *testing.T) {
		r := newTestRouter(t, testConfig(t, "production"), nil)

		w := serve(r, nethttp.MethodGet, "/api/debug/rate-limiter", nil, map[string]string{"X-Debug-Token": testDebugToken})
		assert.Equal(t, nethttp.StatusNotFound, w.Code)
	})

	t.Run("token required in development", func(t *testing.T) {
		r := newTestRouter(t, testConfig(t, "development"), nil)

		w := serve(r, nethttp.MethodGet, "/api/debug/revoked-tokens", nil, nil)
		assert.Equal(t, nethttp.StatusUnauthorized, w.Code)

		token := login(t, r)
		w = serve(r, nethttp.MethodPost, "/api/auth/logout", nil, bearer(token))
		require.Equal(t, nethttp.StatusOK, w.Code)

		w = serve(r, nethttp.MethodGet, "/api/debug/revoked-tokens", nil, map[string]string{"X-Debug-Token": testDebugToken})
		require.Equal(t, nethttp.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)

		w = serve(r, nethttp.MethodGet, "/api/debug/rate-limiter", nil, map[string]string{"X-Debug-Token": testDebugToken})
		require.Equal(t, nethttp.StatusOK, w.Code)

		var resp struct {
			Data map[string]struct {
				StoreSize int `json:"store_size"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Data["auth"].StoreSize)
		assert.Equal(t, 1, resp.Data["api"].StoreSize)
	})
}

func TestRouter_SweepJobsRegistered(t *testing.T) {
	r := newTestRouter(t, testConfig(t, "production"), nil)

	names := make([]string, 0)
	for _, job := range r.schedulerManager.Jobs() {
		names = append(names, job.Name())
	}
	assert.ElementsMatch(t, []string{"ratelimit-api", "ratelimit-auth", "revocation"}, names)
}

func TestRouter_RedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := testConfig(t, "production")
	cfg.Store.Backend = "redis"
	r := newTestRouter(t, cfg, client)

	assert.Empty(t, r.schedulerManager.Jobs(), "redis expires keys itself")

	token := login(t, r)
	w := serve(r, nethttp.MethodPost, "/api/auth/logout", nil, bearer(token))
	require.Equal(t, nethttp.StatusOK, w.Code)

	w = serve(r, nethttp.MethodGet, "/api/auth/session", nil, bearer(token))
	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
}

func TestNewContainer_RedisBackendNeedsClient(t *testing.T) {
	cfg := testConfig(t, "production")
	cfg.Store.Backend = "redis"

	_, err := NewContainer(cfg, nil, logger.NewDiscard())
	assert.Error(t, err)
}
