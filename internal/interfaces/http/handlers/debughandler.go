package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/infrastructure/ratelimit"
	"github.com/happy-observatory/observatory/internal/infrastructure/revocation"
	"github.com/happy-observatory/observatory/internal/shared/errors"
	"github.com/happy-observatory/observatory/internal/shared/logger"
	"github.com/happy-observatory/observatory/internal/shared/utils"
)

// DebugHandler exposes store statistics. Routes are mounted behind DebugGuard.
type DebugHandler struct {
	limiters    map[string]ratelimit.RateLimiter
	revocations revocation.Store
	logger      logger.Interface
}

func NewDebugHandler(limiters map[string]ratelimit.RateLimiter, revocations revocation.Store, logger logger.Interface) *DebugHandler {
	return &DebugHandler{
		limiters:    limiters,
		revocations: revocations,
		logger:      logger,
	}
}

// RateLimiterStats handles GET /api/debug/rate-limiter
func (h *DebugHandler) RateLimiterStats(c *gin.Context) {
	stats := make(map[string]*ratelimit.Stats, len(h.limiters))
	for name, limiter := range h.limiters {
		s, err := limiter.Stats(c.Request.Context())
		if err != nil {
			h.logger.Errorw("failed to collect rate limiter stats", "policy", name, "error", err)
			utils.ErrorResponseWithError(c, errors.NewInternalError("failed to collect rate limiter stats"))
			return
		}
		stats[name] = s
	}

	utils.SuccessResponse(c, http.StatusOK, "", stats)
}

// RevokedTokenStats handles GET /api/debug/revoked-tokens
func (h *DebugHandler) RevokedTokenStats(c *gin.Context) {
	stats, err := h.revocations.Stats(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to collect revocation stats", "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to collect revocation stats"))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", stats)
}
