package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/infrastructure/auth"
	"github.com/happy-observatory/observatory/internal/infrastructure/revocation"
	"github.com/happy-observatory/observatory/internal/shared/constants"
	"github.com/happy-observatory/observatory/internal/shared/errors"
	"github.com/happy-observatory/observatory/internal/shared/logger"
	"github.com/happy-observatory/observatory/internal/shared/utils"
)

type AuthMiddleware struct {
	jwtService  *auth.JWTService
	revocations revocation.Store
	logger      logger.Interface
}

func NewAuthMiddleware(jwtService *auth.JWTService, revocations revocation.Store, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		revocations: revocations,
		logger:      logger,
	}
}

// RequireAuth admits only requests carrying a valid, unrevoked access token.
// Bad signature, expiry and revocation produce the same response.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := utils.GetTokenFromRequest(c)
		if token == "" {
			m.reject(c, errors.NewUnauthorizedError("missing authorization token"), "missing authorization token")
			return
		}

		claims, err := m.jwtService.Verify(token)
		if err != nil {
			m.reject(c, errors.NewTokenInvalidError("token"), "failed to verify token", "error", err)
			return
		}

		revoked, err := m.revocations.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			// Fail closed: an unknown revocation state is treated as revoked.
			m.logger.Errorw("failed to check token revocation", "jti", claims.ID, "error", err)
			utils.ErrorResponseWithError(c, errors.NewTokenInvalidError("token"))
			c.Abort()
			return
		}
		if revoked {
			m.reject(c, errors.NewTokenInvalidError("token"), "revoked token presented",
				"jti", claims.ID,
				"user_id", claims.Subject,
			)
			return
		}

		c.Set(constants.ContextKeyUserID, claims.Subject)
		c.Set(constants.ContextKeyRole, claims.Role)
		c.Set(constants.ContextKeyClaims, claims)

		c.Next()
	}
}

// reject writes err and aborts. Security events are logged at warn, other
// loggable failures at debug.
func (m *AuthMiddleware) reject(c *gin.Context, err error, msg string, keysAndValues ...any) {
	if errors.ShouldLogAuthError(err) {
		keysAndValues = append(keysAndValues, "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
		if errors.IsSecurityEvent(err) {
			m.logger.Warnw(msg, append(keysAndValues, "security_event", true)...)
		} else {
			m.logger.Debugw(msg, keysAndValues...)
		}
	}
	utils.ErrorResponseWithError(c, err)
	c.Abort()
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(constants.ContextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
