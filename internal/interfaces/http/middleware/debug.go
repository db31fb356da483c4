package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/shared/constants"
	"github.com/happy-observatory/observatory/internal/shared/errors"
	"github.com/happy-observatory/observatory/internal/shared/logger"
	"github.com/happy-observatory/observatory/internal/shared/utils"
)

// DebugGuard hides debug routes outside development and requires the
// X-Debug-Token header inside it.
func DebugGuard(development bool, token string, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !development {
			utils.ErrorResponseWithError(c, errors.NewNotFoundError("Resource not found"))
			c.Abort()
			return
		}

		provided := c.GetHeader(constants.HeaderXDebugToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			log.Warnw("debug endpoint access denied",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("invalid debug token"))
			c.Abort()
			return
		}

		c.Next()
	}
}
