package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/shared/biztime"
	"github.com/happy-observatory/observatory/internal/shared/version"
)

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.String(),
		"time":    biztime.NowUTC(),
	})
}
