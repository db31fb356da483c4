package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/application/session/usecases"
	"github.com/happy-observatory/observatory/internal/interfaces/http/middleware"
	"github.com/happy-observatory/observatory/internal/shared/biztime"
	"github.com/happy-observatory/observatory/internal/shared/config"
	"github.com/happy-observatory/observatory/internal/shared/errors"
	"github.com/happy-observatory/observatory/internal/shared/logger"
	"github.com/happy-observatory/observatory/internal/shared/utils"
)

type AuthHandler struct {
	loginUseCase  *usecases.LoginUseCase
	logoutUseCase *usecases.LogoutUseCase
	cookieConfig  config.CookieConfig
	logger        logger.Interface
}

func NewAuthHandler(
	loginUC *usecases.LoginUseCase,
	logoutUC *usecases.LogoutUseCase,
	cookieConfig config.CookieConfig,
	logger logger.Interface,
) *AuthHandler {
	return &AuthHandler{
		loginUseCase:  loginUC,
		logoutUseCase: logoutUC,
		cookieConfig:  cookieConfig,
		logger:        logger,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=128"`
	Password string `json:"password" binding:"required,max=256"`
}

type UserInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

type SessionResponse struct {
	User      UserInfo  `json:"user"`
	JTI       string    `json:"jti"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("username and password are required"))
		return
	}

	result, err := h.loginUseCase.Execute(c.Request.Context(), usecases.LoginCommand{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	maxAge := max(int(result.ExpiresAt.Sub(biztime.NowUTC()).Seconds()), 0)
	utils.SetAccessTokenCookie(c, h.cookieConfig, result.Token, maxAge)

	utils.SuccessResponse(c, http.StatusOK, "login successful", LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      UserInfo{Username: result.Username, Role: result.Role},
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("not authenticated"))
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := h.logoutUseCase.Execute(c.Request.Context(), usecases.LogoutCommand{
		JTI:       claims.ID,
		UserID:    claims.Subject,
		ExpiresAt: expiresAt,
	}); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ClearAccessTokenCookie(c, h.cookieConfig)
	utils.SuccessResponse(c, http.StatusOK, "logged out", nil)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("not authenticated"))
		return
	}

	resp := SessionResponse{
		User: UserInfo{Username: claims.Subject, Role: claims.Role},
		JTI:  claims.ID,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}

	utils.SuccessResponse(c, http.StatusOK, "", resp)
}
