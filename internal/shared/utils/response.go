package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/shared/errors"
)

// APIResponse is the envelope for every JSON body except 429s.
type APIResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
}

type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RateLimitResponse is the 429 body. Its shape is fixed so clients can read
// retry_after without knowing the envelope.
type RateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retry_after"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data any) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &ErrorInfo{
			Type:    "error",
			Message: message,
		},
	})
}

// ErrorResponseWithError renders an AppError with its own status code.
// Any other error becomes a generic 500 with no internal details.
func ErrorResponseWithError(c *gin.Context, err error) {
	var statusCode int
	var errorInfo ErrorInfo

	if appErr := errors.GetAppError(err); appErr != nil {
		statusCode = appErr.Code
		errorInfo = ErrorInfo{
			Type:    string(appErr.Type),
			Message: appErr.Message,
			Details: appErr.Details,
		}
	} else {
		statusCode = http.StatusInternalServerError
		errorInfo = ErrorInfo{
			Type:    string(errors.ErrorTypeInternal),
			Message: "Internal server error occurred",
		}
	}

	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   &errorInfo,
	})
}

// TooManyRequestsResponse renders err in the fixed 429 shape.
func TooManyRequestsResponse(c *gin.Context, err *errors.AppError, retryAfterSeconds int64) {
	c.JSON(err.Code, RateLimitResponse{
		Error:      http.StatusText(err.Code),
		Message:    err.Message,
		RetryAfter: retryAfterSeconds,
	})
}
