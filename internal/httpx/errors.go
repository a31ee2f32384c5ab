// Package httpx holds the JSON error envelope and the gin middleware shared
// by every API handler.
package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// RespondError aborts the request with the error envelope.
func RespondError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func BadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, CodeInvalidRequest, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	RespondError(c, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(c *gin.Context, message string) {
	RespondError(c, http.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, CodeNotFound, message, nil)
}

func Conflict(c *gin.Context, message string) {
	RespondError(c, http.StatusConflict, CodeConflict, message, nil)
}

func TooManyRequests(c *gin.Context, message string) {
	RespondError(c, http.StatusTooManyRequests, CodeRateLimited, message, nil)
}

func Internal(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, CodeInternal, message, nil)
}

func ServiceUnavailable(c *gin.Context, message string) {
	RespondError(c, http.StatusServiceUnavailable, CodeUnavailable, message, nil)
}

// ValidationFailed reports field-level problems as details.
func ValidationFailed(c *gin.Context, details any) {
	RespondError(c, http.StatusUnprocessableEntity, CodeValidationFailed, "validation failed", details)
}
