package api

import (
	"github.com/gin-gonic/gin"

	"github.com/intelliemail/intelliemail/internal/metrics"
	"github.com/intelliemail/intelliemail/internal/middleware"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternalError  = "internal_error"
	ErrCodeSearchDown     = "search_unavailable"
)

// respondError writes a standardized JSON error response and aborts the
// request, pulling the request ID from the Gin context. The distinct error
// payload lets the UI tell "search is down" apart from "zero results".
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()

	resp := gin.H{
		"code":    code,
		"message": message,
	}

	if rid := c.GetString(middleware.RequestIDKey); rid != "" {
		resp["request_id"] = rid
	}

	c.AbortWithStatusJSON(status, resp)
}
