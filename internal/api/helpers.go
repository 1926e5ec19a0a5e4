package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// OwnerIDHeader carries the authenticated user's id. Authentication itself
// is handled upstream of this subsystem; every handler scopes its work to
// this owner.
const OwnerIDHeader = "X-User-ID"

// getOwnerID extracts and validates the owner id header. On failure it
// writes the error response and returns 0; callers must return immediately
// when 0 comes back.
func getOwnerID(c *gin.Context) int64 {
	raw := c.GetHeader(OwnerIDHeader)
	if raw == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, OwnerIDHeader+" header is required")

		return 0
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, OwnerIDHeader+" must be a positive integer")

		return 0
	}

	return id
}

// parseInt parses a query parameter with a fallback default.
func parseInt(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

// parseBool parses a query parameter flag with a fallback default.
func parseBool(raw string, fallback bool) bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}
