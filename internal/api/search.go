package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/models"
)

// maxSearchQueryLen caps the length of search query strings.
const maxSearchQueryLen = 2000

// SearchHandler serves the search endpoints.
type SearchHandler struct {
	engine SearchService
	log    *logrus.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(engine SearchService, log *logrus.Logger) *SearchHandler {
	return &SearchHandler{engine: engine, log: log}
}

// Search handles GET /api/search. An empty query is a valid request and
// returns an empty list; a store failure returns an explicit error payload
// so callers can distinguish "nothing matched" from "search is down".
func (h *SearchHandler) Search(c *gin.Context) {
	ownerID := getOwnerID(c)
	if ownerID == 0 {
		return
	}

	q := c.Query("q")
	if len(q) > maxSearchQueryLen {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "query parameter q exceeds maximum length")

		return
	}

	opts := models.SearchOptions{
		Limit:       parseInt(c.DefaultQuery("limit", "20"), 20),
		UseLexical:  parseBool(c.DefaultQuery("lexical", "true"), true),
		UseSemantic: parseBool(c.DefaultQuery("semantic", "true"), true),
	}

	results, err := h.engine.Search(c.Request.Context(), ownerID, q, opts)
	if err != nil {
		h.log.WithError(err).Error("search failed")
		respondError(c, http.StatusServiceUnavailable, ErrCodeSearchDown, "search is unavailable")

		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

// Similar handles GET /api/entities/:type/:id/similar — "find entities like
// this one" by embedding proximity.
func (h *SearchHandler) Similar(c *gin.Context) {
	ownerID := getOwnerID(c)
	if ownerID == 0 {
		return
	}

	entityType, entityID, ok := entityParams(c)
	if !ok {
		return
	}

	limit := parseInt(c.DefaultQuery("limit", "10"), 10)

	results, err := h.engine.Similar(c.Request.Context(), ownerID, entityType, entityID, limit)

	switch {
	case errors.Is(err, models.ErrEntityNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "entity not found")

		return
	case errors.Is(err, models.ErrNoEmbedding):
		respondError(c, http.StatusConflict, ErrCodeInvalidRequest, "entity has no embedding yet")

		return
	case err != nil:
		h.log.WithError(err).Error("similarity lookup failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

// entityParams parses the :type and :id route segments.
func entityParams(c *gin.Context) (models.EntityType, int64, bool) {
	entityType, err := models.ParseEntityType(c.Param("type"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "entity type must be email or task")

		return "", 0, false
	}

	entityID := int64(parseInt(c.Param("id"), 0))
	if entityID <= 0 {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "entity id must be a positive integer")

		return "", 0, false
	}

	return entityType, entityID, true
}
