package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/models"
)

// BackfillHandler serves the admin endpoints for embedding maintenance.
type BackfillHandler struct {
	backfill BackfillService
	reindex  ReindexService
	log      *logrus.Logger

	defaultBatchSize int
}

// NewBackfillHandler creates a BackfillHandler.
func NewBackfillHandler(backfill BackfillService, reindex ReindexService, log *logrus.Logger, defaultBatchSize int) *BackfillHandler {
	return &BackfillHandler{
		backfill:         backfill,
		reindex:          reindex,
		log:              log,
		defaultBatchSize: defaultBatchSize,
	}
}

type backfillRequest struct {
	EntityType string `json:"entity_type"`
	BatchSize  int    `json:"batch_size"`
}

// Run handles POST /api/backfill — triggers one batch synchronously. When a
// run is already in flight the response reports busy=true with zero stats.
func (h *BackfillHandler) Run(c *gin.Context) {
	ownerID := getOwnerID(c)
	if ownerID == 0 {
		return
	}

	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	entityType, err := models.ParseEntityType(req.EntityType)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "entity_type must be email or task")

		return
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = h.defaultBatchSize
	}

	busy := h.backfill.Running()

	stats, err := h.backfill.RunBatch(c.Request.Context(), entityType, ownerID, batchSize)
	if err != nil {
		h.log.WithError(err).Error("backfill run failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats, "busy": busy})
}

// Reindex handles POST /api/entities/:type/:id/reindex — the inbound hook
// collaborators call after changing an entity's text.
func (h *BackfillHandler) Reindex(c *gin.Context) {
	ownerID := getOwnerID(c)
	if ownerID == 0 {
		return
	}

	entityType, entityID, ok := entityParams(c)
	if !ok {
		return
	}

	err := h.reindex.NotifyTextChanged(c.Request.Context(), ownerID, entityType, entityID)

	switch {
	case errors.Is(err, models.ErrEntityNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "entity not found")

		return
	case err != nil:
		h.log.WithError(err).Error("reindex failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "embedding invalidated"})
}
