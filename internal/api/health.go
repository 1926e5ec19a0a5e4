package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intelliemail/intelliemail/internal/dbpool"
)

// HealthHandler serves the health check endpoint.
type HealthHandler struct {
	pool                *dbpool.Pool
	embedder            EmbeddingStatus
	version             string
	startTime           time.Time
	embeddingDimensions int
}

// EmbeddingStatus is the passive availability view the health probe reads.
// It must not call a backend: liveness pollers hit /health constantly, and
// probe traffic must neither load the provider nor feed its breaker.
type EmbeddingStatus interface {
	Available() bool
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(pool *dbpool.Pool, embedder EmbeddingStatus, version string, embeddingDimensions int) *HealthHandler {
	return &HealthHandler{
		pool:                pool,
		embedder:            embedder,
		version:             version,
		startTime:           time.Now(),
		embeddingDimensions: embeddingDimensions,
	}
}

type healthResponse struct {
	Status              string  `json:"status"`
	Version             string  `json:"version"`
	Database            string  `json:"database"`
	Embeddings          string  `json:"embeddings"`
	EmbeddingDimensions int     `json:"embedding_dimensions"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// Health handles GET /health. Database unavailability is degraded status;
// embedding unavailability is reported but non-fatal, matching the search
// path's lexical-only degradation.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := healthResponse{
		Status:              "ok",
		Version:             h.version,
		Database:            "connected",
		Embeddings:          "available",
		EmbeddingDimensions: h.embeddingDimensions,
		UptimeSeconds:       time.Since(h.startTime).Seconds(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.pool == nil || h.pool.HealthCheck(ctx) != nil {
		resp.Database = "disconnected"
		resp.Status = "degraded"
	}

	if h.embedder == nil || !h.embedder.Available() {
		resp.Embeddings = "unavailable"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
