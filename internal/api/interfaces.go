// Package api provides the HTTP handlers for the search subsystem.
package api

import (
	"context"

	"github.com/intelliemail/intelliemail/internal/models"
)

// SearchService is the engine surface the search handlers depend on.
type SearchService interface {
	Search(ctx context.Context, ownerID int64, rawQuery string, opts models.SearchOptions) ([]models.SearchResult, error)
	Similar(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64, limit int) ([]models.SearchResult, error)
}

// BackfillService triggers embedding backfill batches.
type BackfillService interface {
	RunBatch(ctx context.Context, entityType models.EntityType, ownerID int64, batchSize int) (models.BackfillStats, error)
	Running() bool
}

// ReindexService invalidates embeddings after external text changes.
type ReindexService interface {
	NotifyTextChanged(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error
}
