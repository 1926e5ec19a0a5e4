package api_test

import (
	"context"

	"github.com/intelliemail/intelliemail/internal/models"
)

// mockSearchService implements api.SearchService with configurable functions.
type mockSearchService struct {
	searchFn  func(ctx context.Context, ownerID int64, rawQuery string, opts models.SearchOptions) ([]models.SearchResult, error)
	similarFn func(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64, limit int) ([]models.SearchResult, error)
}

func (m *mockSearchService) Search(ctx context.Context, ownerID int64, rawQuery string, opts models.SearchOptions) ([]models.SearchResult, error) {
	return m.searchFn(ctx, ownerID, rawQuery, opts)
}

func (m *mockSearchService) Similar(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64, limit int) ([]models.SearchResult, error) {
	return m.similarFn(ctx, ownerID, entityType, entityID, limit)
}

// mockBackfillService implements api.BackfillService.
type mockBackfillService struct {
	runBatchFn func(ctx context.Context, entityType models.EntityType, ownerID int64, batchSize int) (models.BackfillStats, error)
	running    bool
}

func (m *mockBackfillService) RunBatch(ctx context.Context, entityType models.EntityType, ownerID int64, batchSize int) (models.BackfillStats, error) {
	return m.runBatchFn(ctx, entityType, ownerID, batchSize)
}

func (m *mockBackfillService) Running() bool { return m.running }

// mockReindexService implements api.ReindexService.
type mockReindexService struct {
	notifyFn func(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error
}

func (m *mockReindexService) NotifyTextChanged(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error {
	return m.notifyFn(ctx, ownerID, entityType, entityID)
}

// mockHealthEmbedder implements api.EmbeddingStatus.
type mockHealthEmbedder struct {
	available bool
}

func (m *mockHealthEmbedder) Available() bool { return m.available }
