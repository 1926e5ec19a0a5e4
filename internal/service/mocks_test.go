package service

import (
	"context"
	"sync"

	"github.com/intelliemail/intelliemail/internal/models"
)

// mockLexicalSearcher records calls and returns configured responses.
type mockLexicalSearcher struct {
	mu    sync.Mutex
	calls []string

	search func(ctx context.Context, ownerID int64, entityType models.EntityType, query models.QueryForms, limit int) ([]models.LexicalHit, error)
}

func (m *mockLexicalSearcher) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockLexicalSearcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockLexicalSearcher) Search(ctx context.Context, ownerID int64, entityType models.EntityType, query models.QueryForms, limit int) ([]models.LexicalHit, error) {
	m.record("Search")
	return m.search(ctx, ownerID, entityType, query, limit)
}

// mockVectorSearcher records calls and returns configured responses.
type mockVectorSearcher struct {
	mu    sync.Mutex
	calls []string

	query        func(ctx context.Context, ownerID int64, entityType models.EntityType, vec []float32, k int, excludeID int64) ([]models.VectorHit, error)
	getEmbedding func(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) ([]float32, error)
}

func (m *mockVectorSearcher) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockVectorSearcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockVectorSearcher) Query(ctx context.Context, ownerID int64, entityType models.EntityType, vec []float32, k int, excludeID int64) ([]models.VectorHit, error) {
	m.record("Query")
	return m.query(ctx, ownerID, entityType, vec, k, excludeID)
}

func (m *mockVectorSearcher) GetEmbedding(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) ([]float32, error) {
	m.record("GetEmbedding")
	return m.getEmbedding(ctx, ownerID, entityType, entityID)
}

// mockEmbedder returns a configured vector or error.
type mockEmbedder struct {
	mu    sync.Mutex
	calls int

	embed func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.embed(ctx, text)
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockBackfillSource returns configured backfill candidates.
type mockBackfillSource struct {
	list func(ctx context.Context, entityType models.EntityType, ownerID int64, limit int) ([]models.BackfillCandidate, error)
}

func (m *mockBackfillSource) ListMissingEmbeddings(ctx context.Context, entityType models.EntityType, ownerID int64, limit int) ([]models.BackfillCandidate, error) {
	return m.list(ctx, entityType, ownerID, limit)
}

// mockEmbeddingWriter records written embeddings.
type mockEmbeddingWriter struct {
	mu      sync.Mutex
	written map[int64][]float32

	upsert func(ctx context.Context, entityType models.EntityType, entityID int64, vec []float32) error
}

func (m *mockEmbeddingWriter) UpsertEmbedding(ctx context.Context, entityType models.EntityType, entityID int64, vec []float32) error {
	m.mu.Lock()
	if m.written == nil {
		m.written = make(map[int64][]float32)
	}
	m.written[entityID] = vec
	m.mu.Unlock()

	if m.upsert != nil {
		return m.upsert(ctx, entityType, entityID, vec)
	}
	return nil
}

// mockBackend is a configurable embedding backend.
type mockBackend struct {
	mu    sync.Mutex
	calls int

	name  string
	embed func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.embed(ctx, text)
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockInvalidator records invalidated entities with the owner each call
// was scoped to.
type mockInvalidator struct {
	mu          sync.Mutex
	invalidated []int64
	owners      []int64

	invalidate func(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error
}

func (m *mockInvalidator) InvalidateEmbedding(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error {
	m.mu.Lock()
	m.invalidated = append(m.invalidated, entityID)
	m.owners = append(m.owners, ownerID)
	m.mu.Unlock()

	if m.invalidate != nil {
		return m.invalidate(ctx, ownerID, entityType, entityID)
	}
	return nil
}
