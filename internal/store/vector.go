package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/intelliemail/intelliemail/internal/models"
)

// VectorStore owns the persisted embedding columns and their ANN indexes.
// It is the last line of defense for the dimension invariant: every write is
// length-checked against the canonical dimensionality, even though upstream
// reconciliation should already have fixed non-conforming vectors.
type VectorStore struct {
	Base
	dimensions int
}

// NewVectorStore creates a VectorStore enforcing the given canonical
// dimensionality.
func NewVectorStore(base Base, dimensions int) *VectorStore {
	return &VectorStore{Base: base, dimensions: dimensions}
}

// Dimensions returns the canonical vector length this store enforces.
func (s *VectorStore) Dimensions() int { return s.dimensions }

// UpsertEmbedding writes the vector for an entity and stamps
// embedding_generated_at. A vector of the wrong length is rejected with
// ErrDimensionMismatch — loudly, since it indicates an upstream
// reconciliation bug.
func (s *VectorStore) UpsertEmbedding(ctx context.Context, entityType models.EntityType, entityID int64, vec []float32) error {
	tbl, err := tableFor(entityType)
	if err != nil {
		return err
	}

	if len(vec) != s.dimensions {
		s.Log.WithFields(map[string]any{
			"entity_type": entityType,
			"entity_id":   entityID,
			"got":         len(vec),
			"want":        s.dimensions,
		}).Error("rejecting embedding write with wrong dimensionality")

		return fmt.Errorf("%w: got %d, want %d", models.ErrDimensionMismatch, len(vec), s.dimensions)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(
		`UPDATE %s SET embedding = $1::vector, embedding_generated_at = now()
		 WHERE id = $2`, tbl.name)

	tag, err := s.Pool.Exec(ctx, sql, formatEmbedding(vec), entityID)
	if err != nil {
		return fmt.Errorf("writing embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrEntityNotFound
	}

	return nil
}

// Query returns the k nearest entities of the given type belonging to
// ownerID, by cosine distance (smaller is more similar). Only rows with a
// non-null embedding are considered. excludeID > 0 removes the query's own
// row for "find similar to me" lookups.
func (s *VectorStore) Query(
	ctx context.Context,
	ownerID int64,
	entityType models.EntityType,
	vec []float32,
	k int,
	excludeID int64,
) ([]models.VectorHit, error) {
	tbl, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	k = clampLimit(k, 10)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(
		`SELECT id, embedding <=> $1::vector AS dist
		 FROM %s
		 WHERE owner_id = $2 AND embedding IS NOT NULL AND ($3 = 0 OR id != $3)
		 ORDER BY dist
		 LIMIT $4`, tbl.name)

	rows, err := s.Pool.Query(ctx, sql, formatEmbedding(vec), ownerID, excludeID, k)
	if err != nil {
		return nil, fmt.Errorf("executing vector query: %w", err)
	}
	defer rows.Close()

	hits := make([]models.VectorHit, 0, k)

	for rows.Next() {
		var h models.VectorHit
		if err := rows.Scan(&h.EntityID, &h.Distance); err != nil {
			return nil, fmt.Errorf("scanning vector hit: %w", err)
		}

		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector hits: %w", err)
	}

	return hits, nil
}

// GetEmbedding returns the stored vector for an entity owned by ownerID, or
// ErrNoEmbedding if it has not been generated yet.
func (s *VectorStore) GetEmbedding(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) ([]float32, error) {
	tbl, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(`SELECT embedding::text FROM %s WHERE id = $1 AND owner_id = $2`, tbl.name)

	var raw *string

	err = s.Pool.QueryRow(ctx, sql, entityID, ownerID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEntityNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading embedding: %w", err)
	}

	if raw == nil {
		return nil, models.ErrNoEmbedding
	}

	vec, err := parseEmbedding(*raw)
	if err != nil {
		return nil, fmt.Errorf("parsing stored embedding: %w", err)
	}

	return vec, nil
}

// ListMissingEmbeddings returns backfill candidates: entities with a NULL
// embedding, oldest-created-first, capped at limit. ownerID = 0 selects
// across all owners.
func (s *VectorStore) ListMissingEmbeddings(
	ctx context.Context,
	entityType models.EntityType,
	ownerID int64,
	limit int,
) ([]models.BackfillCandidate, error) {
	tbl, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	limit = clampLimit(limit, 100)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(
		`SELECT id, owner_id, %s, %s FROM %s
		 WHERE embedding IS NULL AND ($1 = 0 OR owner_id = $1)
		 ORDER BY created_at, id
		 LIMIT $2`, tbl.primaryCol, tbl.secondaryCol, tbl.name)

	rows, err := s.Pool.Query(ctx, sql, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying entities without embeddings: %w", err)
	}
	defer rows.Close()

	var candidates []models.BackfillCandidate

	for rows.Next() {
		var c models.BackfillCandidate
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Text.Primary, &c.Text.Secondary); err != nil {
			return nil, fmt.Errorf("scanning backfill candidate: %w", err)
		}

		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating backfill candidates: %w", err)
	}

	return candidates, nil
}

// InvalidateEmbedding nulls the stored embedding and its timestamp so the
// backfill reprocesses the entity. Called when the entity's text changes;
// the lexical document is a generated column and needs no action here.
// The write is owner-scoped: an entity belonging to another owner is
// ErrEntityNotFound, same as a missing one.
func (s *VectorStore) InvalidateEmbedding(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error {
	tbl, err := tableFor(entityType)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(
		`UPDATE %s SET embedding = NULL, embedding_generated_at = NULL
		 WHERE id = $1 AND owner_id = $2`, tbl.name)

	tag, err := s.Pool.Exec(ctx, sql, entityID, ownerID)
	if err != nil {
		return fmt.Errorf("invalidating embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrEntityNotFound
	}

	return nil
}
