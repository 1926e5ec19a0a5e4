package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/intelliemail/intelliemail/internal/models"
)

// minPrimaryHits is the result count below which the trigram fallback scan
// runs in addition to the stemmed full-text query.
const minPrimaryHits = 3

// LexicalStore executes weighted full-text queries with a trigram fallback
// for typo tolerance. The weighted tsvector document itself is a generated
// column (see migrations), so indexing happens in the database on every text
// mutation and can never silently go stale.
type LexicalStore struct {
	Base
}

// NewLexicalStore creates a LexicalStore.
func NewLexicalStore(base Base) *LexicalStore {
	return &LexicalStore{Base: base}
}

// Search runs the two-layer lexical query for one entity type, scoped to
// ownerID:
//
//  1. to_tsquery over the weighted tsvector, ranked by ts_rank — handles
//     stemming and prefix matches.
//  2. When that yields too few hits, or the query carries short tokens that
//     stemmed matching handles poorly, a slower trigram similarity scan over
//     the raw text columns surfaces single-character typos and partial words.
//
// Fallback hits are merged after the primary hits, skipping duplicates.
func (s *LexicalStore) Search(
	ctx context.Context,
	ownerID int64,
	entityType models.EntityType,
	query models.QueryForms,
	limit int,
) ([]models.LexicalHit, error) {
	tbl, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	limit = clampLimit(limit, 20)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	hits, err := s.fullTextSearch(ctx, tbl, ownerID, query.LexicalExpr, limit)
	if err != nil {
		return nil, err
	}

	if len(hits) >= minPrimaryHits && !query.HasShortToken {
		return hits, nil
	}

	fallback, err := s.trigramSearch(ctx, tbl, ownerID, query, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(hits))
	for _, h := range hits {
		seen[h.EntityID] = true
	}

	for _, h := range fallback {
		if len(hits) >= limit {
			break
		}

		if !seen[h.EntityID] {
			hits = append(hits, h)
			seen[h.EntityID] = true
		}
	}

	return hits, nil
}

func (s *LexicalStore) fullTextSearch(
	ctx context.Context,
	tbl entityTable,
	ownerID int64,
	expr string,
	limit int,
) ([]models.LexicalHit, error) {
	sql := fmt.Sprintf(
		`SELECT id, ts_rank(search_vector, to_tsquery('english', $1)) AS rank
		 FROM %s
		 WHERE owner_id = $2 AND search_vector @@ to_tsquery('english', $1)
		 ORDER BY rank DESC, id
		 LIMIT $3`, tbl.name)

	rows, err := s.Pool.Query(ctx, sql, expr, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("executing full-text search: %w", err)
	}
	defer rows.Close()

	hits := make([]models.LexicalHit, 0, limit)

	for rows.Next() {
		var h models.LexicalHit
		if err := rows.Scan(&h.EntityID, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning full-text hit: %w", err)
		}

		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating full-text hits: %w", err)
	}

	return hits, nil
}

// trigramSearch matches the cleaned query against the raw text columns by
// approximate string similarity. The primary column counts full; the
// secondary column is discounted to keep the field weighting consistent with
// the tsvector document.
func (s *LexicalStore) trigramSearch(
	ctx context.Context,
	tbl entityTable,
	ownerID int64,
	query models.QueryForms,
	limit int,
) ([]models.LexicalHit, error) {
	sql := fmt.Sprintf(
		`SELECT id, GREATEST(similarity(%[1]s, $2), similarity(%[2]s, $2) * 0.5) AS rank
		 FROM %[3]s
		 WHERE owner_id = $1
		   AND (%[1]s %% $2
		        OR EXISTS (
		            SELECT 1 FROM unnest($3::text[]) AS tok
		            WHERE %[1]s ILIKE '%%' || tok || '%%' OR %[2]s ILIKE '%%' || tok || '%%'))
		 ORDER BY rank DESC, id
		 LIMIT $4`, tbl.primaryCol, tbl.secondaryCol, tbl.name)

	rows, err := s.Pool.Query(ctx, sql, ownerID, query.EmbeddingInput, query.Tokens, limit)
	if err != nil {
		return nil, fmt.Errorf("executing trigram fallback: %w", err)
	}
	defer rows.Close()

	hits := make([]models.LexicalHit, 0, limit)

	for rows.Next() {
		var h models.LexicalHit
		if err := rows.Scan(&h.EntityID, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning trigram hit: %w", err)
		}

		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trigram hits: %w", err)
	}

	return hits, nil
}

// GetRawText returns the primary and secondary text fields for an entity.
// This is the pull side used when preparing text for embedding.
func (s *LexicalStore) GetRawText(ctx context.Context, entityType models.EntityType, entityID int64) (models.RawText, error) {
	tbl, err := tableFor(entityType)
	if err != nil {
		return models.RawText{}, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE id = $1`, tbl.primaryCol, tbl.secondaryCol, tbl.name)

	var text models.RawText

	err = s.Pool.QueryRow(ctx, sql, entityID).Scan(&text.Primary, &text.Secondary)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RawText{}, models.ErrEntityNotFound
	}

	if err != nil {
		return models.RawText{}, fmt.Errorf("reading entity text: %w", err)
	}

	return text, nil
}
