package db

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/dbpool"
)

// vectorTable describes one entity table carrying an embedding column.
type vectorTable struct {
	name      string
	indexName string
}

var vectorTables = []vectorTable{
	{name: "emails", indexName: "idx_emails_embedding"},
	{name: "tasks", indexName: "idx_tasks_embedding"},
}

// HNSWParams holds the ANN index construction parameters (recall vs. build
// cost trade-off), exposed through configuration.
type HNSWParams struct {
	M              int
	EfConstruction int
}

// EnsureVectorDimensions checks that each embedding column matches the
// configured canonical dimensionality and alters it (with index rebuild) if
// not. Embeddings with mismatched dimensions are set to NULL so the backfill
// regenerates them. This lets operators change EMBEDDING_DIMENSIONS and have
// the schema adapt on next restart.
func EnsureVectorDimensions(ctx context.Context, pool *dbpool.Pool, log *logrus.Logger, dimensions int, hnsw HNSWParams) error {
	if dimensions < 1 || dimensions > 4096 {
		return fmt.Errorf("embedding dimensions must be between 1 and 4096, got %d", dimensions)
	}

	for _, table := range vectorTables {
		if err := ensureTableDimensions(ctx, pool, log, table, dimensions, hnsw); err != nil {
			return fmt.Errorf("table %s: %w", table.name, err)
		}
	}

	return nil
}

func ensureTableDimensions(
	ctx context.Context,
	pool *dbpool.Pool,
	log *logrus.Logger,
	table vectorTable,
	dimensions int,
	hnsw HNSWParams,
) error {
	var currentType string

	err := pool.QueryRow(ctx,
		`SELECT format_type(a.atttypid, a.atttypmod)
		 FROM pg_attribute a
		 JOIN pg_class c ON c.oid = a.attrelid
		 WHERE c.relname = $1 AND a.attname = 'embedding' AND NOT a.attisdropped`,
		table.name,
	).Scan(&currentType)
	if err != nil {
		return fmt.Errorf("querying embedding column type: %w", err)
	}

	expectedType := fmt.Sprintf("vector(%d)", dimensions)
	if currentType == expectedType {
		log.WithFields(logrus.Fields{"table": table.name, "dimensions": dimensions}).
			Debug("embedding column dimensions match config")

		return nil
	}

	log.WithFields(logrus.Fields{
		"table":    table.name,
		"current":  currentType,
		"expected": expectedType,
	}).Info("embedding column dimensions changed, altering schema")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning dimension alter tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s`, table.indexName)); err != nil {
		return fmt.Errorf("dropping embedding index: %w", err)
	}

	// Mismatched embeddings need re-generation; the backfill picks up NULLs.
	nullSQL := fmt.Sprintf(
		`UPDATE %s SET embedding = NULL, embedding_generated_at = NULL
		 WHERE embedding IS NOT NULL AND vector_dims(embedding) != $1`, table.name)
	if _, err := tx.Exec(ctx, nullSQL, dimensions); err != nil {
		return fmt.Errorf("nulling mismatched embeddings: %w", err)
	}

	alterSQL := fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN embedding TYPE vector(%d)`, table.name, dimensions)
	if _, err := tx.Exec(ctx, alterSQL); err != nil {
		return fmt.Errorf("altering embedding column: %w", err)
	}

	indexSQL := fmt.Sprintf(
		`CREATE INDEX %s ON %s USING hnsw (embedding vector_cosine_ops)
		 WITH (m = %d, ef_construction = %d) WHERE embedding IS NOT NULL`,
		table.indexName, table.name, hnsw.M, hnsw.EfConstruction)
	if _, err := tx.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("recreating embedding index: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing dimension alter: %w", err)
	}

	log.WithFields(logrus.Fields{"table": table.name, "dimensions": dimensions}).
		Info("embedding column dimensions updated")

	return nil
}
