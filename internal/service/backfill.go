package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/metrics"
	"github.com/intelliemail/intelliemail/internal/models"
)

// minEmbedTextLen is the minimum prepared-text length worth sending to the
// embedding provider; shorter items are counted as skipped.
const minEmbedTextLen = 8

// BackfillSource selects entities that still need an embedding.
type BackfillSource interface {
	ListMissingEmbeddings(ctx context.Context, entityType models.EntityType, ownerID int64, limit int) ([]models.BackfillCandidate, error)
}

// EmbeddingWriter persists a generated embedding.
type EmbeddingWriter interface {
	UpsertEmbedding(ctx context.Context, entityType models.EntityType, entityID int64, vec []float32) error
}

// Backfiller finds entities lacking an embedding and processes them in
// bounded batches. It is schedule-agnostic: an external ticker invokes
// RunBatch periodically.
//
// At most one run is in flight at a time, enforced by an in-memory flag.
// That is sufficient for a single-process deployment; a horizontally scaled
// deployment would need a distributed lock instead.
type Backfiller struct {
	source      BackfillSource
	writer      EmbeddingWriter
	embedder    Embedder
	log         *logrus.Logger
	itemTimeout time.Duration
	dimensions  int

	running atomic.Bool
}

// NewBackfiller creates a Backfiller. itemTimeout bounds each provider call
// so one slow item cannot stall the batch; an elapsed timeout counts as that
// item's failure, never the batch's.
func NewBackfiller(source BackfillSource, writer EmbeddingWriter, embedder Embedder, log *logrus.Logger, itemTimeout time.Duration, dimensions int) *Backfiller {
	return &Backfiller{
		source:      source,
		writer:      writer,
		embedder:    embedder,
		log:         log,
		itemTimeout: itemTimeout,
		dimensions:  dimensions,
	}
}

// Running reports whether a batch is currently in flight.
func (b *Backfiller) Running() bool {
	return b.running.Load()
}

// RunBatch processes up to batchSize entities of one type that have a NULL
// embedding, oldest-created-first. ownerID = 0 selects across all owners.
//
// If a run is already in flight, the invocation is a no-op and returns
// immediately with zero stats. Per-item processing is isolated: a failed
// item is counted and the batch moves on. Each success is written through
// immediately so partial progress survives a mid-batch crash. Re-running on
// the same data is idempotent — embedded entities are no longer selected.
func (b *Backfiller) RunBatch(ctx context.Context, entityType models.EntityType, ownerID int64, batchSize int) (models.BackfillStats, error) {
	if !b.running.CompareAndSwap(false, true) {
		b.log.Debug("backfill already running, skipping invocation")
		metrics.BackfillRunsTotal.WithLabelValues("busy").Inc()

		return models.BackfillStats{}, nil
	}
	defer b.running.Store(false)

	candidates, err := b.source.ListMissingEmbeddings(ctx, entityType, ownerID, batchSize)
	if err != nil {
		return models.BackfillStats{}, fmt.Errorf("selecting backfill candidates: %w", err)
	}

	var stats models.BackfillStats

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}

		stats.Processed++

		switch b.processItem(ctx, entityType, c) {
		case backfillSuccess:
			stats.Successful++

			metrics.BackfillItemsTotal.WithLabelValues(string(entityType), "success").Inc()
		case backfillSkipped:
			stats.Skipped++

			metrics.BackfillItemsTotal.WithLabelValues(string(entityType), "skipped").Inc()
		case backfillFailed:
			stats.Failed++

			metrics.BackfillItemsTotal.WithLabelValues(string(entityType), "failed").Inc()
		}
	}

	metrics.BackfillRunsTotal.WithLabelValues("completed").Inc()

	if stats.Processed > 0 {
		b.log.WithFields(logrus.Fields{
			"entity_type": entityType,
			"processed":   stats.Processed,
			"successful":  stats.Successful,
			"failed":      stats.Failed,
			"skipped":     stats.Skipped,
		}).Info("backfill batch completed")
	}

	return stats, nil
}

type backfillResult int

const (
	backfillSuccess backfillResult = iota
	backfillSkipped
	backfillFailed
)

// processItem embeds one candidate and writes the vector through. Items
// with degenerate text are skipped without a provider call; a provider
// InvalidInput is substituted with the filler vector so the row stops being
// re-selected every batch.
func (b *Backfiller) processItem(ctx context.Context, entityType models.EntityType, c models.BackfillCandidate) backfillResult {
	prepared := PrepareText(c.Text)
	if len(prepared) < minEmbedTextLen {
		return backfillSkipped
	}

	itemCtx, cancel := context.WithTimeout(ctx, b.itemTimeout)
	defer cancel()

	vec, err := b.embedder.Embed(itemCtx, prepared)

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		vec = FillerVector(b.dimensions)
	case err != nil:
		b.log.WithError(err).WithFields(logrus.Fields{
			"entity_type": entityType,
			"entity_id":   c.ID,
		}).Warn("embedding generation failed")

		return backfillFailed
	}

	if err := b.writer.UpsertEmbedding(itemCtx, entityType, c.ID, vec); err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"entity_type": entityType,
			"entity_id":   c.ID,
		}).Error("storing embedding failed")

		return backfillFailed
	}

	return backfillSuccess
}
