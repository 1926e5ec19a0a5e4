package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/models"
)

// EmbeddingInvalidator nulls a stored embedding so the backfill regenerates it.
type EmbeddingInvalidator interface {
	InvalidateEmbedding(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error
}

// Reindexer is the inbound hook for sync and extraction collaborators: when
// an entity's text changes, the stored embedding no longer corresponds to it
// and must be invalidated. The lexical document is a generated column, so it
// is already consistent by the time this is called.
type Reindexer struct {
	invalidator EmbeddingInvalidator
	log         *logrus.Logger
}

// NewReindexer creates a Reindexer.
func NewReindexer(invalidator EmbeddingInvalidator, log *logrus.Logger) *Reindexer {
	return &Reindexer{invalidator: invalidator, log: log}
}

// NotifyTextChanged invalidates the entity's embedding. The next backfill
// batch picks the entity up through its NULL embedding. Like every other
// write, the invalidation is scoped to the calling owner.
func (r *Reindexer) NotifyTextChanged(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) error {
	if err := r.invalidator.InvalidateEmbedding(ctx, ownerID, entityType, entityID); err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"entity_type": entityType,
		"entity_id":   entityID,
	}).Debug("embedding invalidated after text change")

	return nil
}
