// Package models defines the shared domain types for the search subsystem.
package models

import "fmt"

// EntityType identifies which searchable corpus a record belongs to.
type EntityType string

// The two entity types the system indexes. Every search covers both.
const (
	EntityEmail EntityType = "email"
	EntityTask  EntityType = "task"
)

// AllEntityTypes lists every searchable corpus, in the order search
// results iterate them.
var AllEntityTypes = []EntityType{EntityEmail, EntityTask}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return t == EntityEmail || t == EntityTask
}

// ParseEntityType converts a string (e.g. from a URL segment) to an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
	}

	return t, nil
}

// RawText carries the two text fields of an entity. Primary is the
// subject/title and is always weighted higher than Secondary (body/description)
// in both the lexical index and the embedding input.
type RawText struct {
	Primary   string
	Secondary string
}

// Empty reports whether the entity has no usable text at all.
func (r RawText) Empty() bool {
	return r.Primary == "" && r.Secondary == ""
}

// BackfillCandidate is an entity row selected for embedding generation:
// it has a NULL embedding and enough metadata to prepare its text.
type BackfillCandidate struct {
	ID      int64
	OwnerID int64
	Text    RawText
}

// BackfillStats summarizes one backfill batch run.
//
// Skipped counts items whose text was too short to embed; they were never
// sent to the provider. Failed counts per-item errors (provider or store);
// a failed item never aborts the batch.
type BackfillStats struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}
