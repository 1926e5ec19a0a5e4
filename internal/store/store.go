// Package store provides focused, single-concern data access stores for the
// search subsystem.
//
// Each store owns one retrieval model (lexical, vector) and embeds shared
// helpers via the Base struct. Every query is scoped by owner_id at
// construction time — there is no cross-user read path in this package.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/dbpool"
	"github.com/intelliemail/intelliemail/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores. Embed this in each
// store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// entityTable maps an entity type onto its table and text columns. Table and
// column names only ever come from this fixed map, so interpolating them into
// SQL is safe.
type entityTable struct {
	name         string
	primaryCol   string // subject/title, weight A in the lexical index
	secondaryCol string // body/description, weight C
}

var entityTables = map[models.EntityType]entityTable{
	models.EntityEmail: {name: "emails", primaryCol: "subject", secondaryCol: "body"},
	models.EntityTask:  {name: "tasks", primaryCol: "title", secondaryCol: "description"},
}

func tableFor(t models.EntityType) (entityTable, error) {
	tbl, ok := entityTables[t]
	if !ok {
		return entityTable{}, fmt.Errorf("%w: %q", models.ErrUnknownEntityType, t)
	}

	return tbl, nil
}
