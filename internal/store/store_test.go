package store_test

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/db"
	"github.com/intelliemail/intelliemail/internal/db/migrations"
	"github.com/intelliemail/intelliemail/internal/dbpool"
	"github.com/intelliemail/intelliemail/internal/models"
	"github.com/intelliemail/intelliemail/internal/store"
)

// testDimensions matches the vector column width created by the initial
// migration.
const testDimensions = 768

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var (
	sharedEnv *testEnv
	ownerSeq  int64 = 1000
	ownerMu   sync.Mutex
)

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// setupTestBase creates a Base plus a fresh owner ID whose rows are cleaned
// up after the test. Owner isolation keeps tests independent without
// truncating shared tables.
func setupTestBase(t *testing.T) (store.Base, int64) {
	t.Helper()

	env := getTestEnv(t)

	ownerMu.Lock()
	ownerSeq++
	ownerID := ownerSeq
	ownerMu.Unlock()

	t.Cleanup(func() {
		cleanCtx := context.Background()
		env.pool.Exec(cleanCtx, "DELETE FROM emails WHERE owner_id = $1", ownerID) //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM tasks WHERE owner_id = $1", ownerID)  //nolint:errcheck // best-effort cleanup
	})

	return store.Base{Pool: env.pool, Log: env.log}, ownerID
}

// insertEmail inserts a test email and returns its ID.
func insertEmail(t *testing.T, base store.Base, ownerID int64, subject, body string) int64 {
	t.Helper()

	var id int64

	err := base.Pool.QueryRow(context.Background(),
		"INSERT INTO emails (owner_id, subject, body) VALUES ($1, $2, $3) RETURNING id",
		ownerID, subject, body,
	).Scan(&id)
	if err != nil {
		t.Fatalf("inserting test email: %v", err)
	}

	return id
}

// insertTask inserts a test task and returns its ID.
func insertTask(t *testing.T, base store.Base, ownerID int64, title, description string) int64 {
	t.Helper()

	var id int64

	err := base.Pool.QueryRow(context.Background(),
		"INSERT INTO tasks (owner_id, title, description) VALUES ($1, $2, $3) RETURNING id",
		ownerID, title, description,
	).Scan(&id)
	if err != nil {
		t.Fatalf("inserting test task: %v", err)
	}

	return id
}

// randomVector returns a deterministic pseudo-random unit-ish vector; seed
// controls similarity between vectors in a test.
func randomVector(seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	vec := make([]float32, testDimensions)

	for i := range vec {
		vec[i] = rng.Float32() - 0.5
	}

	return vec
}

// hitIDs extracts entity IDs from lexical hits in rank order.
func hitIDs(hits []models.LexicalHit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.EntityID
	}

	return ids
}
