package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/intelliemail/intelliemail/internal/models"
)

func newTestEngine(lexical *mockLexicalSearcher, vectors *mockVectorSearcher, embedder *mockEmbedder) *SearchEngine {
	return NewSearchEngine(lexical, vectors, embedder, testLogger(), 5*time.Second)
}

func emptyLexical() *mockLexicalSearcher {
	return &mockLexicalSearcher{
		search: func(_ context.Context, _ int64, _ models.EntityType, _ models.QueryForms, _ int) ([]models.LexicalHit, error) {
			return nil, nil
		},
	}
}

func emptyVectors() *mockVectorSearcher {
	return &mockVectorSearcher{
		query: func(_ context.Context, _ int64, _ models.EntityType, _ []float32, _ int, _ int64) ([]models.VectorHit, error) {
			return nil, nil
		},
	}
}

func workingEmbedder() *mockEmbedder {
	return &mockEmbedder{
		embed: func(_ context.Context, _ string) ([]float32, error) {
			return []float32{0.1, 0.2, 0.3}, nil
		},
	}
}

func TestSearch_EmptyQueryMakesNoStoreCalls(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		lexical := emptyLexical()
		vectors := emptyVectors()
		embedder := workingEmbedder()
		engine := newTestEngine(lexical, vectors, embedder)

		results, err := engine.Search(context.Background(), 1, raw,
			models.SearchOptions{Limit: 10, UseLexical: true, UseSemantic: true})
		if err != nil {
			t.Fatalf("Search(%q): %v", raw, err)
		}

		if len(results) != 0 {
			t.Errorf("Search(%q) = %d results, want 0", raw, len(results))
		}

		if lexical.callCount() != 0 || vectors.callCount() != 0 || embedder.callCount() != 0 {
			t.Errorf("Search(%q) touched stores: lexical=%d vectors=%d embedder=%d",
				raw, lexical.callCount(), vectors.callCount(), embedder.callCount())
		}
	}
}

func TestSearch_BothModesDisabled(t *testing.T) {
	lexical := emptyLexical()
	vectors := emptyVectors()
	engine := newTestEngine(lexical, vectors, workingEmbedder())

	results, err := engine.Search(context.Background(), 1, "budget", models.SearchOptions{Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 0 || lexical.callCount() != 0 || vectors.callCount() != 0 {
		t.Error("disabled search must return empty without store calls")
	}
}

func TestSearch_FusionAssignsMatchKinds(t *testing.T) {
	// Entity 1 found by both sub-searches, entity 2 lexical-only,
	// entity 3 semantic-only. All emails; tasks return nothing.
	lexical := &mockLexicalSearcher{
		search: func(_ context.Context, _ int64, entityType models.EntityType, _ models.QueryForms, _ int) ([]models.LexicalHit, error) {
			if entityType != models.EntityEmail {
				return nil, nil
			}
			return []models.LexicalHit{{EntityID: 1, Rank: 0.5}, {EntityID: 2, Rank: 0.4}}, nil
		},
	}
	vectors := &mockVectorSearcher{
		query: func(_ context.Context, _ int64, entityType models.EntityType, _ []float32, _ int, _ int64) ([]models.VectorHit, error) {
			if entityType != models.EntityEmail {
				return nil, nil
			}
			return []models.VectorHit{{EntityID: 1, Distance: 0.2}, {EntityID: 3, Distance: 0.3}}, nil
		},
	}
	engine := newTestEngine(lexical, vectors, workingEmbedder())

	results, err := engine.Search(context.Background(), 1, "budget report",
		models.SearchOptions{Limit: 10, UseLexical: true, UseSemantic: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %v", len(results), results)
	}

	kinds := make(map[int64]models.MatchKind)
	scores := make(map[int64]float64)
	for _, r := range results {
		if _, dup := kinds[r.EntityID]; dup {
			t.Fatalf("entity %d appears more than once", r.EntityID)
		}
		kinds[r.EntityID] = r.MatchKind
		scores[r.EntityID] = r.Score
	}

	if kinds[1] != models.MatchHybrid {
		t.Errorf("entity 1 kind = %s, want hybrid", kinds[1])
	}
	if kinds[2] != models.MatchLexical {
		t.Errorf("entity 2 kind = %s, want lexical", kinds[2])
	}
	if kinds[3] != models.MatchSemantic {
		t.Errorf("entity 3 kind = %s, want semantic", kinds[3])
	}

	// Hybrid score is the weighted combination of both components.
	lexNorm := 0.5 / 1.5
	sem := 1 - 0.2
	want := lexicalWeight*lexNorm + semanticWeight*sem
	if math.Abs(scores[1]-want) > 1e-9 {
		t.Errorf("hybrid score = %v, want %v", scores[1], want)
	}
}

func TestSearch_FusionMonotonicity(t *testing.T) {
	score := func(lex, sem float64) float64 {
		results := fuseResults(
			map[entityKey]float64{{models.EntityEmail, 1}: lex},
			map[entityKey]float64{{models.EntityEmail, 1}: sem},
		)
		return results[0].Score
	}

	base := score(0.5, 0.5)
	if score(0.6, 0.5) <= base {
		t.Error("raising the lexical component must not decrease the fused score")
	}
	if score(0.5, 0.6) <= base {
		t.Error("raising the semantic component must not decrease the fused score")
	}
}

func TestSearch_DegradesToLexicalWhenEmbedderFails(t *testing.T) {
	lexical := &mockLexicalSearcher{
		search: func(_ context.Context, _ int64, entityType models.EntityType, _ models.QueryForms, _ int) ([]models.LexicalHit, error) {
			if entityType != models.EntityEmail {
				return nil, nil
			}
			return []models.LexicalHit{{EntityID: 1, Rank: 0.5}}, nil
		},
	}
	vectors := emptyVectors()
	embedder := &mockEmbedder{
		embed: func(_ context.Context, _ string) ([]float32, error) {
			return nil, models.ErrProviderUnavailable
		},
	}
	engine := newTestEngine(lexical, vectors, embedder)

	results, err := engine.Search(context.Background(), 1, "budget",
		models.SearchOptions{Limit: 10, UseLexical: true, UseSemantic: true})
	if err != nil {
		t.Fatalf("Search must not fail when only the embedder is down: %v", err)
	}

	if len(results) != 1 || results[0].MatchKind != models.MatchLexical {
		t.Fatalf("expected one lexical result, got %v", results)
	}

	if vectors.callCount() != 0 {
		t.Error("vector store must not be queried when embedding fails")
	}
}

func TestSearch_LexicalStoreFailureIsFatal(t *testing.T) {
	storeErr := errors.New("connection refused")
	lexical := &mockLexicalSearcher{
		search: func(_ context.Context, _ int64, _ models.EntityType, _ models.QueryForms, _ int) ([]models.LexicalHit, error) {
			return nil, storeErr
		},
	}
	engine := newTestEngine(lexical, emptyVectors(), workingEmbedder())

	_, err := engine.Search(context.Background(), 1, "budget",
		models.SearchOptions{Limit: 10, UseLexical: true, UseSemantic: true})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestSearch_DeterministicTieOrdering(t *testing.T) {
	lexical := &mockLexicalSearcher{
		search: func(_ context.Context, _ int64, entityType models.EntityType, _ models.QueryForms, _ int) ([]models.LexicalHit, error) {
			if entityType != models.EntityEmail {
				return nil, nil
			}
			// Identical ranks: ties must break by entity id ascending.
			return []models.LexicalHit{{EntityID: 9, Rank: 0.5}, {EntityID: 3, Rank: 0.5}, {EntityID: 7, Rank: 0.5}}, nil
		},
	}
	engine := newTestEngine(lexical, emptyVectors(), workingEmbedder())

	for i := 0; i < 5; i++ {
		results, err := engine.Search(context.Background(), 1, "budget",
			models.SearchOptions{Limit: 10, UseLexical: true})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}

		if len(results) != 3 || results[0].EntityID != 3 || results[1].EntityID != 7 || results[2].EntityID != 9 {
			t.Fatalf("unstable tie ordering: %v", results)
		}
	}
}

func TestSearch_LimitTruncates(t *testing.T) {
	lexical := &mockLexicalSearcher{
		search: func(_ context.Context, _ int64, entityType models.EntityType, _ models.QueryForms, _ int) ([]models.LexicalHit, error) {
			if entityType != models.EntityEmail {
				return nil, nil
			}
			hits := make([]models.LexicalHit, 10)
			for i := range hits {
				hits[i] = models.LexicalHit{EntityID: int64(i + 1), Rank: float64(10-i) * 0.1}
			}
			return hits, nil
		},
	}
	engine := newTestEngine(lexical, emptyVectors(), workingEmbedder())

	results, err := engine.Search(context.Background(), 1, "budget",
		models.SearchOptions{Limit: 3, UseLexical: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// Highest-ranked first.
	if results[0].EntityID != 1 {
		t.Errorf("top result = %d, want 1", results[0].EntityID)
	}
}

func TestSimilar(t *testing.T) {
	stored := []float32{0.1, 0.2}
	vectors := &mockVectorSearcher{
		getEmbedding: func(_ context.Context, ownerID int64, _ models.EntityType, entityID int64) ([]float32, error) {
			if ownerID != 1 || entityID != 5 {
				return nil, models.ErrEntityNotFound
			}
			return stored, nil
		},
		query: func(_ context.Context, _ int64, _ models.EntityType, vec []float32, _ int, excludeID int64) ([]models.VectorHit, error) {
			if excludeID != 5 {
				return nil, errors.New("query must exclude the reference entity")
			}
			return []models.VectorHit{{EntityID: 8, Distance: 0.1}}, nil
		},
	}
	engine := newTestEngine(emptyLexical(), vectors, workingEmbedder())

	results, err := engine.Similar(context.Background(), 1, models.EntityEmail, 5, 10)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}

	if len(results) != 1 || results[0].EntityID != 8 || results[0].MatchKind != models.MatchSemantic {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestSimilar_NoEmbedding(t *testing.T) {
	vectors := &mockVectorSearcher{
		getEmbedding: func(_ context.Context, _ int64, _ models.EntityType, _ int64) ([]float32, error) {
			return nil, models.ErrNoEmbedding
		},
	}
	engine := newTestEngine(emptyLexical(), vectors, workingEmbedder())

	_, err := engine.Similar(context.Background(), 1, models.EntityEmail, 5, 10)
	if !errors.Is(err, models.ErrNoEmbedding) {
		t.Fatalf("expected ErrNoEmbedding, got %v", err)
	}
}
