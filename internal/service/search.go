package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/intelliemail/intelliemail/internal/metrics"
	"github.com/intelliemail/intelliemail/internal/models"
)

// Score fusion weights. Lexical is the primary, typo-tolerant anchor and
// semantic the recall-boosting secondary signal: exact keyword matches are
// higher-precision for this domain than embedding similarity alone. Both
// weights are positive, so the fused score is monotonic in each component.
const (
	lexicalWeight  = 0.7
	semanticWeight = 0.3
)

const defaultSearchLimit = 20

// LexicalSearcher is the lexical index dependency of the engine.
type LexicalSearcher interface {
	Search(ctx context.Context, ownerID int64, entityType models.EntityType, query models.QueryForms, limit int) ([]models.LexicalHit, error)
}

// VectorSearcher is the vector index dependency of the engine.
type VectorSearcher interface {
	Query(ctx context.Context, ownerID int64, entityType models.EntityType, vec []float32, k int, excludeID int64) ([]models.VectorHit, error)
	GetEmbedding(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64) ([]float32, error)
}

// Embedder generates a canonical-dimensionality vector from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchEngine fuses lexical and semantic retrieval into one ranked result
// list. It holds no per-request mutable state, so concurrent searches never
// interfere.
type SearchEngine struct {
	lexical  LexicalSearcher
	vectors  VectorSearcher
	embedder Embedder
	log      *logrus.Logger
	timeout  time.Duration
}

// NewSearchEngine creates a SearchEngine with the given overall per-request
// deadline.
func NewSearchEngine(lexical LexicalSearcher, vectors VectorSearcher, embedder Embedder, log *logrus.Logger, timeout time.Duration) *SearchEngine {
	return &SearchEngine{
		lexical:  lexical,
		vectors:  vectors,
		embedder: embedder,
		log:      log,
		timeout:  timeout,
	}
}

// entityKey identifies one entity across both result sets during fusion.
type entityKey struct {
	entityType models.EntityType
	entityID   int64
}

// Search runs the hybrid retrieval pipeline for one owner. The lexical and
// semantic sub-searches are issued concurrently across both entity types;
// semantic failure or timeout degrades to lexical-only results, while a
// lexical store failure propagates as an error (there is no degraded mode
// once the primary store is unreachable).
//
// An empty or unusable query is a valid request: it returns an empty list
// with no store calls made.
func (e *SearchEngine) Search(ctx context.Context, ownerID int64, rawQuery string, opts models.SearchOptions) ([]models.SearchResult, error) {
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	if !opts.UseLexical && !opts.UseSemantic {
		return []models.SearchResult{}, nil
	}

	query, err := BuildQuery(rawQuery)
	if errors.Is(err, models.ErrEmptyQuery) {
		return []models.SearchResult{}, nil
	}

	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		lexScores map[entityKey]float64
		semScores map[entityKey]float64
		semErr    error
	)

	g, gctx := errgroup.WithContext(ctx)

	if opts.UseLexical {
		g.Go(func() error {
			scores, err := e.lexicalScores(gctx, ownerID, query, limit)
			if err != nil {
				return err
			}

			lexScores = scores

			return nil
		})
	}

	if opts.UseSemantic {
		g.Go(func() error {
			// Semantic errors never fail the search; they are recorded and
			// the engine proceeds lexical-only.
			scores, err := e.semanticScores(gctx, ownerID, query.EmbeddingInput, limit)
			if err != nil {
				semErr = err

				return nil
			}

			semScores = scores

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.SearchesTotal.WithLabelValues(searchMode(opts), "error").Inc()

		return nil, fmt.Errorf("lexical search: %w", err)
	}

	if semErr != nil {
		metrics.SemanticDegradedTotal.Inc()
		e.log.WithError(semErr).Warn("semantic search degraded to lexical-only")
	}

	results := fuseResults(lexScores, semScores)

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}

		if results[i].EntityType != results[j].EntityType {
			return results[i].EntityType < results[j].EntityType
		}

		return results[i].EntityID < results[j].EntityID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	metrics.SearchesTotal.WithLabelValues(searchMode(opts), "success").Inc()

	return results, nil
}

// Similar returns the k entities of the given type nearest to an existing
// entity's embedding, excluding the entity itself. The reference entity must
// belong to ownerID and already have an embedding.
func (e *SearchEngine) Similar(ctx context.Context, ownerID int64, entityType models.EntityType, entityID int64, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.vectors.GetEmbedding(ctx, ownerID, entityType, entityID)
	if err != nil {
		return nil, err
	}

	hits, err := e.vectors.Query(ctx, ownerID, entityType, vec, limit, entityID)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.SearchResult{
			EntityID:   h.EntityID,
			EntityType: entityType,
			Score:      1 - h.Distance,
			MatchKind:  models.MatchSemantic,
		})
	}

	return results, nil
}

// lexicalScores runs the lexical sub-search over both entity types and
// normalizes each raw rank into (0, 1) via rank/(1+rank), a monotonic
// transform that keeps lexical and semantic scores on comparable scales.
func (e *SearchEngine) lexicalScores(ctx context.Context, ownerID int64, query models.QueryForms, limit int) (map[entityKey]float64, error) {
	scores := make(map[entityKey]float64)

	for _, entityType := range models.AllEntityTypes {
		hits, err := e.lexical.Search(ctx, ownerID, entityType, query, limit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entityType, err)
		}

		for _, h := range hits {
			scores[entityKey{entityType, h.EntityID}] = h.Rank / (1 + h.Rank)
		}
	}

	return scores, nil
}

// semanticScores embeds the query inline (query-time embedding, distinct
// from the batch backfill path) and searches both vector indexes, converting
// cosine distance to similarity.
func (e *SearchEngine) semanticScores(ctx context.Context, ownerID int64, embeddingInput string, limit int) (map[entityKey]float64, error) {
	vec, err := e.embedder.Embed(ctx, embeddingInput)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scores := make(map[entityKey]float64)

	for _, entityType := range models.AllEntityTypes {
		hits, err := e.vectors.Query(ctx, ownerID, entityType, vec, limit, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entityType, err)
		}

		for _, h := range hits {
			scores[entityKey{entityType, h.EntityID}] = 1 - h.Distance
		}
	}

	return scores, nil
}

// fuseResults merges the two score maps. An entity found by only one
// sub-search keeps its score and kind; an entity found by both becomes a
// hybrid with a weighted sum, lexical weighted higher.
func fuseResults(lexScores, semScores map[entityKey]float64) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(lexScores)+len(semScores))

	for key, lex := range lexScores {
		if sem, ok := semScores[key]; ok {
			results = append(results, models.SearchResult{
				EntityID:   key.entityID,
				EntityType: key.entityType,
				Score:      lexicalWeight*lex + semanticWeight*sem,
				MatchKind:  models.MatchHybrid,
			})

			continue
		}

		results = append(results, models.SearchResult{
			EntityID:   key.entityID,
			EntityType: key.entityType,
			Score:      lex,
			MatchKind:  models.MatchLexical,
		})
	}

	for key, sem := range semScores {
		if _, ok := lexScores[key]; ok {
			continue // already fused above
		}

		results = append(results, models.SearchResult{
			EntityID:   key.entityID,
			EntityType: key.entityType,
			Score:      sem,
			MatchKind:  models.MatchSemantic,
		})
	}

	return results
}

func searchMode(opts models.SearchOptions) string {
	switch {
	case opts.UseLexical && opts.UseSemantic:
		return "hybrid"
	case opts.UseLexical:
		return "lexical"
	default:
		return "semantic"
	}
}
