package models

// MatchKind records which retrieval path produced a search result.
type MatchKind string

// Match kinds. Hybrid is assigned when the same entity surfaced from both
// the lexical and the semantic sub-search; its score is a weighted
// combination of the two component scores, not the max.
const (
	MatchLexical  MatchKind = "lexical"
	MatchSemantic MatchKind = "semantic"
	MatchHybrid   MatchKind = "hybrid"
)

// SearchResult is one entry of the fused, ranked result list. It references
// the entity by id only; hydrating subject lines and bodies is the caller's
// responsibility.
type SearchResult struct {
	EntityID   int64      `json:"entity_id"`
	EntityType EntityType `json:"entity_type"`
	Score      float64    `json:"score"`
	MatchKind  MatchKind  `json:"match_kind"`
}

// SearchOptions control which sub-searches run and how many results return.
type SearchOptions struct {
	Limit       int
	UseLexical  bool
	UseSemantic bool
}

// QueryForms holds the two query representations built from one raw user
// query: a tsquery expression with prefix variants per token for the lexical
// index, and a cleaned string for the embedding model.
type QueryForms struct {
	// LexicalExpr is a to_tsquery expression, e.g. "(budget | budget:*) | (report | report:*)".
	LexicalExpr string
	// Tokens are the cleaned query tokens, used by the trigram fallback scan.
	Tokens []string
	// EmbeddingInput is the whitespace-normalized raw query.
	EmbeddingInput string
	// HasShortToken is true when any token is short enough that stemmed
	// full-text matching alone is unreliable and the trigram fallback
	// should always run.
	HasShortToken bool
}

// LexicalHit is one row of a lexical sub-search: the entity id and its raw
// ts_rank (or trigram similarity, for fallback hits).
type LexicalHit struct {
	EntityID int64
	Rank     float64
}

// VectorHit is one row of a semantic sub-search: the entity id and its
// cosine distance to the query vector (smaller is more similar).
type VectorHit struct {
	EntityID int64
	Distance float64
}
