package service

import (
	"strings"
	"unicode"

	"github.com/intelliemail/intelliemail/internal/models"
)

// shortTokenLen is the token length at or below which stemmed full-text
// matching is unreliable and the trigram fallback should always run.
const shortTokenLen = 3

// BuildQuery turns a raw user query into its two forms: a tsquery expression
// with a prefix variant per token (OR-joined for maximum recall; weighting
// happens in the store's rank function, not here) and a cleaned string for
// the embedding model.
//
// Tokenization splits on anything that is not a letter or digit and drops
// tokens of length <= 1. When no usable tokens remain, ErrEmptyQuery is
// returned; the caller short-circuits to an empty result set without
// querying anything.
func BuildQuery(rawQuery string) (models.QueryForms, error) {
	tokens := tokenize(rawQuery)
	if len(tokens) == 0 {
		return models.QueryForms{}, models.ErrEmptyQuery
	}

	variants := make([]string, len(tokens))
	hasShort := false

	for i, tok := range tokens {
		// Exact term OR prefix variant; to_tsquery stems the exact form,
		// the :* form catches partial words as they are typed.
		variants[i] = "(" + tok + " | " + tok + ":*)"

		// Rune count, matching tokenize: a multi-byte token is no longer
		// than its character count.
		if len([]rune(tok)) <= shortTokenLen {
			hasShort = true
		}
	}

	return models.QueryForms{
		LexicalExpr:    strings.Join(variants, " | "),
		Tokens:         tokens,
		EmbeddingInput: strings.Join(strings.Fields(rawQuery), " "),
		HasShortToken:  hasShort,
	}, nil
}

// tokenize lowercases and splits the query on non-alphanumeric runes,
// dropping tokens of length <= 1. The resulting tokens contain only letters
// and digits, which keeps them safe inside a to_tsquery expression.
func tokenize(raw string) []string {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := fields[:0]

	for _, f := range fields {
		if len([]rune(f)) > 1 {
			tokens = append(tokens, f)
		}
	}

	return tokens
}
