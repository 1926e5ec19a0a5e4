package service

import (
	"strings"

	"github.com/intelliemail/intelliemail/internal/models"
)

const (
	// maxEmbedChars is the hard character budget for embedding input. It
	// stays comfortably under the provider token ceilings with a safety
	// margin.
	maxEmbedChars = 12000

	// truncationMarker is appended exactly once when the secondary text was
	// cut, so downstream consumers and tests can detect truncation.
	truncationMarker = "[content truncated]"
)

// PrepareText builds the embedding input from an entity's two text fields.
// The fields are concatenated with labeled separators so their semantics
// stay visible to the embedding model. When the combined text exceeds the
// budget, the primary text is always preserved whole and the secondary text
// is truncated from the end with the truncation marker appended.
//
// Returns "" only when both fields are empty; callers treat that as
// "skip, do not embed".
func PrepareText(text models.RawText) string {
	primary := strings.TrimSpace(text.Primary)
	secondary := strings.TrimSpace(text.Secondary)

	if primary == "" && secondary == "" {
		return ""
	}

	var b strings.Builder

	if primary != "" {
		b.WriteString("Title: ")
		b.WriteString(primary)
	}

	if secondary == "" {
		return b.String()
	}

	if b.Len() > 0 {
		b.WriteString("\n\n")
	}

	b.WriteString("Content: ")

	if b.Len()+len(secondary) <= maxEmbedChars {
		b.WriteString(secondary)

		return b.String()
	}

	keep := maxEmbedChars - b.Len() - len(truncationMarker) - 1
	if keep < 0 {
		keep = 0
	}

	// Slice on a byte budget, then drop any split trailing rune.
	b.WriteString(strings.ToValidUTF8(secondary[:keep], ""))
	b.WriteString(" ")
	b.WriteString(truncationMarker)

	return b.String()
}
