package service

import (
	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/metrics"
)

// dimensionEpsilon is the non-zero filler value used for padding and for the
// documented filler vector. Literal zeros are avoided because a zero vector
// degenerates magnitude-based similarity into "similar to everything", and
// because absence of an embedding is represented by NULL, never by zeros.
const dimensionEpsilon = 1e-4

// dimensionTolerance is the band around the canonical dimensionality within
// which a provider vector is padded or truncated rather than discarded.
const dimensionTolerance = 16

// FillerVector returns the documented fallback vector: dim copies of a small
// non-zero epsilon. Substituted when the text to embed is degenerate or a
// provider response is unusable.
func FillerVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = dimensionEpsilon
	}

	return vec
}

// ReconcileDimensionality coerces a provider vector to exactly dim elements.
// It is the single enforcement point for the dimension invariant and is
// invoked exactly once per embedding produced:
//
//   - len == dim: pass through.
//   - len == 2*dim: deterministic even-index subsample (indices 0,2,4,...) —
//     the cheapest deterministic reduction for providers that emit double
//     the configured width.
//   - within tolerance below dim: pad with epsilon to dim.
//   - within tolerance above dim: hard-truncate to dim.
//   - anything else: log and return the filler vector. Never an error — one
//     bad provider response must not abort a batch.
func ReconcileDimensionality(vec []float32, dim int, log *logrus.Logger) []float32 {
	switch {
	case len(vec) == dim:
		return vec

	case len(vec) == 2*dim:
		metrics.DimensionReconciledTotal.WithLabelValues("subsample").Inc()

		out := make([]float32, dim)
		for i := range out {
			out[i] = vec[2*i]
		}

		return out

	case len(vec) >= dim-dimensionTolerance && len(vec) < dim:
		metrics.DimensionReconciledTotal.WithLabelValues("pad").Inc()

		out := make([]float32, dim)
		copy(out, vec)

		for i := len(vec); i < dim; i++ {
			out[i] = dimensionEpsilon
		}

		return out

	case len(vec) > dim && len(vec) <= dim+dimensionTolerance:
		metrics.DimensionReconciledTotal.WithLabelValues("truncate").Inc()

		out := make([]float32, dim)
		copy(out, vec[:dim])

		return out

	default:
		metrics.DimensionReconciledTotal.WithLabelValues("filler").Inc()
		log.WithFields(logrus.Fields{"got": len(vec), "want": dim}).
			Warn("embedding dimensionality wildly mismatched, substituting filler vector")

		return FillerVector(dim)
	}
}
