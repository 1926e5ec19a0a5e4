// Package service implements the hybrid search and embedding pipeline:
// query building, result fusion, embedding generation, and batch backfill.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/config"
	"github.com/intelliemail/intelliemail/internal/metrics"
	"github.com/intelliemail/intelliemail/internal/models"
)

// Backend is one embedding provider implementation (hosted or local).
type Backend interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Circuit breaker tuning for the primary backend.
const (
	breakerFailureThreshold = 5
	breakerCooldown         = 30 * time.Second

	primaryRetryDelay = 200 * time.Millisecond
)

// errBreakerOpen short-circuits primary backend calls while it is failing.
var errBreakerOpen = errors.New("primary embedding backend circuit open")

// breaker is a minimal closed/open/half-open circuit breaker. While open,
// primary calls are skipped and the provider goes straight to the fallback.
type breaker struct {
	mu            sync.Mutex
	state         int // 0 closed, 1 open, 2 half-open
	failures      int
	lastFailureAt time.Time
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case 1:
		if time.Since(b.lastFailureAt) >= breakerCooldown {
			b.state = 2 // probe with one request

			return nil
		}

		return errBreakerOpen
	case 2:
		// Already probing: reject additional requests.
		return errBreakerOpen
	}

	return nil
}

// open reports whether the breaker is currently rejecting primary calls.
func (b *breaker) open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state == 1 && time.Since(b.lastFailureAt) < breakerCooldown
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = 0
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureAt = time.Now()

	if b.failures >= breakerFailureThreshold || b.state == 2 {
		b.state = 1
	}
}

// EmbeddingProvider produces canonical-dimensionality vectors from text. It
// fronts a primary and a fallback backend: a transient primary failure is
// retried once, then the fallback is tried once, before ErrProviderUnavailable
// surfaces. Every vector returned has passed through ReconcileDimensionality.
type EmbeddingProvider struct {
	primary    Backend
	fallback   Backend // may be nil
	dimensions int
	log        *logrus.Logger
	breaker    breaker
}

// NewEmbeddingProvider wires the primary and optional fallback backends.
func NewEmbeddingProvider(primary, fallback Backend, dimensions int, log *logrus.Logger) *EmbeddingProvider {
	return &EmbeddingProvider{
		primary:    primary,
		fallback:   fallback,
		dimensions: dimensions,
		log:        log,
	}
}

// NewEmbeddingProviderFromConfig builds the provider from configuration:
// the configured backend is primary and the other one is the fallback. A
// hosted fallback is only wired when an API key is present.
func NewEmbeddingProviderFromConfig(cfg *config.Config, log *logrus.Logger) *EmbeddingProvider {
	local := newOllamaBackend(cfg.OllamaURL, cfg.EmbeddingModel)

	var hosted Backend
	if cfg.OpenAIAPIKey.Value() != "" {
		hosted = newOpenAIBackend(cfg.OpenAIAPIKey.Value(), cfg.OpenAIBaseURL, cfg.EmbeddingModel)
	}

	if cfg.EmbeddingProvider == config.ProviderHosted {
		return NewEmbeddingProvider(hosted, local, cfg.EmbeddingDimensions, log)
	}

	return NewEmbeddingProvider(local, hosted, cfg.EmbeddingDimensions, log)
}

// Dimensions returns the canonical vector length.
func (p *EmbeddingProvider) Dimensions() int { return p.dimensions }

// Available reports whether the provider expects Embed calls to succeed,
// without touching a backend: false only when no backend is configured or
// the primary's breaker is open with no fallback to fall through to.
// Health probes read this instead of embedding, so a frequent poller
// generates no provider traffic and cannot trip the breaker itself.
func (p *EmbeddingProvider) Available() bool {
	if p.fallback != nil {
		return true
	}

	return p.primary != nil && !p.breaker.open()
}

// Embed produces a vector of exactly the canonical dimensionality for the
// given text. Empty or whitespace-only text returns ErrInvalidInput (callers
// substitute FillerVector rather than propagating it). When both backends
// fail, the error wraps ErrProviderUnavailable.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.ErrInvalidInput
	}

	vec, primaryErr := p.embedPrimary(ctx, text)
	if primaryErr != nil && p.fallback != nil {
		metrics.EmbeddingFallbackTotal.Inc()
		p.log.WithError(primaryErr).WithField("fallback", p.fallback.Name()).
			Warn("primary embedding backend failed, trying fallback")

		var fallbackErr error

		vec, fallbackErr = p.embedWith(ctx, p.fallback, text)
		if fallbackErr != nil {
			return nil, fmt.Errorf("%w: primary: %v, fallback: %v",
				models.ErrProviderUnavailable, primaryErr, fallbackErr)
		}
	} else if primaryErr != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, primaryErr)
	}

	return ReconcileDimensionality(vec, p.dimensions, p.log), nil
}

// embedPrimary calls the primary backend behind the circuit breaker, with
// one retry for transient failures.
func (p *EmbeddingProvider) embedPrimary(ctx context.Context, text string) ([]float32, error) {
	if p.primary == nil {
		return nil, errors.New("no primary backend configured")
	}

	if err := p.breaker.allow(); err != nil {
		return nil, err
	}

	var vec []float32

	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(primaryRetryDelay)), func(ctx context.Context) error {
		var callErr error

		vec, callErr = p.embedWith(ctx, p.primary, text)
		if callErr != nil {
			return retry.RetryableError(callErr)
		}

		return nil
	})
	if err != nil {
		p.breaker.recordFailure()

		return nil, err
	}

	p.breaker.recordSuccess()

	return vec, nil
}

func (p *EmbeddingProvider) embedWith(ctx context.Context, backend Backend, text string) ([]float32, error) {
	vec, err := backend.Embed(ctx, text)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(backend.Name(), "error").Inc()

		return nil, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(backend.Name(), "success").Inc()

	return vec, nil
}
