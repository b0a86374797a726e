package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/logger"
)

// Recorder receives one observation per embedding call. Satisfied by *metrics.Metrics.
type Recorder interface {
	ObserveEmbedding(provider string, err error, d time.Duration)
}

// InstrumentedEmbedder wraps an Embedder with logging, metrics and vector validation.
// Every error it returns matches domain.ErrEmbeddingService.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	recorder Recorder
}

// NewInstrumentedEmbedder wraps an embedder. recorder may be nil.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, recorder Recorder,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		recorder: recorder,
	}
}

// Embed delegates to the inner embedder, then rejects unusable vectors.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)
	if err == nil {
		err = domain.ValidateVector(result.Embedding)
	}

	duration := time.Since(start)
	if p.recorder != nil {
		p.recorder.ObserveEmbedding(p.provider, err, duration)
	}

	if err != nil {
		log.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if !errors.Is(err, domain.ErrEmbeddingService) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	log.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
	)

	return result, nil
}
