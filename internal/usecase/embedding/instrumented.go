// Package embedding provides decorators around the embedding provider.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/domain"
)

// DefaultMaxAPIBatchSize is the maximum batch size for a single API request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps Embedder with structured logging and batch
// chunking. Transport metrics (requests, duration, tokens) are recorded in
// transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into sub-batches and delegates to the inner embedder.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// embedChunked splits texts into chunks of DefaultMaxAPIBatchSize.
func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	var allEmbeddings [][]float32
	var totalPrompt, totalTokens int

	for offset := 0; offset < len(texts); offset += DefaultMaxAPIBatchSize {
		end := offset + DefaultMaxAPIBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[offset:end]

		chunkResult, err := p.embedInner(ctx, chunk)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}

		allEmbeddings = append(allEmbeddings, chunkResult.Embeddings...)
		totalPrompt += chunkResult.PromptTokens
		totalTokens += chunkResult.TotalTokens
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   allEmbeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

func (p *InstrumentedEmbedder) embedInner(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch embed: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, p.inner, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch fallback: %w", err)
	}
	return res, nil
}
