// Package openai wraps the OpenAI-compatible embeddings and chat APIs.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/domain"
	"github.com/kailas-cloud/routedex/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	resp, err := e.createEmbeddings(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrProvider)
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder: one API call for all texts,
// vectors restored to input order by the response Index field.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	resp, err := e.createEmbeddings(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	if len(resp.Data) != len(texts) {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"embedding count mismatch: sent %d texts, got %d vectors: %w",
			len(texts), len(resp.Data), domain.ErrProvider,
		)
	}

	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	embeddings := make([][]float32, len(data))
	for i, d := range data {
		embeddings[i] = d.Embedding
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (e *Embedder) createEmbeddings(ctx context.Context, input []string) (openai.EmbeddingResponse, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "api_error").Inc()
		return openai.EmbeddingResponse{}, parseAPIError(err, "embedding")
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Deadline hits map to domain.ErrProviderTimeout, everything else to
// domain.ErrProvider.
func parseAPIError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s deadline exceeded: %w", op, domain.ErrProviderTimeout)
	}

	wrap := domain.ErrProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("%s API error %d: %s: %w",
				op, reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("%s API error %d: %s: %w",
			op, reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			op, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %w", op, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
