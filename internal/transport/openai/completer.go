package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/domain"
	"github.com/kailas-cloud/routedex/internal/domain/routing"
	"github.com/kailas-cloud/routedex/internal/metrics"
)

// Completer executes chat completions on a strong or weak model tier.
type Completer struct {
	client      *openai.Client
	strongModel string
	weakModel   string
	maxTokens   int
	pricing     map[routing.Tier]TierPricing
	logger      *zap.Logger
}

// TierPricing is the per-1K-token price sheet for one model tier.
type TierPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// CompleterConfig holds the completion provider settings.
type CompleterConfig struct {
	APIKey      string
	BaseURL     string
	StrongModel string
	WeakModel   string
	MaxTokens   int
	Strong      TierPricing
	Weak        TierPricing
	Logger      *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *CompleterConfig) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		strongModel: cfg.StrongModel,
		weakModel:   cfg.WeakModel,
		maxTokens:   cfg.MaxTokens,
		pricing: map[routing.Tier]TierPricing{
			routing.TierStrong: cfg.Strong,
			routing.TierWeak:   cfg.Weak,
		},
		logger: cfg.Logger,
	}
}

// Complete implements domain.Completer. Cost is computed from the
// provider-reported usage and the configured per-1K pricing of the tier.
func (c *Completer) Complete(
	ctx context.Context, text string, tier routing.Tier,
) (domain.CompletionResult, error) {
	model := c.weakModel
	if tier == routing.TierStrong {
		model = c.strongModel
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(string(tier), model, "error").Inc()
		return domain.CompletionResult{}, parseAPIError(err, "completion")
	}

	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(string(tier), model, "error").Inc()
		return domain.CompletionResult{}, fmt.Errorf("empty completion response: %w", domain.ErrProvider)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(string(tier), model, "success").Inc()
	metrics.CompletionTokensTotal.WithLabelValues(string(tier), model, "prompt").
		Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(string(tier), model, "completion").
		Add(float64(resp.Usage.CompletionTokens))

	pricing := c.pricing[tier]
	cost := float64(resp.Usage.PromptTokens)/1000*pricing.InputPer1K +
		float64(resp.Usage.CompletionTokens)/1000*pricing.OutputPer1K

	c.logger.Debug("Completion executed",
		zap.String("tier", string(tier)),
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Float64("cost_usd", cost),
	)

	return domain.CompletionResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		CostUSD:          cost,
	}, nil
}
