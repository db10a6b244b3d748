package domain

import (
	"context"

	"github.com/kailas-cloud/routedex/internal/domain/routing"
)

// Completer executes a downstream completion on the selected model tier.
type Completer interface {
	Complete(ctx context.Context, text string, tier routing.Tier) (CompletionResult, error)
}

// CompletionResult carries the completion text, token usage reported by the
// provider, and the cost derived from that usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}
