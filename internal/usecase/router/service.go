// Package router orchestrates routing calls: it dispatches a query to the
// requested strategy, measures wall-clock latency, and folds the outcome
// into the metrics collector.
package router

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/config"
	"github.com/kailas-cloud/routedex/internal/domain"
	"github.com/kailas-cloud/routedex/internal/domain/routing"
	"github.com/kailas-cloud/routedex/internal/metrics"
)

// Service is the routing orchestrator.
type Service struct {
	embed      domain.Embedder
	semantic   SemanticClassifier
	complexity ComplexityClassifier
	// completer is optional: when nil the complexity path records the
	// configured per-tier simulated cost instead of a measured one.
	completer domain.Completer
	recorder  Recorder
	costs     config.CostsConfig
	logger    *zap.Logger
}

// New creates a routing orchestrator.
func New(
	embed domain.Embedder,
	sem SemanticClassifier,
	comp ComplexityClassifier,
	recorder Recorder,
	costs config.CostsConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		embed:      embed,
		semantic:   sem,
		complexity: comp,
		recorder:   recorder,
		costs:      costs,
		logger:     logger,
	}
}

// WithCompleter enables real downstream completions on the complexity path.
// Costs are then measured from provider-reported token counts.
func (s *Service) WithCompleter(c domain.Completer) *Service {
	s.completer = c
	return s
}

// Route dispatches the query to the requested strategy and returns the
// routing decision. Latency covers the full call including collaborator
// round-trips. A successful call emits exactly one metrics record; a failed
// call emits none and the error is the sole result. label is the optional
// ground-truth route ("" = unlabeled).
func (s *Service) Route(
	ctx context.Context, query string, strategy routing.Strategy, label string,
) (routing.Decision, error) {
	if !utf8.ValidString(query) {
		return routing.Decision{}, fmt.Errorf("%w: query is not valid UTF-8", domain.ErrInvalidQuery)
	}

	start := time.Now()

	var (
		decision routing.Decision
		cost     float64
		basis    routing.CostBasis
		err      error
	)
	switch strategy {
	case routing.StrategySemantic:
		decision, err = s.routeSemantic(ctx, query)
		cost, basis = s.costs.SemanticPerQueryUSD, routing.CostSimulated
	case routing.StrategyComplexity:
		decision, cost, basis, err = s.routeComplexity(ctx, query)
	default:
		return routing.Decision{}, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, strategy)
	}
	if err != nil {
		metrics.RoutingRequestsTotal.WithLabelValues(string(strategy), "", "error").Inc()
		return routing.Decision{}, err
	}

	latency := time.Since(start)
	decision.Latency = latency
	decision.LatencyMS = float64(latency.Nanoseconds()) / 1e6
	decision.Timestamp = time.Now()

	rec := routing.Record{
		QueryID:   uuid.NewString(),
		Strategy:  strategy,
		Latency:   latency,
		CostUSD:   cost,
		CostBasis: basis,
		Route:     decision.Route(),
		Label:     label,
		Labeled:   label != "",
	}
	s.recorder.Record(rec)

	metrics.RoutingRequestsTotal.WithLabelValues(string(strategy), decision.Route(), "success").Inc()
	metrics.RoutingDecisionDuration.WithLabelValues(string(strategy)).Observe(latency.Seconds())
	metrics.RoutingCostTotal.WithLabelValues(string(strategy), string(basis)).Add(cost)

	s.logger.Debug("Query routed",
		zap.String("query_id", rec.QueryID),
		zap.String("strategy", string(strategy)),
		zap.String("route", decision.Route()),
		zap.Float64("confidence", decision.Confidence),
		zap.Duration("latency", latency),
		zap.Float64("cost_usd", cost),
		zap.String("cost_basis", string(basis)),
	)

	return decision, nil
}

// routeSemantic embeds the query and delegates to the similarity router.
// Provider failures propagate unchanged; the orchestrator never retries and
// never substitutes a default decision.
func (s *Service) routeSemantic(ctx context.Context, query string) (routing.Decision, error) {
	embRes, err := s.embed.Embed(ctx, query)
	if err != nil {
		return routing.Decision{}, fmt.Errorf("embed query: %w", err)
	}

	match, err := s.semantic.Classify(ctx, embRes.Embedding)
	if err != nil {
		return routing.Decision{}, fmt.Errorf("classify query: %w", err)
	}

	return routing.Decision{
		Strategy:   routing.StrategySemantic,
		Category:   match.Category,
		Confidence: match.Confidence,
		Evidence: map[string]any{
			"category_scores": match.Scores,
			"embed_tokens":    embRes.TotalTokens,
		},
	}, nil
}

// routeComplexity scores the query locally (no embedding call) and, when a
// completer is configured, executes the completion on the chosen tier to
// obtain measured costs.
func (s *Service) routeComplexity(
	ctx context.Context, query string,
) (routing.Decision, float64, routing.CostBasis, error) {
	score := s.complexity.Classify(query)

	evidence := map[string]any{
		"raw_score": score.Raw,
		"level":     score.Level,
		"factors":   score.Factors,
	}

	cost := s.costs.SimulatedWeakUSD
	if score.Tier == routing.TierStrong {
		cost = s.costs.SimulatedStrongUSD
	}
	basis := routing.CostSimulated

	if s.completer != nil {
		res, err := s.completer.Complete(ctx, query, score.Tier)
		if err != nil {
			return routing.Decision{}, 0, "", fmt.Errorf("complete on tier %s: %w", score.Tier, err)
		}
		cost = res.CostUSD
		basis = routing.CostMeasured
		evidence["prompt_tokens"] = res.PromptTokens
		evidence["completion_tokens"] = res.CompletionTokens
	}

	return routing.Decision{
		Strategy:   routing.StrategyComplexity,
		Tier:       score.Tier,
		Confidence: score.Raw,
		Evidence:   evidence,
	}, cost, basis, nil
}
