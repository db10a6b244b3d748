// Package compare runs the same query set through both routing strategies
// and renders a side-by-side report from collector snapshots.
package compare

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/collector"
	"github.com/kailas-cloud/routedex/internal/config"
	"github.com/kailas-cloud/routedex/internal/domain"
	"github.com/kailas-cloud/routedex/internal/domain/routing"
)

// Router is the consumer interface for the routing orchestrator.
type Router interface {
	Route(ctx context.Context, query string, strategy routing.Strategy, label string) (routing.Decision, error)
}

// Snapshotter reads aggregate statistics from the metrics collector.
type Snapshotter interface {
	Snapshot(strategy routing.Strategy) collector.AggregateStats
	Reset()
}

// Report is the comparison output: per-strategy aggregates plus a derived
// recommendation. The recommendation thresholds come from configuration,
// never from the data itself.
type Report struct {
	Queries        int                                           `json:"queries"`
	Strategies     map[routing.Strategy]collector.AggregateStats `json:"strategies"`
	LatencyRatio   float64                                       `json:"latency_ratio"`
	CostRatio      float64                                       `json:"cost_ratio"`
	Recommendation string                                        `json:"recommendation"`
	GeneratedAt    time.Time                                     `json:"generated_at"`
}

// Service is the comparison harness.
type Service struct {
	router  Router
	metrics Snapshotter
	cfg     config.ComparisonConfig
	logger  *zap.Logger
}

// New creates a comparison harness.
func New(router Router, metrics Snapshotter, cfg config.ComparisonConfig, logger *zap.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{router: router, metrics: metrics, cfg: cfg, logger: logger}
}

// job is one query to route under one strategy.
type job struct {
	query    string
	strategy routing.Strategy
}

// Compare routes every query once per strategy, then builds a report from
// collector snapshots. Dispatch may be concurrent (bounded worker pool);
// record order then reflects completion order, which does not affect the
// aggregates. Any routing failure aborts the run.
//
// The collector is reset before dispatch so the report covers exactly this
// run: repeat runs over the same query set produce identical distributions
// and simulated cost totals regardless of earlier runs or ad-hoc routing
// calls, and a run aborted by a failure leaves no partial records behind
// for the next one.
func (s *Service) Compare(ctx context.Context, queries []string) (Report, error) {
	if len(queries) == 0 {
		return Report{}, fmt.Errorf("%w: query set is empty", domain.ErrInvalidQuery)
	}

	s.metrics.Reset()

	start := time.Now()

	jobs := make(chan job, s.cfg.Workers*2)
	errs := make(chan error, len(queries)*2)
	var wg sync.WaitGroup

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if _, err := s.router.Route(ctx, j.query, j.strategy, ""); err != nil {
					errs <- fmt.Errorf("route %q via %s: %w", j.query, j.strategy, err)
				}
			}
		}()
	}

	for _, q := range queries {
		jobs <- job{query: q, strategy: routing.StrategySemantic}
		jobs <- job{query: q, strategy: routing.StrategyComplexity}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return Report{}, err
	}

	semStats := s.metrics.Snapshot(routing.StrategySemantic)
	compStats := s.metrics.Snapshot(routing.StrategyComplexity)

	report := Report{
		Queries: len(queries),
		Strategies: map[routing.Strategy]collector.AggregateStats{
			routing.StrategySemantic:   semStats,
			routing.StrategyComplexity: compStats,
		},
		LatencyRatio: ratio(compStats.Latency.MeanMS, semStats.Latency.MeanMS),
		CostRatio:    ratio(compStats.TotalCostUSD, semStats.TotalCostUSD),
		GeneratedAt:  time.Now(),
	}
	report.Recommendation = s.recommend(report.LatencyRatio, report.CostRatio)

	s.logger.Info("Comparison run completed",
		zap.Int("queries", len(queries)),
		zap.Duration("duration", time.Since(start)),
		zap.Float64("latency_ratio", report.LatencyRatio),
		zap.Float64("cost_ratio", report.CostRatio),
		zap.String("recommendation", report.Recommendation),
	)

	return report, nil
}

// recommend derives the strategy recommendation from configured ratio
// thresholds. Ratios are complexity relative to semantic: values above 1
// mean the semantic strategy is cheaper/faster.
func (s *Service) recommend(latencyRatio, costRatio float64) string {
	switch {
	case latencyRatio >= s.cfg.LatencyRatio && costRatio >= s.cfg.CostRatio:
		return "prefer semantic: lower latency and cost when categories are well-separated"
	case latencyRatio < 1 && costRatio < 1:
		return "prefer complexity: adaptive tiering is both faster and cheaper for this query mix"
	case costRatio >= s.cfg.CostRatio:
		return "prefer semantic when cost-sensitive; complexity adapts better to unbounded query types"
	case latencyRatio >= s.cfg.LatencyRatio:
		return "prefer semantic when latency-sensitive; complexity adapts better to unbounded query types"
	default:
		return "comparable tradeoffs: pick semantic for fixed categories, complexity for cost-adaptive tiering"
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
