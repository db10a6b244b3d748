// Package routing holds the core routing decision types shared between the
// similarity router, the complexity classifier, and the metrics collector.
package routing

import (
	"fmt"
	"time"
)

// Strategy selects which routing engine handles a query.
type Strategy string

// Routing strategy constants.
const (
	// StrategySemantic classifies the query into an intent category by
	// vector similarity against per-category reference utterances.
	StrategySemantic Strategy = "semantic"
	// StrategyComplexity scores the query's lexical complexity and picks
	// a strong or weak downstream model tier.
	StrategyComplexity Strategy = "complexity"
)

// ParseStrategy validates a strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySemantic:
		return StrategySemantic, nil
	case StrategyComplexity:
		return StrategyComplexity, nil
	default:
		return "", fmt.Errorf("strategy %q is not supported", s)
	}
}

// Tier is the downstream model tier chosen by the complexity strategy.
type Tier string

// Model tier constants.
const (
	TierStrong Tier = "strong"
	TierWeak   Tier = "weak"
)

// Decision is the outcome of routing a single query. Immutable after creation.
type Decision struct {
	Strategy   Strategy       `json:"strategy"`
	Category   string         `json:"category,omitempty"`
	Tier       Tier           `json:"tier,omitempty"`
	Confidence float64        `json:"confidence"`
	Evidence   map[string]any `json:"evidence,omitempty"`
	Latency    time.Duration  `json:"-"`
	LatencyMS  float64        `json:"latency_ms"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Route returns the chosen route name: the category for the semantic
// strategy, the tier for the complexity strategy.
func (d Decision) Route() string {
	if d.Strategy == StrategySemantic {
		return d.Category
	}
	return string(d.Tier)
}

// CostBasis records how a query's cost was obtained. The distinction is
// stored explicitly in each record, never inferred later.
type CostBasis string

// Cost basis constants.
const (
	// CostSimulated means a fixed configured constant was used.
	CostSimulated CostBasis = "simulated"
	// CostMeasured means the cost was derived from actual token counts
	// reported by the provider.
	CostMeasured CostBasis = "measured"
)

// Record is a single metrics record folded into the collector. Append-only,
// never mutated after creation.
type Record struct {
	QueryID   string
	Strategy  Strategy
	Latency   time.Duration
	CostUSD   float64
	CostBasis CostBasis
	Route     string
	// Label is the optional ground-truth route. Records without a label are
	// excluded from the accuracy denominator.
	Label   string
	Labeled bool
}

// Correct reports whether the chosen route matches the ground-truth label.
// Only meaningful when Labeled is true.
func (r Record) Correct() bool {
	return r.Labeled && r.Route == r.Label
}
