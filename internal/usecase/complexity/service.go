// Package complexity scores query text and picks a downstream model tier.
package complexity

import (
	"strings"

	"github.com/kailas-cloud/routedex/internal/config"
	"github.com/kailas-cloud/routedex/internal/domain/routing"
)

// Score is the classifier's output: the raw weighted sum, the per-signal
// contributions behind it, and the resulting tier.
type Score struct {
	Raw     float64            `json:"raw_score"`
	Level   string             `json:"level"`
	Factors map[string]float64 `json:"factors"`
	Tier    routing.Tier       `json:"tier"`
}

// Service classifies query complexity from configured lexical signals.
// Scoring is fully deterministic: identical text and identical configuration
// always produce identical output.
type Service struct {
	cfg config.ComplexityConfig
}

// New creates a complexity classifier from configuration.
func New(cfg config.ComplexityConfig) *Service {
	return &Service{cfg: cfg}
}

// Threshold returns the configured strong/weak decision threshold.
func (s *Service) Threshold() float64 { return s.cfg.Threshold }

// Classify scores the query text. The base score comes from the highest
// keyword band with at least one match (low band weight when nothing
// matches); length, technical-term, and question-mark signals add capped
// proportional bonuses. The total is capped at 1.0. Tier is strong iff the
// raw score meets the threshold (inclusive).
func (s *Service) Classify(query string) Score {
	text := strings.ToLower(strings.TrimSpace(query))

	base, level := s.baseScore(text)
	length := capped(float64(len(text))*s.cfg.Length.PerUnit, s.cfg.Length.Max)
	tech := capped(float64(countTerms(text, s.cfg.Technical.Terms))*s.cfg.Technical.PerTerm, s.cfg.Technical.Max)
	question := capped(float64(strings.Count(text, "?"))*s.cfg.Question.PerUnit, s.cfg.Question.Max)

	raw := base + length + tech + question
	if raw > 1 {
		raw = 1
	}
	if raw < 0 {
		raw = 0
	}

	tier := routing.TierWeak
	if raw >= s.cfg.Threshold {
		tier = routing.TierStrong
	}

	return Score{
		Raw:   raw,
		Level: level,
		Factors: map[string]float64{
			"base_score":      base,
			"length_factor":   length,
			"tech_boost":      tech,
			"question_factor": question,
		},
		Tier: tier,
	}
}

// baseScore returns the weight of the highest non-empty keyword band.
func (s *Service) baseScore(text string) (float64, string) {
	if countTerms(text, s.cfg.Keywords.High) > 0 {
		return s.cfg.Weights.High, "high"
	}
	if countTerms(text, s.cfg.Keywords.Medium) > 0 {
		return s.cfg.Weights.Medium, "medium"
	}
	return s.cfg.Weights.Low, "low"
}

// countTerms counts keyword-set members present in text (substring match;
// text is already lowercased).
func countTerms(text string, terms []string) int {
	if text == "" {
		return 0
	}
	n := 0
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			n++
		}
	}
	return n
}

func capped(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
