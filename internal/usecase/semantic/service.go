// Package semantic classifies query vectors into intent categories by
// cosine similarity against per-category reference utterance banks.
package semantic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/domain"
	"github.com/kailas-cloud/routedex/internal/domain/category"
)

// Match is the classification outcome: the winning category, its clamped
// confidence, and the per-category scores that produced it.
type Match struct {
	Category   string
	Confidence float64
	Scores     map[string]float64
}

// Service owns the registered categories and their lazily computed
// reference vector banks.
type Service struct {
	embed      domain.Embedder
	categories []category.Category
	epsilon    float64
	logger     *zap.Logger

	// banks[i][j] is the reference vector for categories[i].Utterances()[j].
	// Computed at most once on first use, immutable afterwards until an
	// explicit Reindex.
	mu    sync.Mutex
	banks [][][]float32
	ready bool
}

// New creates a similarity router. Fails if the category set is empty.
func New(
	embed domain.Embedder, categories []category.Category,
	epsilon float64, logger *zap.Logger,
) (*Service, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: category set is empty", domain.ErrConfiguration)
	}
	if epsilon <= 0 {
		epsilon = 1e-6
	}
	return &Service{
		embed:      embed,
		categories: categories,
		epsilon:    epsilon,
		logger:     logger,
	}, nil
}

// Categories returns the category names in registration order.
func (s *Service) Categories() []string {
	names := make([]string, len(s.categories))
	for i, c := range s.categories {
		names[i] = c.Name()
	}
	return names
}

// Classify finds the best-matching category for the query vector. A
// category's score is the maximum cosine similarity over its reference
// vectors; the winner is the category with the highest score, ties within
// epsilon resolving to the earliest registered. Confidence is the winning
// score clamped to [0,1].
func (s *Service) Classify(ctx context.Context, queryVec []float32) (Match, error) {
	banks, err := s.ensureBanks(ctx)
	if err != nil {
		return Match{}, err
	}

	scores := make(map[string]float64, len(s.categories))
	best := -1.0
	for i, cat := range s.categories {
		score := -1.0
		for _, ref := range banks[i] {
			if sim := domain.CosineSimilarity(queryVec, ref); sim > score {
				score = sim
			}
		}
		scores[cat.Name()] = score
		if score > best {
			best = score
		}
	}

	// Registration order is the tie-break: the first category within
	// epsilon of the top score wins.
	for _, cat := range s.categories {
		if scores[cat.Name()] >= best-s.epsilon {
			return Match{
				Category:   cat.Name(),
				Confidence: domain.ClampScore(scores[cat.Name()]),
				Scores:     scores,
			}, nil
		}
	}

	// Unreachable: the max always satisfies its own bound.
	return Match{}, fmt.Errorf("%w: no category matched", domain.ErrConfiguration)
}

// Reindex recomputes all reference vectors. Recomputation is always
// explicit; Classify never triggers it for an already-built bank.
func (s *Service) Reindex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	s.banks = nil
	_, err := s.buildBanksLocked(ctx)
	return err
}

// ensureBanks computes the reference vectors at most once. The mutex keeps
// the compute-and-cache transition atomic so concurrent first access does
// not duplicate embedding calls.
func (s *Service) ensureBanks(ctx context.Context) ([][][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return s.banks, nil
	}
	return s.buildBanksLocked(ctx)
}

func (s *Service) buildBanksLocked(ctx context.Context) ([][][]float32, error) {
	start := time.Now()

	banks := make([][][]float32, len(s.categories))
	total := 0
	for i, cat := range s.categories {
		utterances := cat.Utterances()

		var (
			res domain.BatchEmbeddingResult
			err error
		)
		if be, ok := s.embed.(domain.BatchEmbedder); ok {
			res, err = be.BatchEmbed(ctx, utterances)
		} else {
			res, err = domain.BatchFallback(ctx, s.embed, utterances)
		}
		if err != nil {
			return nil, fmt.Errorf("embed reference utterances for %q: %w", cat.Name(), err)
		}
		if len(res.Embeddings) != len(utterances) {
			return nil, fmt.Errorf("%w: got %d vectors for %d utterances in %q",
				domain.ErrProvider, len(res.Embeddings), len(utterances), cat.Name())
		}

		banks[i] = res.Embeddings
		total += len(utterances)
	}

	s.banks = banks
	s.ready = true

	s.logger.Info("Reference vector banks built",
		zap.Int("categories", len(s.categories)),
		zap.Int("vectors", total),
		zap.Duration("duration", time.Since(start)),
	)
	return s.banks, nil
}
