package router

import (
	"context"

	"github.com/kailas-cloud/routedex/internal/domain/routing"
	"github.com/kailas-cloud/routedex/internal/usecase/complexity"
	"github.com/kailas-cloud/routedex/internal/usecase/semantic"
)

// SemanticClassifier is the consumer interface for the similarity router.
type SemanticClassifier interface {
	Classify(ctx context.Context, queryVec []float32) (semantic.Match, error)
}

// ComplexityClassifier is the consumer interface for the complexity scorer.
type ComplexityClassifier interface {
	Classify(query string) complexity.Score
}

// Recorder receives exactly one record per successful routing call.
type Recorder interface {
	Record(rec routing.Record)
}
