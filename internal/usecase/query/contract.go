package query

import (
	"context"
	"time"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/usecase/health"
)

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs a similarity query against one collection.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.Hit, error)
}

// HealthChecker probes the backing services. It never fails.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// SearchRecorder receives one observation per collection search. Satisfied by *metrics.Metrics.
type SearchRecorder interface {
	ObserveSearch(collection string, hits int, err error, d time.Duration)
}
