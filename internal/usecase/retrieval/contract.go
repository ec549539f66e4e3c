package retrieval

import (
	"context"
	"time"

	"github.com/climatejobs/rankd/internal/domain"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CorpusSearcher defines the storage contract for corpus retrieval.
type CorpusSearcher interface {
	VectorSearch(
		ctx context.Context, vector []float32, k int,
		categories []string, postedAfter time.Time,
	) ([]domain.SourceResult, error)

	KeywordSearch(
		ctx context.Context, text string, topK int,
		categories []string, postedAfter time.Time,
	) ([]domain.SourceResult, error)

	SupportsKeyword(ctx context.Context) bool
}

// WebSearcher fetches results from an external web search provider.
type WebSearcher interface {
	Search(ctx context.Context, query string, count int) ([]domain.SourceResult, error)
}

// ResultCache stores finished result pages keyed by query fingerprint.
type ResultCache interface {
	Get(ctx context.Context, q domain.Query) ([]domain.MergedResult, int, bool)
	Put(ctx context.Context, q domain.Query, results []domain.MergedResult, total int) error
}

// SourceClient is one retrieval source behind a uniform fetch contract.
// The orchestrator derives per-source status from the returned error.
type SourceClient interface {
	Kind() domain.SourceKind
	Fetch(ctx context.Context, q domain.Query) ([]domain.SourceResult, error)
}
