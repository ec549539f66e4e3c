package corpus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/climatejobs/rankd/internal/db"
	"github.com/climatejobs/rankd/internal/domain"
)

// returnFields are the document fields fetched alongside each hit.
var returnFields = []string{"content", "category", "url", "posted_at"}

// store is the consumer interface for the job corpus (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements usecase/retrieval.CorpusSearcher over an FT index.
type Repo struct {
	store      store
	keyPrefix  string
	collection string
}

// New creates a corpus repository. keyPrefix and collection together
// determine the index name and the document key namespace.
func New(s store, keyPrefix, collection string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, collection: collection}
}

// VectorSearch runs a KNN query and normalizes the hits.
func (r *Repo) VectorSearch(ctx context.Context, vector []float32, k int,
	categories []string, postedAfter time.Time,
) ([]domain.SourceResult, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		Categories:   categories,
		PostedAfter:  postedAfter,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", r.collection, err)
	}
	return r.toSourceResults(result, domain.SourceVector), nil
}

// KeywordSearch runs a BM25 full-text query and normalizes the hits.
func (r *Repo) KeywordSearch(ctx context.Context, text string, topK int,
	categories []string, postedAfter time.Time,
) ([]domain.SourceResult, error) {
	result, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.indexName(),
		Query:        text,
		TopK:         topK,
		Categories:   categories,
		PostedAfter:  postedAfter,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search %s: %w", r.collection, err)
	}
	return r.toSourceResults(result, domain.SourceKeyword), nil
}

// SupportsKeyword reports whether the backing store can serve full-text queries.
func (r *Repo) SupportsKeyword(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, r.collection)
}

func (r *Repo) docKeyPrefix() string {
	return fmt.Sprintf("%s%s:doc:", r.keyPrefix, r.collection)
}

func (r *Repo) toSourceResults(result *db.SearchResult, kind domain.SourceKind) []domain.SourceResult {
	if result == nil || len(result.Entries) == 0 {
		return nil
	}
	out := make([]domain.SourceResult, 0, len(result.Entries))
	for i, entry := range result.Entries {
		out = append(out, domain.SourceResult{
			ID:           r.extractID(entry.Key),
			Content:      entry.Fields["content"],
			Category:     entry.Fields["category"],
			RawRelevance: entry.Score,
			Kind:         kind,
			Rank:         i,
			URL:          entry.Fields["url"],
			PostedAt:     parsePostedAt(entry.Fields["posted_at"]),
		})
	}
	return out
}

func (r *Repo) extractID(key string) string {
	return strings.TrimPrefix(key, r.docKeyPrefix())
}

// parsePostedAt reads a unix timestamp field. Zero time on absence or garbage.
func parsePostedAt(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
