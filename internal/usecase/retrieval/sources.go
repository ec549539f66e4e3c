package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/climatejobs/rankd/internal/domain"
)

// oversampleFactor is how many candidates beyond the page window each
// corpus source fetches, so dedup and score filtering do not starve the page.
const oversampleFactor = 2

// VectorSource embeds the query text and runs KNN retrieval, dropping
// candidates below the similarity floor.
type VectorSource struct {
	embed         Embedder
	corpus        CorpusSearcher
	minSimilarity float64
}

// NewVectorSource creates the semantic retrieval source.
func NewVectorSource(embed Embedder, corpus CorpusSearcher, minSimilarity float64) *VectorSource {
	return &VectorSource{embed: embed, corpus: corpus, minSimilarity: minSimilarity}
}

func (s *VectorSource) Kind() domain.SourceKind { return domain.SourceVector }

func (s *VectorSource) Fetch(ctx context.Context, q domain.Query) ([]domain.SourceResult, error) {
	embResult, err := s.embed.Embed(ctx, q.Text())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	k := fetchDepth(q)
	results, err := s.corpus.VectorSearch(ctx, embResult.Embedding, k, q.Categories(), q.PostedAfter())
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	kept := results[:0]
	for _, r := range results {
		if r.RawRelevance >= s.minSimilarity {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// KeywordSource runs BM25 full-text retrieval.
type KeywordSource struct {
	corpus CorpusSearcher
}

// NewKeywordSource creates the lexical retrieval source.
func NewKeywordSource(corpus CorpusSearcher) *KeywordSource {
	return &KeywordSource{corpus: corpus}
}

func (s *KeywordSource) Kind() domain.SourceKind { return domain.SourceKeyword }

func (s *KeywordSource) Fetch(ctx context.Context, q domain.Query) ([]domain.SourceResult, error) {
	if !s.corpus.SupportsKeyword(ctx) {
		return nil, domain.ErrUnsupported
	}

	results, err := s.corpus.KeywordSearch(ctx, q.Text(), fetchDepth(q), q.Categories(), q.PostedAfter())
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return results, nil
}

// WebSource queries an external search provider. A region hint is appended
// to the query when the text does not already mention it, so web results
// stay anchored to the platform's geography.
type WebSource struct {
	web        WebSearcher
	regionHint string
	maxResults int
}

// NewWebSource creates the web supplement source.
func NewWebSource(web WebSearcher, regionHint string, maxResults int) *WebSource {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSource{web: web, regionHint: regionHint, maxResults: maxResults}
}

func (s *WebSource) Kind() domain.SourceKind { return domain.SourceWeb }

func (s *WebSource) Fetch(ctx context.Context, q domain.Query) ([]domain.SourceResult, error) {
	text := q.Text()
	if s.regionHint != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(s.regionHint)) {
		text = text + " " + s.regionHint
	}

	results, err := s.web.Search(ctx, text, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	return results, nil
}

// fetchDepth is the per-source candidate depth covering the requested
// page window with oversampling headroom.
func fetchDepth(q domain.Query) int {
	return oversampleFactor * (q.Count() + q.Offset())
}
