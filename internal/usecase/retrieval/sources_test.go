package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/climatejobs/rankd/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	texts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	return m.result, m.err
}

type mockCorpus struct {
	vectorResults  []domain.SourceResult
	vectorErr      error
	vectorK        int
	keywordResults []domain.SourceResult
	keywordErr     error
	keywordTopK    int
	keyword        bool
}

func (m *mockCorpus) VectorSearch(_ context.Context, _ []float32, k int, _ []string, _ time.Time) ([]domain.SourceResult, error) {
	m.vectorK = k
	return m.vectorResults, m.vectorErr
}

func (m *mockCorpus) KeywordSearch(_ context.Context, _ string, topK int, _ []string, _ time.Time) ([]domain.SourceResult, error) {
	m.keywordTopK = topK
	return m.keywordResults, m.keywordErr
}

func (m *mockCorpus) SupportsKeyword(_ context.Context) bool { return m.keyword }

type mockWeb struct {
	results []domain.SourceResult
	err     error
	query   string
	count   int
	calls   int
}

func (m *mockWeb) Search(_ context.Context, query string, count int) ([]domain.SourceResult, error) {
	m.calls++
	m.query = query
	m.count = count
	return m.results, m.err
}

func mustQuery(t *testing.T, text string, count, offset int) domain.Query {
	t.Helper()
	q, err := domain.NewQuery(text, nil, time.Time{}, count, offset)
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}
	return q
}

func TestVectorSource_FiltersBelowFloor(t *testing.T) {
	corpus := &mockCorpus{
		vectorResults: []domain.SourceResult{
			{ID: "a", RawRelevance: 0.9, Kind: domain.SourceVector},
			{ID: "b", RawRelevance: 0.59, Kind: domain.SourceVector},
			{ID: "c", RawRelevance: 0.6, Kind: domain.SourceVector},
		},
	}
	src := NewVectorSource(&mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}, corpus, 0.6)

	results, err := src.Fetch(context.Background(), mustQuery(t, "solar", 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above floor, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "c" {
		t.Errorf("unexpected survivors: %q, %q", results[0].ID, results[1].ID)
	}
}

func TestVectorSource_OversamplesPageWindow(t *testing.T) {
	corpus := &mockCorpus{}
	src := NewVectorSource(&mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}, corpus, 0.6)

	if _, err := src.Fetch(context.Background(), mustQuery(t, "solar", 10, 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if corpus.vectorK != 60 {
		t.Errorf("expected fetch depth 2*(10+20)=60, got %d", corpus.vectorK)
	}
}

func TestVectorSource_EmbedError(t *testing.T) {
	src := NewVectorSource(&mockEmbedder{err: errors.New("quota exceeded")}, &mockCorpus{}, 0.6)

	_, err := src.Fetch(context.Background(), mustQuery(t, "solar", 10, 0))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestKeywordSource_Unsupported(t *testing.T) {
	src := NewKeywordSource(&mockCorpus{keyword: false})

	_, err := src.Fetch(context.Background(), mustQuery(t, "solar", 10, 0))
	if !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestKeywordSource_Fetch(t *testing.T) {
	corpus := &mockCorpus{
		keyword:        true,
		keywordResults: []domain.SourceResult{{ID: "a", Kind: domain.SourceKeyword}},
	}
	src := NewKeywordSource(corpus)

	results, err := src.Fetch(context.Background(), mustQuery(t, "solar", 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if corpus.keywordTopK != 20 {
		t.Errorf("expected topK 20, got %d", corpus.keywordTopK)
	}
}

func TestWebSource_AppendsRegionHint(t *testing.T) {
	web := &mockWeb{}
	src := NewWebSource(web, "Massachusetts", 5)

	if _, err := src.Fetch(context.Background(), mustQuery(t, "offshore wind jobs", 10, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if web.query != "offshore wind jobs Massachusetts" {
		t.Errorf("expected hint appended, got %q", web.query)
	}
}

func TestWebSource_SkipsHintWhenPresent(t *testing.T) {
	web := &mockWeb{}
	src := NewWebSource(web, "Massachusetts", 5)

	if _, err := src.Fetch(context.Background(), mustQuery(t, "wind jobs in massachusetts", 10, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if web.query != "wind jobs in massachusetts" {
		t.Errorf("expected original query, got %q", web.query)
	}
}

func TestWebSource_CapsResults(t *testing.T) {
	web := &mockWeb{results: []domain.SourceResult{
		{URL: "u1", Kind: domain.SourceWeb}, {URL: "u2", Kind: domain.SourceWeb},
		{URL: "u3", Kind: domain.SourceWeb}, {URL: "u4", Kind: domain.SourceWeb},
	}}
	src := NewWebSource(web, "", 3)

	results, err := src.Fetch(context.Background(), mustQuery(t, "jobs", 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected cap at 3, got %d", len(results))
	}
	if web.count != 3 {
		t.Errorf("expected count 3 requested, got %d", web.count)
	}
}
