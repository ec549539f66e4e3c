package contextbuild

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/climatejobs/rankd/internal/domain"
	"github.com/climatejobs/rankd/internal/metrics"
)

type mockRetriever struct {
	page domain.Page
	err  error
}

func (m *mockRetriever) Search(_ context.Context, _ domain.Query, _ bool) (domain.Page, error) {
	return m.page, m.err
}

func testQuery(t *testing.T) domain.Query {
	t.Helper()
	q, err := domain.NewQuery("solar jobs", nil, time.Time{}, 10, 0)
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}
	return q
}

func TestBuild_RendersCorpusAndWebSnippets(t *testing.T) {
	retriever := &mockRetriever{page: domain.Page{
		Results: []domain.MergedResult{
			{
				ID:       "job-1",
				Content:  "Solar installer position in Worcester",
				Category: "job",
				Sources:  []domain.SourceKind{domain.SourceVector},
			},
			{
				ID:         "web:https://example.org/a",
				Content:    "Clean energy hiring surge",
				Sources:    []domain.SourceKind{domain.SourceWeb},
				URL:        "https://example.org/a",
				Attributes: map[string]string{"title": "Green Jobs Report"},
			},
		},
		Total: 2,
	}}
	builder := New(retriever, 5)

	got, err := builder.Build(context.Background(), testQuery(t), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DBCount != 1 || got.WebCount != 1 {
		t.Errorf("counts = db:%d web:%d, want 1/1", got.DBCount, got.WebCount)
	}
	if !strings.Contains(got.Text, "Source: database\nCategory: job\nSolar installer position in Worcester") {
		t.Errorf("corpus snippet missing:\n%s", got.Text)
	}
	if !strings.Contains(got.Text, "Source: web\nTitle: Green Jobs Report\nSnippet: Clean energy hiring surge\nURL: https://example.org/a") {
		t.Errorf("web snippet missing:\n%s", got.Text)
	}
}

func TestBuild_RespectsBudget(t *testing.T) {
	results := make([]domain.MergedResult, 8)
	for i := range results {
		results[i] = domain.MergedResult{
			ID:      string(rune('a' + i)),
			Content: "content",
			Sources: []domain.SourceKind{domain.SourceVector},
		}
	}
	builder := New(&mockRetriever{page: domain.Page{Results: results, Total: 8}}, 5)

	got, err := builder.Build(context.Background(), testQuery(t), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DBCount != 5 {
		t.Errorf("expected budget of 5, got %d", got.DBCount)
	}
	if strings.Count(got.Text, "Source: database") != 5 {
		t.Errorf("expected 5 sections, got:\n%s", got.Text)
	}
}

func TestBuild_MixedSourceCountsAsCorpus(t *testing.T) {
	builder := New(&mockRetriever{page: domain.Page{
		Results: []domain.MergedResult{
			{
				ID:      "job-1",
				Content: "Hybrid hit",
				Sources: []domain.SourceKind{domain.SourceVector, domain.SourceWeb},
			},
		},
		Total: 1,
	}}, 5)

	got, err := builder.Build(context.Background(), testQuery(t), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DBCount != 1 || got.WebCount != 0 {
		t.Errorf("counts = db:%d web:%d, want 1/0", got.DBCount, got.WebCount)
	}
}

func TestBuild_CountsResultsPerSourceMetric(t *testing.T) {
	dbBefore := testutil.ToFloat64(metrics.ContextResultsTotal.WithLabelValues("database"))
	webBefore := testutil.ToFloat64(metrics.ContextResultsTotal.WithLabelValues("web"))

	builder := New(&mockRetriever{page: domain.Page{
		Results: []domain.MergedResult{
			{ID: "job-1", Content: "a", Sources: []domain.SourceKind{domain.SourceVector}},
			{ID: "job-2", Content: "b", Sources: []domain.SourceKind{domain.SourceKeyword}},
			{ID: "web:https://example.org/a", Content: "c", URL: "https://example.org/a",
				Sources: []domain.SourceKind{domain.SourceWeb}},
		},
		Total: 3,
	}}, 5)

	if _, err := builder.Build(context.Background(), testQuery(t), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(metrics.ContextResultsTotal.WithLabelValues("database")) - dbBefore; got != 2 {
		t.Errorf("database counter delta = %f, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.ContextResultsTotal.WithLabelValues("web")) - webBefore; got != 1 {
		t.Errorf("web counter delta = %f, want 1", got)
	}
}

func TestBuild_PropagatesRetrievalError(t *testing.T) {
	builder := New(&mockRetriever{err: domain.ErrAllSourcesFailed}, 5)

	_, err := builder.Build(context.Background(), testQuery(t), true)
	if !errors.Is(err, domain.ErrAllSourcesFailed) {
		t.Fatalf("expected wrapped retrieval error, got %v", err)
	}
}

func TestBuild_EmptyResults(t *testing.T) {
	builder := New(&mockRetriever{page: domain.Page{}}, 5)

	got, err := builder.Build(context.Background(), testQuery(t), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "" || got.DBCount != 0 || got.WebCount != 0 {
		t.Errorf("expected empty context, got %+v", got)
	}
}
