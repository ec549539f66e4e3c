package contextbuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/climatejobs/rankd/internal/domain"
	"github.com/climatejobs/rankd/internal/metrics"
)

// DefaultBudget is how many top-ranked results feed the context block.
const DefaultBudget = 5

// Retriever runs the full retrieval pipeline.
type Retriever interface {
	Search(ctx context.Context, q domain.Query, cacheEligible bool) (domain.Page, error)
}

// Context is an assembled text block for downstream consumers, with
// provenance counts so callers can tell corpus facts from web facts.
type Context struct {
	Text     string `json:"context"`
	DBCount  int    `json:"db_count"`
	WebCount int    `json:"web_count"`
}

// Builder turns ranked retrieval results into a prompt-ready context block.
type Builder struct {
	retriever Retriever
	budget    int
}

// New creates a context builder over the retrieval pipeline.
func New(retriever Retriever, budget int) *Builder {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Builder{retriever: retriever, budget: budget}
}

// Build retrieves for the query and renders the top results as labeled
// snippets. Web-only results render with their title and URL so the
// consumer can attribute them.
func (b *Builder) Build(ctx context.Context, q domain.Query, cacheEligible bool) (Context, error) {
	page, err := b.retriever.Search(ctx, q, cacheEligible)
	if err != nil {
		return Context{}, fmt.Errorf("retrieve context: %w", err)
	}

	var (
		out      Context
		sections []string
	)

	for _, r := range page.Results {
		if len(sections) >= b.budget {
			break
		}
		if isWebOnly(&r) {
			sections = append(sections, renderWebSnippet(&r))
			out.WebCount++
			continue
		}
		sections = append(sections, renderCorpusSnippet(&r))
		out.DBCount++
	}

	metrics.ContextResultsTotal.WithLabelValues("database").Add(float64(out.DBCount))
	metrics.ContextResultsTotal.WithLabelValues("web").Add(float64(out.WebCount))

	out.Text = strings.Join(sections, "\n\n")
	return out, nil
}

func isWebOnly(r *domain.MergedResult) bool {
	return len(r.Sources) == 1 && r.Sources[0] == domain.SourceWeb
}

func renderCorpusSnippet(r *domain.MergedResult) string {
	var sb strings.Builder
	sb.WriteString("Source: database\n")
	if r.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", r.Category)
	}
	sb.WriteString(r.Content)
	return sb.String()
}

func renderWebSnippet(r *domain.MergedResult) string {
	var sb strings.Builder
	sb.WriteString("Source: web\n")
	if title := r.Attributes["title"]; title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", title)
	}
	fmt.Fprintf(&sb, "Snippet: %s\n", r.Content)
	fmt.Fprintf(&sb, "URL: %s", r.URL)
	return sb.String()
}
