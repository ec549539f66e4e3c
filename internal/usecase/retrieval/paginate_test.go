package retrieval

import (
	"fmt"
	"testing"

	"github.com/climatejobs/rankd/internal/domain"
)

func makeResults(n int) []domain.MergedResult {
	out := make([]domain.MergedResult, n)
	for i := range out {
		out[i] = domain.MergedResult{ID: fmt.Sprintf("job-%02d", i)}
	}
	return out
}

func TestPaginate_Window(t *testing.T) {
	results := makeResults(10)

	page := Paginate(results, 2, 3)
	if len(page) != 3 {
		t.Fatalf("expected 3 results, got %d", len(page))
	}
	if page[0].ID != "job-02" || page[2].ID != "job-04" {
		t.Errorf("unexpected window: %q..%q", page[0].ID, page[2].ID)
	}
}

func TestPaginate_OffsetPastEnd(t *testing.T) {
	results := makeResults(10)

	page := Paginate(results, 15, 5)
	if len(page) != 0 {
		t.Errorf("expected empty page, got %d results", len(page))
	}
	if page == nil {
		t.Error("expected non-nil empty slice")
	}
}

func TestPaginate_PartialLastPage(t *testing.T) {
	results := makeResults(10)

	page := Paginate(results, 8, 5)
	if len(page) != 2 {
		t.Fatalf("expected 2 results on the last page, got %d", len(page))
	}
	if page[0].ID != "job-08" {
		t.Errorf("unexpected first result: %q", page[0].ID)
	}
}

func TestPaginate_ClampsLimit(t *testing.T) {
	results := makeResults(80)

	page := Paginate(results, 0, 100)
	if len(page) != domain.MaxCount {
		t.Errorf("expected limit clamped to %d, got %d", domain.MaxCount, len(page))
	}

	page = Paginate(results, 0, 0)
	if len(page) != domain.DefaultCount {
		t.Errorf("expected default limit %d, got %d", domain.DefaultCount, len(page))
	}
}
