package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/climatejobs/rankd/internal/domain"
	contextuc "github.com/climatejobs/rankd/internal/usecase/contextbuild"
	healthuc "github.com/climatejobs/rankd/internal/usecase/health"
)

type mockRetriever struct {
	page          domain.Page
	err           error
	gotQuery      domain.Query
	cacheEligible bool
	calls         int
}

func (m *mockRetriever) Search(_ context.Context, q domain.Query, cacheEligible bool) (domain.Page, error) {
	m.calls++
	m.gotQuery = q
	m.cacheEligible = cacheEligible
	return m.page, m.err
}

type okPinger struct{ err error }

func (p *okPinger) Ping(_ context.Context) error { return p.err }

func newTestRouter(retriever *mockRetriever, apiKeys []string, dbErr error) http.Handler {
	server := NewServer(
		retriever,
		contextuc.New(retriever, 5),
		healthuc.New(&okPinger{err: dbErr}, nil),
		zap.NewNop(),
	)
	r := chirouter.NewRouter()
	r.Use(BearerAuthMiddleware(apiKeys))
	server.Register(r)
	return r
}

func postJSON(t *testing.T, handler http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSearchEndpoint_OK(t *testing.T) {
	retriever := &mockRetriever{page: domain.Page{
		Results: []domain.MergedResult{{ID: "job-1", CompositeScore: 1.1, Sources: []domain.SourceKind{domain.SourceVector}}},
		Total:   4,
		TookMS:  12,
	}}
	router := newTestRouter(retriever, nil, nil)

	rr := postJSON(t, router, "/v1/search", `{"query": "solar installer", "limit": 10}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Results   []json.RawMessage `json:"results"`
		Total     int               `json:"total_count"`
		TookMS    int64             `json:"timing_ms"`
		FromCache bool              `json:"from_cache"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 4 || len(resp.Results) != 1 {
		t.Errorf("unexpected response: total=%d results=%d", resp.Total, len(resp.Results))
	}
	if retriever.gotQuery.Text() != "solar installer" {
		t.Errorf("query text not forwarded: %q", retriever.gotQuery.Text())
	}
	if !retriever.cacheEligible {
		t.Error("anonymous request must be cache eligible")
	}
}

func TestSearchEndpoint_EmptyResultsIsArray(t *testing.T) {
	router := newTestRouter(&mockRetriever{page: domain.Page{}}, nil, nil)

	rr := postJSON(t, router, "/v1/search", `{"query": "nothing"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"results":[]`) {
		t.Errorf("expected empty array, got: %s", rr.Body.String())
	}
}

func TestSearchEndpoint_InvalidBody(t *testing.T) {
	router := newTestRouter(&mockRetriever{}, nil, nil)

	rr := postJSON(t, router, "/v1/search", `{not json`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSearchEndpoint_EmptyQuery(t *testing.T) {
	router := newTestRouter(&mockRetriever{}, nil, nil)

	rr := postJSON(t, router, "/v1/search", `{"query": "   "}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Code != codeValidationFailed {
		t.Errorf("code = %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestSearchEndpoint_BadPostedAfter(t *testing.T) {
	router := newTestRouter(&mockRetriever{}, nil, nil)

	rr := postJSON(t, router, "/v1/search", `{"query": "solar", "posted_after": "yesterday"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSearchEndpoint_AllSourcesFailed(t *testing.T) {
	router := newTestRouter(&mockRetriever{err: domain.ErrAllSourcesFailed}, nil, nil)

	rr := postJSON(t, router, "/v1/search", `{"query": "solar"}`, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Code != codeSourcesFailed {
		t.Errorf("code = %s, want %s", errResp.Code, codeSourcesFailed)
	}
}

func TestSearchEndpoint_InternalError(t *testing.T) {
	router := newTestRouter(&mockRetriever{err: errors.New("boom")}, nil, nil)

	rr := postJSON(t, router, "/v1/search", `{"query": "solar"}`, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("internal error details must not leak to the client")
	}
}

func TestSearchEndpoint_AuthenticatedBypassesCache(t *testing.T) {
	retriever := &mockRetriever{}
	router := newTestRouter(retriever, []string{"secret"}, nil)

	rr := postJSON(t, router, "/v1/search", `{"query": "solar"}`,
		map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if retriever.cacheEligible {
		t.Error("authenticated request must not be cache eligible")
	}
}

func TestContextEndpoint_OK(t *testing.T) {
	retriever := &mockRetriever{page: domain.Page{
		Results: []domain.MergedResult{
			{ID: "job-1", Content: "Solar installer", Sources: []domain.SourceKind{domain.SourceVector}},
		},
		Total: 1,
	}}
	router := newTestRouter(retriever, nil, nil)

	rr := postJSON(t, router, "/v1/context", `{"query": "solar installer"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Context  string `json:"context"`
		DBCount  int    `json:"db_count"`
		WebCount int    `json:"web_count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DBCount != 1 || resp.WebCount != 0 {
		t.Errorf("counts = db:%d web:%d, want 1/0", resp.DBCount, resp.WebCount)
	}
	if !strings.Contains(resp.Context, "Solar installer") {
		t.Errorf("content missing from context: %q", resp.Context)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&mockRetriever{}, nil, nil)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("healthy: status = %d, want 200", rr.Code)
	}

	router = newTestRouter(&mockRetriever{}, nil, errors.New("connection refused"))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: status = %d, want 503", rr.Code)
	}
}
