package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/climatejobs/rankd/internal/domain"
	contextuc "github.com/climatejobs/rankd/internal/usecase/contextbuild"
	healthuc "github.com/climatejobs/rankd/internal/usecase/health"
)

// Error codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeSourcesFailed    = "all_sources_failed"
	codeInternalError    = "internal_error"
)

// Retriever runs the full retrieval pipeline.
type Retriever interface {
	Search(ctx context.Context, q domain.Query, cacheEligible bool) (domain.Page, error)
}

// Server exposes the retrieval API over chi.
type Server struct {
	retrieval Retriever
	contexts  *contextuc.Builder
	health    *healthuc.Service
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(retrieval Retriever, contexts *contextuc.Builder, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{retrieval: retrieval, contexts: contexts, health: health, logger: logger}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/search", s.handleSearch)
	r.Post("/v1/context", s.handleContext)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// searchRequest is the POST /v1/search body.
type searchRequest struct {
	Query       string   `json:"query"`
	Categories  []string `json:"categories,omitempty"`
	PostedAfter string   `json:"posted_after,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Offset      int      `json:"offset,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	page, err := s.retrieval.Search(r.Context(), q, !Authenticated(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if page.Results == nil {
		page.Results = []domain.MergedResult{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	block, err := s.contexts.Build(r.Context(), q, !Authenticated(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// decodeQuery parses and validates the common request body. Writes the
// error response itself on failure.
func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (domain.Query, bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return domain.Query{}, false
	}

	var postedAfter time.Time
	if req.PostedAfter != "" {
		parsed, err := time.Parse(time.RFC3339, req.PostedAfter)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "posted_after must be RFC 3339")
			return domain.Query{}, false
		}
		postedAfter = parsed
	}

	q, err := domain.NewQuery(req.Query, req.Categories, postedAfter, req.Limit, req.Offset)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, safeDomainMessage(err))
		return domain.Query{}, false
	}
	return q, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, codeValidationFailed, safeDomainMessage(err))
	case errors.Is(err, domain.ErrAllSourcesFailed):
		writeError(w, http.StatusServiceUnavailable, codeSourcesFailed, safeDomainMessage(err))
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, codeInternalError, safeDomainMessage(err))
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// safeDomainMessage returns a sentinel error message without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrAllSourcesFailed,
		domain.ErrEmbeddingProviderError,
		domain.ErrUnsupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
