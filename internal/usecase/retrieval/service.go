package retrieval

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/climatejobs/rankd/internal/domain"
	"github.com/climatejobs/rankd/internal/logger"
	"github.com/climatejobs/rankd/internal/metrics"
)

// DefaultSourceTimeout bounds a single source call.
const DefaultSourceTimeout = 2 * time.Second

// Service orchestrates the retrieval pipeline: concurrent corpus sources,
// optional web supplement, merge, rank, paginate.
type Service struct {
	primaries     [2]SourceClient
	web           SourceClient
	cache         ResultCache
	policy        SupplementPolicy
	sourceTimeout time.Duration
	merger        *Merger
}

// Option configures the retrieval service.
type Option func(*Service)

// WithWeb attaches the web supplement source.
func WithWeb(web SourceClient) Option {
	return func(s *Service) { s.web = web }
}

// WithCache attaches a result cache for anonymous queries.
func WithCache(cache ResultCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithPolicy overrides the supplement policy.
func WithPolicy(policy SupplementPolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithSourceTimeout overrides the per-source timeout.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sourceTimeout = d
		}
	}
}

// New creates the retrieval service over the two corpus sources.
func New(vector, keyword SourceClient, opts ...Option) *Service {
	s := &Service{
		primaries:     [2]SourceClient{vector, keyword},
		policy:        SupplementPolicy{Threshold: 3},
		sourceTimeout: DefaultSourceTimeout,
		merger:        NewMerger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sourceOutcome is one source invocation as seen by the orchestrator.
type sourceOutcome struct {
	kind    domain.SourceKind
	status  domain.Status
	results []domain.SourceResult
}

// Search runs the full pipeline for a validated query. cacheEligible marks
// anonymous traffic that may be served from and stored to the result cache.
// Returns domain.ErrAllSourcesFailed when every invoked source errored or
// timed out.
func (s *Service) Search(ctx context.Context, q domain.Query, cacheEligible bool) (domain.Page, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	if s.cache != nil {
		if !cacheEligible {
			metrics.QueryCacheTotal.WithLabelValues("bypass").Inc()
		} else if results, total, ok := s.cache.Get(ctx, q); ok {
			metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
			return domain.Page{
				Results:   results,
				Total:     total,
				TookMS:    time.Since(start).Milliseconds(),
				FromCache: true,
			}, nil
		} else {
			metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	outcomes := s.fetchPrimaries(ctx, q)

	batches := make([][]domain.SourceResult, 0, 3)
	for _, o := range outcomes {
		batches = append(batches, o.results)
	}
	merged := s.merger.Merge(batches...)

	if s.web != nil && s.policy.Needs(len(merged)) {
		metrics.SupplementTotal.Inc()
		log.Debug("supplementing with web results",
			zap.Int("merged_count", len(merged)),
			zap.Int("threshold", s.policy.Threshold))

		webOutcome := s.fetchOne(ctx, s.web, q)
		outcomes = append(outcomes, webOutcome)
		batches = append(batches, webOutcome.results)
		merged = s.merger.Merge(batches...)
	}

	if allFailed(outcomes) {
		return domain.Page{}, domain.ErrAllSourcesFailed
	}

	Rank(merged)

	page := domain.Page{
		Results: Paginate(merged, q.Offset(), q.Count()),
		Total:   len(merged),
		TookMS:  time.Since(start).Milliseconds(),
	}

	if s.cache != nil && cacheEligible {
		if err := s.cache.Put(ctx, q, page.Results, page.Total); err != nil {
			log.Warn("cache put failed", zap.Error(err))
		}
	}

	return page, nil
}

// fetchPrimaries runs the corpus sources concurrently, one goroutine per
// slot, each under its own timeout.
func (s *Service) fetchPrimaries(ctx context.Context, q domain.Query) []sourceOutcome {
	var (
		wg       sync.WaitGroup
		outcomes [2]sourceOutcome
	)

	for i, client := range s.primaries {
		wg.Add(1)
		go func(i int, client SourceClient) {
			defer wg.Done()
			outcomes[i] = s.fetchOne(ctx, client, q)
		}(i, client)
	}
	wg.Wait()

	return outcomes[:]
}

// fetchOne calls a single source under the per-source timeout and derives
// its status from the returned error.
func (s *Service) fetchOne(ctx context.Context, client SourceClient, q domain.Query) sourceOutcome {
	log := logger.FromContext(ctx)
	kind := client.Kind()

	fctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	start := time.Now()
	results, err := client.Fetch(fctx, q)
	duration := time.Since(start)

	status := statusOf(err)
	metrics.SourceRequestsTotal.WithLabelValues(string(kind), string(status)).Inc()
	metrics.SourceRequestDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())

	switch status {
	case domain.StatusOK:
		log.Debug("source fetch complete",
			zap.String("source", string(kind)),
			zap.Int("results", len(results)),
			zap.Duration("duration", duration))
	case domain.StatusUnsupported:
		log.Debug("source unsupported", zap.String("source", string(kind)))
	default:
		log.Warn("source fetch failed",
			zap.String("source", string(kind)),
			zap.String("status", string(status)),
			zap.Duration("duration", duration),
			zap.Error(err))
		results = nil
	}

	return sourceOutcome{kind: kind, status: status, results: results}
}

func statusOf(err error) domain.Status {
	switch {
	case err == nil:
		return domain.StatusOK
	case errors.Is(err, domain.ErrUnsupported):
		return domain.StatusUnsupported
	case errors.Is(err, context.DeadlineExceeded):
		return domain.StatusTimeout
	default:
		return domain.StatusError
	}
}

// allFailed reports whether every invoked source errored or timed out.
// Unsupported sources never count toward total failure.
func allFailed(outcomes []sourceOutcome) bool {
	failed := 0
	for _, o := range outcomes {
		switch o.status {
		case domain.StatusOK, domain.StatusUnsupported:
			return false
		case domain.StatusError, domain.StatusTimeout:
			failed++
		}
	}
	return failed > 0
}
