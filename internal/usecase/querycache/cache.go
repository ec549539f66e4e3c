package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/climatejobs/rankd/internal/db"
	"github.com/climatejobs/rankd/internal/domain"
	"github.com/climatejobs/rankd/internal/logger"
)

// fingerprintTextLimit caps how much query text participates in the
// fingerprint. Queries differing only past this prefix share an entry.
const fingerprintTextLimit = 64

// kv is the consumer interface for cache storage (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores finished result pages keyed by a query fingerprint.
// Expiry is enforced on read from the stored envelope, so a zero TTL
// means entries are written but never served.
type Cache struct {
	store     kv
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a query cache with the given entry TTL.
func New(store kv, keyPrefix string, ttl time.Duration) *Cache {
	return &Cache{store: store, keyPrefix: keyPrefix, ttl: ttl, now: time.Now}
}

// envelope is the stored JSON shape. CreatedAt and TTL travel with the
// payload so expiry survives backends without native TTL semantics.
type envelope struct {
	CreatedAt  int64   `json:"created_at"`
	TTLSeconds int64   `json:"ttl_seconds"`
	Payload    payload `json:"payload"`
}

type payload struct {
	Results []domain.MergedResult `json:"results"`
	Total   int                   `json:"total"`
}

// Get returns the cached page for the query. Any storage or decode
// problem degrades to a miss.
func (c *Cache) Get(ctx context.Context, q domain.Query) ([]domain.MergedResult, int, bool) {
	log := logger.FromContext(ctx)

	raw, err := c.store.Get(ctx, c.key(q))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			log.Warn("query cache read failed", zap.Error(err))
		}
		return nil, 0, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn("query cache entry corrupt", zap.Error(err))
		return nil, 0, false
	}

	age := c.now().Unix() - env.CreatedAt
	if env.TTLSeconds <= 0 || age >= env.TTLSeconds {
		return nil, 0, false
	}

	return env.Payload.Results, env.Payload.Total, true
}

// Put stores a finished page under the query fingerprint.
func (c *Cache) Put(ctx context.Context, q domain.Query, results []domain.MergedResult, total int) error {
	env := envelope{
		CreatedAt:  c.now().Unix(),
		TTLSeconds: int64(c.ttl.Seconds()),
		Payload:    payload{Results: results, Total: total},
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	key := c.key(q)
	if c.ttl > 0 {
		if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
			return fmt.Errorf("cache set %s: %w", key, err)
		}
		return nil
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) key(q domain.Query) string {
	return c.keyPrefix + "qcache:" + Fingerprint(q)
}

// Fingerprint derives the cache identity of a query: normalized text
// prefix plus the filters and page window that change the served page.
func Fingerprint(q domain.Query) string {
	text := strings.ToLower(strings.TrimSpace(q.Text()))
	if len(text) > fingerprintTextLimit {
		text = text[:fingerprintTextLimit]
	}

	cats := append([]string(nil), q.Categories()...)
	sort.Strings(cats)

	var postedAfter int64
	if !q.PostedAfter().IsZero() {
		postedAfter = q.PostedAfter().Unix()
	}

	canonical := fmt.Sprintf("%s|%s|%d|%d|%d",
		text, strings.Join(cats, ","), postedAfter, q.Count(), q.Offset())

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
