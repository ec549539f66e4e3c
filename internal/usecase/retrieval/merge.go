package retrieval

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/climatejobs/rankd/internal/domain"
)

// KeyFunc derives the identity key used to deduplicate results.
type KeyFunc func(domain.SourceResult) string

// Merger deduplicates source results into merged records. Identity keys
// are derived per source kind; corpus sources key on the document ID while
// web results live in their own "web:" namespace, so a web hit can never
// collapse into a corpus record.
type Merger struct {
	keys map[domain.SourceKind]KeyFunc
}

// NewMerger creates a merger with the default per-kind key functions.
func NewMerger() *Merger {
	return &Merger{
		keys: map[domain.SourceKind]KeyFunc{
			domain.SourceVector:  corpusKey,
			domain.SourceKeyword: corpusKey,
			domain.SourceWeb:     webKey,
		},
	}
}

// WithKeyFunc overrides the key function for one source kind.
func (m *Merger) WithKeyFunc(kind domain.SourceKind, fn KeyFunc) *Merger {
	m.keys[kind] = fn
	return m
}

// Merge combines result batches into deduplicated records. First-seen
// order is preserved; the ranking stage establishes the final order.
// Per-source component scores keep the maximum relevance seen for a kind.
func (m *Merger) Merge(batches ...[]domain.SourceResult) []domain.MergedResult {
	var (
		out   []domain.MergedResult
		index = make(map[string]int)
	)

	for _, batch := range batches {
		for _, r := range batch {
			keyFn, ok := m.keys[r.Kind]
			if !ok {
				keyFn = corpusKey
			}
			key := keyFn(r)

			i, seen := index[key]
			if !seen {
				out = append(out, domain.MergedResult{
					ID:              key,
					Content:         r.Content,
					Category:        r.Category,
					Sources:         []domain.SourceKind{r.Kind},
					ComponentScores: map[domain.SourceKind]float64{r.Kind: r.RawRelevance},
					WebRank:         -1,
					URL:             r.URL,
					PostedAt:        r.PostedAt,
					Attributes:      r.Attributes,
				})
				i = len(out) - 1
				index[key] = i
				if r.Kind == domain.SourceWeb {
					out[i].WebRank = r.Rank
				}
				continue
			}

			merged := &out[i]
			if !merged.HasSource(r.Kind) {
				merged.Sources = append(merged.Sources, r.Kind)
			}
			if r.RawRelevance > merged.ComponentScores[r.Kind] {
				merged.ComponentScores[r.Kind] = r.RawRelevance
			}
			if len(r.Content) > len(merged.Content) {
				merged.Content = r.Content
			}
			if merged.Category == "" {
				merged.Category = r.Category
			}
			if merged.URL == "" {
				merged.URL = r.URL
			}
			if merged.PostedAt.IsZero() {
				merged.PostedAt = r.PostedAt
			}
			if r.Kind == domain.SourceWeb && (merged.WebRank < 0 || r.Rank < merged.WebRank) {
				merged.WebRank = r.Rank
			}
			for k, v := range r.Attributes {
				if merged.Attributes == nil {
					merged.Attributes = make(map[string]string)
				}
				if _, exists := merged.Attributes[k]; !exists {
					merged.Attributes[k] = v
				}
			}
		}
	}

	return out
}

func corpusKey(r domain.SourceResult) string {
	return r.ID
}

// webKey namespaces web results under "web:" keyed by normalized URL,
// falling back to a content hash when the hit has no URL.
func webKey(r domain.SourceResult) string {
	if r.URL != "" {
		return "web:" + normalizeURL(r.URL)
	}
	content := r.Content
	if len(content) > 200 {
		content = content[:200]
	}
	h := fnv.New64a()
	h.Write([]byte(content))
	return fmt.Sprintf("web:%x", h.Sum64())
}

// normalizeURL lowercases scheme and host, and strips fragments and
// trailing slashes, so trivially different spellings of one page dedupe.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
