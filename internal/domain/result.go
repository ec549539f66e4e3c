package domain

import "time"

// SourceKind identifies the retrieval source a result came from.
type SourceKind string

const (
	SourceVector  SourceKind = "vector"
	SourceKeyword SourceKind = "keyword"
	SourceWeb     SourceKind = "web"
)

// Status is the per-source outcome of a retrieval call.
type Status string

const (
	StatusOK          Status = "ok"
	StatusTimeout     Status = "timeout"
	StatusError       Status = "error"
	StatusUnsupported Status = "unsupported"
)

// SourceResult is one record as returned by a single source, normalized
// into the common shape. Request-scoped, never persisted.
type SourceResult struct {
	ID           string
	Content      string
	Category     string
	RawRelevance float64
	Kind         SourceKind
	Rank         int // source-native position, 0-based
	URL          string
	PostedAt     time.Time
	Attributes   map[string]string
}

// MergedResult is the deduplicated union of all SourceResults sharing an
// identity key. CompositeScore is valid only after the ranking stage.
type MergedResult struct {
	ID              string                `json:"id"`
	Content         string                `json:"content"`
	Category        string                `json:"category,omitempty"`
	Sources         []SourceKind          `json:"sources"`
	ComponentScores map[SourceKind]float64 `json:"component_scores"`
	CompositeScore  float64               `json:"score"`
	WebRank         int                   `json:"-"`
	URL             string                `json:"url,omitempty"`
	PostedAt        time.Time             `json:"posted_at,omitzero"`
	Attributes      map[string]string     `json:"attributes,omitempty"`
}

// HasSource reports whether the given source contributed to this result.
func (m *MergedResult) HasSource(k SourceKind) bool {
	for _, s := range m.Sources {
		if s == k {
			return true
		}
	}
	return false
}

// Page is a ranked, paginated slice of merged results.
type Page struct {
	Results   []MergedResult `json:"results"`
	Total     int            `json:"total_count"`
	TookMS    int64          `json:"timing_ms"`
	FromCache bool           `json:"from_cache"`
}
