package domain

import (
	"fmt"
	"strings"
	"time"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultCount   = 10
	MaxCount       = 50
)

// Query is a validated retrieval request.
type Query struct {
	text        string
	categories  []string
	postedAfter time.Time
	count       int
	offset      int
}

// NewQuery validates and normalizes retrieval parameters.
// Defaults: count=10. Count is clamped to 50, offset to >= 0.
func NewQuery(
	text string,
	categories []string,
	postedAfter time.Time,
	count, offset int,
) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is required", ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", ErrInvalidQuery, MaxQueryLength)
	}
	for _, c := range categories {
		if strings.TrimSpace(c) == "" {
			return Query{}, fmt.Errorf("%w: empty category filter", ErrInvalidQuery)
		}
	}
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}
	if offset < 0 {
		offset = 0
	}

	return Query{
		text:        text,
		categories:  categories,
		postedAfter: postedAfter,
		count:       count,
		offset:      offset,
	}, nil
}

// Text returns the normalized query text.
func (q *Query) Text() string { return q.text }

// Categories returns the category filter set (nil when unfiltered).
func (q *Query) Categories() []string { return q.categories }

// PostedAfter returns the lower bound of the time-window filter
// (zero when unfiltered).
func (q *Query) PostedAfter() time.Time { return q.postedAfter }

// Count returns the requested result count.
func (q *Query) Count() int { return q.count }

// Offset returns the requested pagination offset.
func (q *Query) Offset() int { return q.offset }
