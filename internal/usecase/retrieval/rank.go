package retrieval

import (
	"sort"

	"github.com/climatejobs/rankd/internal/domain"
)

// Composite score weights. Web contribution decays with the result's
// position in the provider's ranking and never goes negative.
const (
	vectorWeight  = 0.7
	keywordWeight = 0.5
	webRankDecay  = 0.1
)

// Rank computes composite scores in place and orders results by score
// descending. Results carrying a non-zero vector or keyword component
// always order before web-only results, regardless of composite score:
// supplements fill out a thin page, they never displace corpus matches.
// Ties break to the newer posting, then to the smaller ID, so identical
// inputs always produce identical orderings.
func Rank(results []domain.MergedResult) {
	for i := range results {
		results[i].CompositeScore = compositeScore(&results[i])
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if pa, pb := hasPrimaryScore(a), hasPrimaryScore(b); pa != pb {
			return pa
		}
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if !a.PostedAt.Equal(b.PostedAt) {
			return a.PostedAt.After(b.PostedAt)
		}
		return a.ID < b.ID
	})
}

func hasPrimaryScore(m *domain.MergedResult) bool {
	return m.ComponentScores[domain.SourceVector] > 0 ||
		m.ComponentScores[domain.SourceKeyword] > 0
}

func compositeScore(m *domain.MergedResult) float64 {
	score := vectorWeight*m.ComponentScores[domain.SourceVector] +
		keywordWeight*m.ComponentScores[domain.SourceKeyword]

	if m.HasSource(domain.SourceWeb) && m.WebRank >= 0 {
		web := m.ComponentScores[domain.SourceWeb] * (1 - webRankDecay*float64(m.WebRank))
		if web > 0 {
			score += web
		}
	}
	return score
}
