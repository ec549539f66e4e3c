package retrieval

import "github.com/climatejobs/rankd/internal/domain"

// Paginate slices the ranked list to the requested window. An offset past
// the end yields an empty page, never an error.
func Paginate(results []domain.MergedResult, offset, limit int) []domain.MergedResult {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = domain.DefaultCount
	}
	if limit > domain.MaxCount {
		limit = domain.MaxCount
	}
	if offset >= len(results) {
		return []domain.MergedResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
