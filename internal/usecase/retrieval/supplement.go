package retrieval

// SupplementPolicy decides when corpus retrieval is too thin and the web
// source should be consulted.
type SupplementPolicy struct {
	// Threshold is the minimum merged result count considered sufficient.
	Threshold int
}

// Needs reports whether the merged count falls short of the threshold.
// A count exactly at the threshold is sufficient.
func (p SupplementPolicy) Needs(merged int) bool {
	return merged < p.Threshold
}
