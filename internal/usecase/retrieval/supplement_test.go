package retrieval

import "testing"

func TestSupplementPolicy_Needs(t *testing.T) {
	p := SupplementPolicy{Threshold: 3}

	tests := []struct {
		merged int
		want   bool
	}{
		{0, true},
		{1, true},
		{2, true},
		{3, false}, // exactly at threshold is sufficient
		{4, false},
	}

	for _, tc := range tests {
		if got := p.Needs(tc.merged); got != tc.want {
			t.Errorf("Needs(%d) = %v, want %v", tc.merged, got, tc.want)
		}
	}
}
