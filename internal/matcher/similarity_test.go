package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"cloud", "clouds", 1},
		{"flaw", "lawn", 2},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, levenshtein(tt.b, tt.a))
		})
	}
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, jaccard(nil, nil), 1e-9)
	assert.InDelta(t, 1.0, jaccard([]string{"a", "b"}, []string{"b", "a"}), 1e-9)
	assert.InDelta(t, 0.5, jaccard([]string{"a", "b"}, []string{"a"}), 1e-9)
	assert.InDelta(t, 0.0, jaccard([]string{"a"}, []string{"b"}), 1e-9)
	assert.InDelta(t, 1.0/3, jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
}

func TestSimilarity(t *testing.T) {
	cfg := DefaultConfig()

	assert.InDelta(t, 1.0, cfg.Similarity([]string{"cloud"}, []string{"cloud"}), 1e-9)

	// one shared token of two, "cloud" vs "cloud types": edit 1-6/11
	got := cfg.Similarity([]string{"cloud"}, []string{"cloud", "types"})
	assert.InDelta(t, 0.6*0.5+0.4*(1-6.0/11), got, 1e-9)

	s := cfg.Similarity([]string{"rain"}, []string{"blockchain"})
	assert.GreaterOrEqual(t, s, 0.0)
	assert.Less(t, s, 0.5)
}

func TestScore_PruneIsUpperBound(t *testing.T) {
	cfg := DefaultConfig()
	a := []string{"quantum", "entanglement"}
	b := []string{"rain"}

	full := cfg.score(a, b, -1)
	pruned := cfg.score(a, b, 0.99)
	assert.GreaterOrEqual(t, pruned, full)
	assert.Less(t, pruned, 0.99)
}
