package chatui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

func TestFormatConfidence(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		expected string
	}{
		{"exact", 1.0, "1.00"},
		{"fuzzy", 0.8571, "0.86"},
		{"static", 0.1, "0.10"},
		{"above one", 1.7, "1.00"},
		{"negative", -0.2, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatConfidence(tt.in))
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "60.0%", FormatPercentage(0.6))
}

func TestStrategyBadge(t *testing.T) {
	for _, s := range []strategy.Strategy{strategy.Exact, strategy.Fuzzy, strategy.Generative, strategy.Static} {
		assert.Contains(t, StrategyBadge(s), s.String())
	}
	assert.Contains(t, StrategyBadge(""), "-")
}
