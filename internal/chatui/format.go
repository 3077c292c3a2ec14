package chatui

import (
	"fmt"

	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

// FormatConfidence formats a confidence in [0,1] as "0.87".
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.2f", clamp(c))
}

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// StrategyBadge renders the winning strategy with a color per tier:
// stored answers green, generative yellow, static red.
func StrategyBadge(s strategy.Strategy) string {
	switch s {
	case strategy.Exact, strategy.Fuzzy:
		return healthyStyle.Render("[" + s.String() + "]")
	case strategy.Generative:
		return warningStyle.Render("[" + s.String() + "]")
	case strategy.Static:
		return errorStyle.Render("[" + s.String() + "]")
	default:
		return dimStyle.Render("[-]")
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
