package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/config"
)

// Config holds the coordinator's policy.
type Config struct {
	// GenerativeTimeout bounds a single generative call. A call that runs
	// longer is treated as "no answer".
	GenerativeTimeout time.Duration

	// GenerativeConfidence is reported for generative answers. It must stay
	// below the fuzzy threshold so a stored answer always outranks one.
	GenerativeConfidence float64

	// StaticConfidence is reported for static replies.
	StaticConfidence float64

	// HistoryTurns is how many recent turns go into the generative prompt.
	HistoryTurns int
}

// DefaultConfig returns the defaults: 15s timeout, confidences 0.6 and 0.1,
// three turns of history.
func DefaultConfig() Config {
	return Config{
		GenerativeTimeout:    15 * time.Second,
		GenerativeConfidence: 0.6,
		StaticConfidence:     0.1,
		HistoryTurns:         3,
	}
}

// FromSettings builds a Config from the loaded configuration.
func FromSettings(c *config.Config) Config {
	return Config{
		GenerativeTimeout:    c.Generative.Timeout.Duration(),
		GenerativeConfidence: c.Generative.Confidence,
		StaticConfidence:     c.Static.Confidence,
		HistoryTurns:         c.Generative.HistoryTurns,
	}
}

// Validate checks the confidence ordering against the fuzzy threshold.
func (c Config) Validate(fuzzyThreshold float64) error {
	if c.GenerativeTimeout <= 0 {
		return errors.New("generative timeout must be positive")
	}
	if c.GenerativeConfidence >= fuzzyThreshold {
		return fmt.Errorf("generative confidence %v must be below fuzzy threshold %v",
			c.GenerativeConfidence, fuzzyThreshold)
	}
	if c.StaticConfidence > c.GenerativeConfidence {
		return fmt.Errorf("static confidence %v must not exceed generative confidence %v",
			c.StaticConfidence, c.GenerativeConfidence)
	}
	if c.HistoryTurns < 0 {
		return errors.New("history turns must not be negative")
	}
	return nil
}
