package secrets

import (
	"cmp"
	"slices"
	"strings"
)

// Scrubber detects and redacts secrets from text.
type Scrubber interface {
	// Scrub redacts secrets from the content.
	Scrub(content string) *Result

	// Check detects secrets without redacting.
	Check(content string) *Result

	IsEnabled() bool
}

type scrubber struct {
	config *Config
}

type span struct {
	start, end int
}

// New creates a Scrubber. A nil config selects DefaultConfig().
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &scrubber{config: cfg}, nil
}

// MustNew creates a Scrubber, panicking on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *scrubber) Scrub(content string) *Result {
	result := &Result{
		Original: content,
		Scrubbed: content,
		ByRule:   make(map[string]int),
	}
	if !s.config.Enabled {
		return result
	}

	var spans []span
	for _, rule := range s.config.compiledRules {
		if len(rule.keywords) > 0 && !anyMatch(rule.keywords, content) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(content, -1) {
			if s.isAllowed(content[m[0]:m[1]]) {
				continue
			}
			result.Findings = append(result.Findings, Finding{
				RuleID:      rule.ID,
				Description: rule.Description,
				Severity:    rule.Severity,
				StartIndex:  m[0],
				EndIndex:    m[1],
			})
			result.ByRule[rule.ID]++
			spans = append(spans, span{m[0], m[1]})
		}
	}

	if len(spans) > 0 {
		result.Scrubbed = redact(content, spans, s.config.RedactionString)
	}
	return result
}

func (s *scrubber) Check(content string) *Result {
	result := s.Scrub(content)
	result.Scrubbed = result.Original
	return result
}

func (s *scrubber) IsEnabled() bool {
	return s.config.Enabled
}

func (s *scrubber) isAllowed(match string) bool {
	return anyMatch(s.config.compiledAllowList, match)
}

func anyMatch[T interface{ MatchString(string) bool }](patterns []T, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// redact replaces the union of spans with repl.
func redact(content string, spans []span, repl string) string {
	slices.SortFunc(spans, func(a, b span) int { return cmp.Compare(a.start, b.start) })

	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			last.end = max(last.end, sp.end)
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	prev := 0
	for _, sp := range merged {
		b.WriteString(content[prev:sp.start])
		b.WriteString(repl)
		prev = sp.end
	}
	b.WriteString(content[prev:])
	return b.String()
}

// NoopScrubber passes content through unchanged.
type NoopScrubber struct{}

func (NoopScrubber) Scrub(content string) *Result {
	return &Result{Original: content, Scrubbed: content, ByRule: map[string]int{}}
}

func (n NoopScrubber) Check(content string) *Result { return n.Scrub(content) }

func (NoopScrubber) IsEnabled() bool { return false }

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = NoopScrubber{}
)
