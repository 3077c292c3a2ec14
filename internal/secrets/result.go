package secrets

// Result contains the scrubbing result.
type Result struct {
	Original string `json:"-"`
	Scrubbed string `json:"scrubbed"`

	// Findings never include the matched value.
	Findings []Finding `json:"findings,omitempty"`

	ByRule map[string]int `json:"by_rule,omitempty"`
}

// Finding represents a detected secret.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index"`
}

// HasFindings returns true if any secrets were found.
func (r *Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// AtLeast reports whether any finding has the given severity or higher.
func (r *Result) AtLeast(severity string) bool {
	floor := rank(severity)
	for _, f := range r.Findings {
		if rank(f.Severity) >= floor {
			return true
		}
	}
	return false
}

// RuleIDs returns the matched rule IDs in first-seen order.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	seen := make(map[string]bool, len(r.ByRule))
	for _, f := range r.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	return ids
}

func rank(severity string) int {
	switch severity {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}
