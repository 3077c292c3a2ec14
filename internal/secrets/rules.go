package secrets

// Severity levels attached to rules.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// DefaultRules returns the detection rules applied to chat input.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "aws-access-key-id",
			Description: "AWS Access Key ID",
			Pattern:     `\b(?:A3T[A-Z0-9]|AKIA|ASIA|AGPA|AIDA|AROA)[A-Z0-9]{16}\b`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "generic-api-key",
			Description: "Generic API Key",
			Pattern:     `(?i)(?:api[_-]?key|apikey)\s*(?:[:=]|is)\s*['"]?([A-Za-z0-9_\-]{16,64})['"]?`,
			Keywords:    []string{"api", "key"},
			Severity:    SeverityHigh,
		},
		{
			ID:          "password",
			Description: "Password or secret assignment",
			Pattern:     `(?i)(?:secret|password|passwd|pwd)\s*(?:[:=]|is)\s*['"]?([^\s'"]{6,})['"]?`,
			Keywords:    []string{"secret", "password", "passwd", "pwd"},
			Severity:    SeverityHigh,
		},
		{
			ID:          "private-key",
			Description: "Private Key",
			Pattern:     `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "github-token",
			Description: "GitHub Token",
			Pattern:     `\b(?:ghp|gho|ghs|ghu)_[A-Za-z0-9]{36}\b|\bgithub_pat_[A-Za-z0-9_]{82}\b`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "slack-token",
			Description: "Slack Token",
			Pattern:     `\bxox[baprs]-[A-Za-z0-9-]{10,}\b`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "llm-api-key",
			Description: "Hosted model provider API key",
			Pattern:     `\bsk-(?:ant-|proj-)?[A-Za-z0-9_\-]{20,}\b`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "jwt",
			Description: "JSON Web Token",
			Pattern:     `\beyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`,
			Severity:    SeverityMedium,
		},
		{
			ID:          "bearer-token",
			Description: "Bearer Token",
			Pattern:     `(?i)\bbearer\s+[A-Za-z0-9_\-\.=]{20,}`,
			Keywords:    []string{"bearer"},
			Severity:    SeverityMedium,
		},
		{
			ID:          "database-url",
			Description: "Database URL with credentials",
			Pattern:     `(?i)\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis)://[^\s:/]+:[^\s@/]+@[^\s]+`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "payment-card",
			Description: "Payment card number",
			Pattern:     `\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6011)(?:[ -]?\d{4}){2}[ -]?\d{1,4}\b`,
			Severity:    SeverityMedium,
		},
		{
			ID:          "email-address",
			Description: "Email address",
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
			Severity:    SeverityLow,
		},
	}
}
