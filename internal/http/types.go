package http

import (
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/profile"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status    string          `json:"status"` // "ok" or "degraded"
	Version   string          `json:"version,omitempty"`
	Knowledge knowledge.Stats `json:"knowledge"`
	Session   SessionStatus   `json:"session"`
}

// SessionStatus describes the conversation the server is holding.
type SessionStatus struct {
	ID           string        `json:"id"`
	State        profile.State `json:"state"`
	Interactions int           `json:"interactions"`
	Turns        int           `json:"turns"`
	Ended        bool          `json:"ended"`
}

// AskRequest is the request body for POST /api/v1/ask.
type AskRequest struct {
	Utterance string `json:"utterance"`
}

// TeachRequest is the request body for POST /api/v1/teach.
type TeachRequest struct {
	Answer   string   `json:"answer"`
	Variants []string `json:"variants"`

	// Replace rebinds variants already bound to another answer instead of
	// rejecting them.
	Replace bool `json:"replace"`
}

// TeachResponse is the response body for POST /api/v1/teach.
type TeachResponse struct {
	ID       string           `json:"id"`
	Answer   string           `json:"answer"`
	Variants []string         `json:"variants"`
	Source   knowledge.Source `json:"source"`

	// Warning is set when the answer could not be written to the
	// knowledge file and lives in memory only.
	Warning string `json:"warning,omitempty"`
}
