package assistant

import (
	"strings"

	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

var farewells = map[string]struct{}{
	"goodbye": {}, "good bye": {}, "bye": {}, "bye bye": {},
	"see you": {}, "see you later": {}, "see ya": {},
	"exit": {}, "quit": {}, "stop program": {}, "shut down": {}, "shutdown": {},
	"turn off": {},
}

// IsFarewell reports whether utterance ends the conversation. Whole
// phrases only: "how do i exit vim" is a question, not a goodbye.
func IsFarewell(utterance string) bool {
	n := textnorm.Normalize(utterance)
	if _, ok := farewells[n]; ok {
		return true
	}
	return strings.HasPrefix(n, "goodbye ") || strings.HasPrefix(n, "bye ")
}
