package generative

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/answerd/internal/conversation"
)

// PromptInput is everything the prompt may draw on.
type PromptInput struct {
	Utterance string
	UserName  string
	History   []conversation.Turn // oldest first
}

// BuildPrompt renders the user turn sent to the backend. Recent turns are
// included so follow-ups make sense; the user's name lets the answer be
// addressed personally.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	if in.UserName != "" {
		fmt.Fprintf(&b, "You are talking with %s.\n", in.UserName)
	}
	if len(in.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range in.History {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.Utterance, t.Answer)
		}
	}
	fmt.Fprintf(&b, "The user asked: %q. Answer briefly.", strings.TrimSpace(in.Utterance))
	return b.String()
}
