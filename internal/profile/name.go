package profile

import (
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/answerd/internal/textnorm"
)

// leadIns are stripped from the front of a name reply.
var leadIns = []string{
	"my name is ", "my names ", "my name's ", "the name is ", "name is ",
	"you can call me ", "call me ", "i am ", "i'm ", "im ",
	"it is ", "it's ", "its ", "this is ",
}

// maxNameWords bounds how much of a reply is kept as a name.
const maxNameWords = 3

// ParseName extracts a display name from a reply to the name prompt:
// "my name is ada lovelace." -> "Ada Lovelace". It returns "" when nothing
// usable remains, including placeholder names.
func ParseName(utterance string) string {
	s := strings.ToLower(strings.TrimSpace(utterance))
	s = strings.ReplaceAll(s, "’", "'")
	for _, p := range leadIns {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
		if s == strings.TrimSpace(p) {
			s = ""
			break
		}
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), r == '-', r == '\'':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, s)

	words := strings.Fields(s)
	if len(words) > maxNameWords {
		words = words[:maxNameWords]
	}
	name := textnorm.TitleName(strings.Join(words, " "))
	if !(Profile{Name: name}).HasName() {
		return ""
	}
	return name
}
