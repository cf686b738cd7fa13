// Package scrub removes protocol tokens that leaked from a model response
// into a markup payload.
package scrub

import (
	"regexp"
	"strings"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/protocol"
)

var (
	// MESSAGE running into a following three-dash block on the same line.
	messageRunInRe = regexp.MustCompile(`(?m)^[ \t]*` + protocol.KeyMessage + `:[^\n]*?-{3,}[ \t]*`)
	messageLineRe  = regexp.MustCompile(`(?m)^[ \t]*` + protocol.KeyMessage + `:[^\n]*(?:\n|\z)`)

	headerLineRe = regexp.MustCompile(`(?m)^[ \t]*(?:` + strings.Join(protocol.HeaderKeys, "|") + `)[ \t]*:[^\n]*(?:\n|\z)`)

	separatorLineRe = regexp.MustCompile(`(?m)^[ \t]*-{3,}[ \t]*(?:\n|\z)`)

	placeholder = `(?:` + strings.Join([]string{
		`no (?:code|html|markup|changes?) (?:was |were )?(?:generated|needed|required|necessary)`,
		`(?:start|end|begin)(?: of)? (?:the )?(?:section|component|block|content)\b[^\n]*?`,
		`section(?: boundary)?\s*:[^\n]*?`,
		`(?:\.\.\.\s*)?(?:existing|previous|remaining) (?:content|code|sections?|markup)\b[^\n]*?`,
		`(?:\.\.\.\s*)?unchanged\b[^\n]*?`,
		`(?:\.\.\.\s*)?rest of (?:the )?(?:page|document|content|file)\b[^\n]*?`,
	}, "|") + `)`
	// a placeholder comment alone on its line takes the line with it.
	placeholderLineRe = regexp.MustCompile(`(?im)^[ \t]*<!--\s*` + placeholder + `\s*-->[ \t]*(?:\n|\z)`)
	placeholderRe     = regexp.MustCompile(`(?i)<!--\s*` + placeholder + `\s*-->`)

	blankRunRe = regexp.MustCompile(`\n(?:[ \t]*\n){3,}`)
)

// Scrub returns fragment without leaked header lines, separator lines and
// known placeholder comments, with runs of three or more blank lines
// collapsed to one and surrounding whitespace trimmed.
//
// Every step only deletes text, so repeating the pass until nothing changes
// terminates, and the result is a fixpoint: Scrub(Scrub(x)) == Scrub(x).
func Scrub(fragment string) string {
	s := fragment
	for {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
}

func pass(s string) string {
	s = messageRunInRe.ReplaceAllString(s, "")
	s = messageLineRe.ReplaceAllString(s, "")
	s = headerLineRe.ReplaceAllString(s, "")
	s = separatorLineRe.ReplaceAllString(s, "")
	s = placeholderLineRe.ReplaceAllString(s, "")
	s = placeholderRe.ReplaceAllString(s, "")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
