package directive

import (
	"strings"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/markup"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/protocol"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/scrub"
)

// ExtractPartial returns the best markup fragment available in a response
// that may still be arriving. It takes everything after the second separator
// or, before that exists, everything from the first block-level tag. A tag
// cut off at the end of the text is dropped. ok is false while no markup can
// be found yet.
func ExtractPartial(raw string) (string, bool) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	var frag string
	if segs := splitSegments(text); len(segs) > 2 {
		frag = strings.Join(segs[2:], "\n---\n")
	} else if i := markup.FirstBlockTag(text); i >= 0 {
		frag = text[i:]
	} else {
		return "", false
	}

	frag = protocol.StripFences(frag)
	// a closing fence may be half written
	frag = strings.TrimRight(frag, "`")
	frag = trimOpenTag(frag)
	frag = scrub.Scrub(frag)
	if !strings.Contains(frag, "<") {
		return "", false
	}
	return frag, true
}

// trimOpenTag cuts s before a trailing '<' that has no closing '>' yet.
func trimOpenTag(s string) string {
	lt := strings.LastIndexByte(s, '<')
	if lt < 0 || strings.IndexByte(s[lt:], '>') >= 0 {
		return s
	}
	return s[:lt]
}
