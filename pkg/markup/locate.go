package markup

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// voidElements never have a body, whether or not they are written with "/>".
var voidElements = map[string]bool{
	"img":   true,
	"br":    true,
	"hr":    true,
	"input": true,
	"meta":  true,
	"link":  true,
}

var openTagNameRe = regexp.MustCompile(`^<\s*([A-Za-z][A-Za-z0-9-]*)`)

// Element is the span of a located element, closing tag included.
// Start and End are byte offsets into the document; Text == doc[Start:End].
type Element struct {
	Start int
	End   int
	Text  string
	Void  bool
}

// TagName returns the lower-cased tag name of an opening tag, or "".
func TagName(openTag string) string {
	m := openTagNameRe.FindStringSubmatch(openTag)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// IsVoid reports whether the opening tag has no body.
func IsVoid(openTag string) bool {
	return voidElements[TagName(openTag)] || strings.HasSuffix(strings.TrimSpace(openTag), "/>")
}

// Locate finds the element that starts with openTag at byte offset openIdx.
// It scans forward counting opening and closing tags of the same name until
// the depth returns to zero. ok is false when openTag is not at openIdx or
// the element is never closed.
func Locate(doc string, openIdx int, openTag string) (Element, bool) {
	if openIdx < 0 || openIdx+len(openTag) > len(doc) || doc[openIdx:openIdx+len(openTag)] != openTag {
		return Element{}, false
	}
	name := TagName(openTag)
	if name == "" {
		return Element{}, false
	}
	if IsVoid(openTag) {
		end := openIdx + len(openTag)
		return Element{Start: openIdx, End: end, Text: openTag, Void: true}, true
	}

	// The tokenizer starts on the opening tag itself so that it switches to
	// raw-text mode for script, style, textarea and title bodies.
	z := html.NewTokenizer(strings.NewReader(doc[openIdx:]))
	offset := 0
	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return Element{}, false
		}
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			n, _ := z.TagName()
			if string(n) == name {
				depth++
			} else if depth == 0 {
				return Element{}, false
			}
		case html.EndTagToken:
			if depth == 0 {
				return Element{}, false
			}
			n, _ := z.TagName()
			if string(n) == name {
				depth--
				if depth == 0 {
					end := openIdx + offset
					return Element{Start: openIdx, End: end, Text: doc[openIdx:end]}, true
				}
			}
		default:
			if depth == 0 {
				return Element{}, false
			}
		}
	}
}

// Find compiles selector, takes its first match in doc and locates the
// whole element.
func Find(doc, selector string) (Element, bool) {
	m, ok := Compile(selector)
	if !ok {
		return Element{}, false
	}
	match, ok := m.FindFirst(doc)
	if !ok {
		return Element{}, false
	}
	return Locate(doc, match.Index, match.Text)
}
