// Package markup locates elements inside raw HTML-like text without building
// a document tree: a restricted selector is compiled into an opening-tag
// pattern, and the element's extent is found by counting nested tags of the
// same name.
package markup

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Kind identifies which of the supported selector forms a Matcher was built from.
type Kind int

const (
	KindID       Kind = iota // #id
	KindClass                // .class or .a.b
	KindTagClass             // tag.class1.class2
	KindTagID                // tag#id
	KindTag                  // tag
)

func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindClass:
		return "class"
	case KindTagClass:
		return "tag.class"
	case KindTagID:
		return "tag#id"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// matchTimeout bounds a single opening-tag search.
const matchTimeout = 2 * time.Second

const anyTagName = `[A-Za-z][A-Za-z0-9-]*`

var (
	tagNameToken = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
	// ids and classes: anything but blanks, quotes, angle brackets and the
	// selector punctuation itself.
	nameToken = regexp.MustCompile(`^[^\s"'<>=.#]+$`)
)

// Matcher finds opening tags matching one simple selector.
type Matcher struct {
	Selector string // as given
	Simple   string // last simple selector, the one actually matched
	Kind     Kind
	Tag      string
	ID       string
	Classes  []string

	re *regexp2.Regexp
}

// Match is an opening tag found in a document. Index is a byte offset.
type Match struct {
	Index int
	Text  string
}

// Compile translates selector into a Matcher. Only the last simple selector
// is used; descendant and child combinators before it are ignored. ok is
// false for empty or unsupported selectors.
func Compile(selector string) (*Matcher, bool) {
	parts := strings.FieldsFunc(selector, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '>', '+', '~':
			return true
		}
		return false
	})
	if len(parts) == 0 {
		return nil, false
	}
	simple := parts[len(parts)-1]
	m := &Matcher{Selector: selector, Simple: simple}

	switch {
	case strings.HasPrefix(simple, "#"):
		m.Kind = KindID
		m.ID = simple[1:]
		if !nameToken.MatchString(m.ID) {
			return nil, false
		}
	case strings.HasPrefix(simple, "."):
		m.Kind = KindClass
		m.Classes = strings.Split(simple[1:], ".")
	case strings.Contains(simple, "."):
		m.Kind = KindTagClass
		tag, rest, _ := strings.Cut(simple, ".")
		m.Tag = tag
		m.Classes = strings.Split(rest, ".")
	case strings.Contains(simple, "#"):
		m.Kind = KindTagID
		m.Tag, m.ID, _ = strings.Cut(simple, "#")
		if !nameToken.MatchString(m.ID) {
			return nil, false
		}
	default:
		m.Kind = KindTag
		m.Tag = simple
	}

	if m.Tag != "" && !tagNameToken.MatchString(m.Tag) {
		return nil, false
	}
	if (m.Kind == KindTagClass || m.Kind == KindTagID || m.Kind == KindTag) && m.Tag == "" {
		return nil, false
	}
	for _, c := range m.Classes {
		if !nameToken.MatchString(c) {
			return nil, false
		}
	}

	re, err := regexp2.Compile(m.pattern(), regexp2.None)
	if err != nil {
		return nil, false
	}
	re.MatchTimeout = matchTimeout
	m.re = re
	return m, true
}

// pattern builds `<tag` + one lookahead per required attribute + the rest of
// the opening tag. Each lookahead re-scans the attribute list, so class order
// inside the attribute does not matter.
func (m *Matcher) pattern() string {
	var b strings.Builder
	b.WriteString("<")
	if m.Tag == "" {
		b.WriteString(anyTagName)
	} else {
		b.WriteString("(?i:" + regexp2.Escape(m.Tag) + ")")
	}
	b.WriteString(`(?=[\s/>])`)

	q := 0
	quote := func() (open, back string) {
		q++
		name := "q" + strconv.Itoa(q)
		return `(?<` + name + `>["'])`, `\k<` + name + `>`
	}
	if m.ID != "" {
		open, back := quote()
		b.WriteString(`(?=[^>]*?\s(?i:id)\s*=\s*` + open + regexp2.Escape(m.ID) + back + `)`)
	}
	for _, c := range m.Classes {
		open, back := quote()
		b.WriteString(`(?=[^>]*?\s(?i:class)\s*=\s*` + open +
			`(?:[^"'>]*?\s)?` + regexp2.Escape(c) + `(?:\s[^"'>]*)?` + back + `)`)
	}
	b.WriteString(`[^>]*>`)
	return b.String()
}

// FindFirst returns the first opening tag in doc matching the selector.
func (m *Matcher) FindFirst(doc string) (Match, bool) {
	if m == nil || m.re == nil {
		return Match{}, false
	}
	rm, err := m.re.FindStringMatch(doc)
	if err != nil || rm == nil {
		return Match{}, false
	}
	return toMatch(doc, rm), true
}

// FindAll returns every matching opening tag in document order.
func (m *Matcher) FindAll(doc string) []Match {
	if m == nil || m.re == nil {
		return nil
	}
	var out []Match
	rm, err := m.re.FindStringMatch(doc)
	for err == nil && rm != nil {
		out = append(out, toMatch(doc, rm))
		rm, err = m.re.FindNextMatch(rm)
	}
	return out
}

// toMatch converts regexp2's rune offsets into byte offsets of doc.
func toMatch(doc string, rm *regexp2.Match) Match {
	start := byteOffset(doc, rm.Index)
	end := byteOffset(doc, rm.Index+rm.Length)
	return Match{Index: start, Text: doc[start:end]}
}

func byteOffset(s string, runeIdx int) int {
	if runeIdx <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == runeIdx {
			return i
		}
		n++
	}
	return len(s)
}
