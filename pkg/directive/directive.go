// Package directive parses the semi-structured text a generative model
// answers with into typed edits: the page Directive, plus the sibling block
// grammars for components, sections, design tokens, menus and entries.
//
// A response is written as
//
//	MESSAGE: what was done
//	---
//	OPERATION: add
//	POSITION: end
//	---
//	<section id="hero">...</section>
//
// Parsing never fails loudly: an unusable response yields ok == false.
package directive

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OperationKind is what a Directive does to the document.
type OperationKind int

const (
	Insert OperationKind = iota
	Replace
	Delete
	ReplaceDocument
)

func (k OperationKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Replace:
		return "replace"
	case Delete:
		return "delete"
	case ReplaceDocument:
		return "replace_document"
	default:
		return fmt.Sprintf("OperationKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OperationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NeedsFragment reports whether the operation is meaningless without markup.
func (k OperationKind) NeedsFragment() bool {
	return k != Delete
}

// Position is where an Insert goes.
type Position int

const (
	End Position = iota
	Start
	Before
	After
)

func (p Position) String() string {
	switch p {
	case Start:
		return "start"
	case End:
		return "end"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ComponentKind classifies a reusable structural region.
type ComponentKind int

const (
	Header ComponentKind = iota + 1
	Footer
)

func (c ComponentKind) String() string {
	switch c {
	case Header:
		return "header"
	case Footer:
		return "footer"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c ComponentKind) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ClassificationHint marks a fragment that could be saved as a reusable
// header or footer component.
type ClassificationHint struct {
	Kind          ComponentKind `json:"kind"`
	SuggestedName string        `json:"suggested_name"`
}

// Directive is one parsed page edit. It is a value: the applicator receives a
// copy and never changes it.
type Directive struct {
	Message  string              `json:"message"`
	Kind     OperationKind       `json:"operation"`
	Position Position            `json:"position"`
	Target   string              `json:"target,omitempty"`
	Selector string              `json:"selector,omitempty"`
	Fragment string              `json:"fragment"`
	Hint     *ClassificationHint `json:"classification_hint,omitempty"`
}

var operationWords = map[string]OperationKind{
	"add":    Insert,
	"insert": Insert,
	"append": Insert,
	"create": Insert,

	"modify":  Replace,
	"replace": Replace,
	"update":  Replace,
	"edit":    Replace,
	"change":  Replace,

	"delete": Delete,
	"remove": Delete,

	"replace_all":      ReplaceDocument,
	"replace_document": ReplaceDocument,
	"replace_page":     ReplaceDocument,
	"full":             ReplaceDocument,
	"rewrite":          ReplaceDocument,
	"new_page":         ReplaceDocument,
}

var positionWords = map[string]Position{
	"start":     Start,
	"top":       Start,
	"beginning": Start,
	"prepend":   Start,
	"end":       End,
	"bottom":    End,
	"append":    End,
	"before":    Before,
	"after":     After,
}

// normalizeWord lower-cases a header value and folds blanks and dashes to
// underscores so "Replace-All" and "replace all" read the same.
func normalizeWord(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.Trim(v, `"'.`)
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
}

// ParseOperation maps an OPERATION header value to its kind.
func ParseOperation(v string) (OperationKind, bool) {
	k, ok := operationWords[normalizeWord(v)]
	return k, ok
}

// ParsePosition maps a POSITION header value; anything unknown is End.
func ParsePosition(v string) Position {
	if p, ok := positionWords[normalizeWord(v)]; ok {
		return p
	}
	return End
}

// ParseComponentKind maps "header" / "footer" in any case.
func ParseComponentKind(v string) (ComponentKind, bool) {
	switch normalizeWord(v) {
	case "header":
		return Header, true
	case "footer":
		return Footer, true
	}
	return 0, false
}

// titleCase is used for default display names. A Caser keeps state, so each
// call gets its own.
func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(strings.ReplaceAll(s, "-", " "), "_", " "))
}

func newHint(kind, name string) *ClassificationHint {
	k, ok := ParseComponentKind(kind)
	if !ok {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = titleCase(k.String())
	}
	return &ClassificationHint{Kind: k, SuggestedName: name}
}
