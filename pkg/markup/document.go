package markup

import (
	"regexp"
	"strings"
)

// BlockTags are the block-level element names recognised when a fragment has
// to be found in loosely structured text.
var BlockTags = []string{
	"section", "header", "footer", "nav", "main", "article", "aside", "div",
	"form", "ul", "ol", "table", "figure", "blockquote",
	"h1", "h2", "h3", "h4", "h5", "h6", "p",
}

var (
	bodyOpenRe  = regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)
	headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)
	fullDocRe   = regexp.MustCompile(`(?i)<!doctype|<html[\s>]`)

	// blockOpenRe matches a complete block-level opening tag.
	blockOpenRe = regexp.MustCompile(`(?i)<(?:` + strings.Join(BlockTags, "|") + `)(?:\s[^>]*)?/?>`)
	// blockStartRe only needs the start of one, as produced mid-stream.
	blockStartRe = regexp.MustCompile(`(?i)<(?:` + strings.Join(BlockTags, "|") + `)(?:[\s/>]|$)`)
)

// BodyOpenEnd returns the offset just past the first <body> opening tag, or -1.
func BodyOpenEnd(doc string) int {
	loc := bodyOpenRe.FindStringIndex(doc)
	if loc == nil {
		return -1
	}
	return loc[1]
}

// BodyCloseStart returns the offset of the last </body> tag, or -1.
func BodyCloseStart(doc string) int {
	all := bodyCloseRe.FindAllStringIndex(doc, -1)
	if len(all) == 0 {
		return -1
	}
	return all[len(all)-1][0]
}

// IsFullDocument reports whether fragment carries a doctype or a root html tag.
func IsFullDocument(fragment string) bool {
	return fullDocRe.MatchString(fragment)
}

// DocumentStart returns the offset of the doctype or root html tag, or -1.
func DocumentStart(s string) int {
	loc := fullDocRe.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// FirstBlockTag returns the offset of the first block-level opening tag in s,
// complete or not, or -1.
func FirstBlockTag(s string) int {
	loc := blockStartRe.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// TopLevelBlocks returns the block-level elements of doc that are not nested
// in another block-level element, skipping anything inside <head>.
func TopLevelBlocks(doc string) []Element {
	pos := 0
	if loc := headCloseRe.FindStringIndex(doc); loc != nil {
		pos = loc[1]
	}
	var out []Element
	for pos < len(doc) {
		loc := blockOpenRe.FindStringIndex(doc[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		openTag := doc[start : pos+loc[1]]
		if el, ok := Locate(doc, start, openTag); ok {
			out = append(out, el)
			pos = el.End
			continue
		}
		pos += loc[1]
	}
	return out
}

// NarrowToBody reduces a full document to the markup that belongs inside
// another document's body: the content of its <body>, or failing that its
// top-level block elements. A full document with neither narrows to "";
// other input is returned as is.
func NarrowToBody(fragment string) string {
	if open := BodyOpenEnd(fragment); open >= 0 {
		rest := fragment[open:]
		if end := BodyCloseStart(rest); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	blocks := TopLevelBlocks(fragment)
	if len(blocks) == 0 {
		if IsFullDocument(fragment) {
			return ""
		}
		return fragment
	}
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return strings.Join(texts, "\n")
}
