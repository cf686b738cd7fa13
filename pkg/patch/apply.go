// Package patch applies a parsed directive to a document's text. It works on
// the raw string: elements are found with the selector matcher and the
// balanced-tag locator, never with a document tree.
package patch

import (
	"strings"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/directive"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/markup"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/scrub"
)

// Result is a new document plus what happened while producing it.
type Result struct {
	Document string
	// Matched is false when the directive changed nothing: its selector was
	// not found or it carried no markup. Document is then the input verbatim.
	Matched bool
	// FellBack is set when a Before/After target was missing and the
	// fragment went to the end of the body instead.
	FellBack bool
	// Element is the element the directive referenced, when one was found.
	Element markup.Element
}

// Apply returns doc with d applied. A selector that matches nothing leaves
// doc unchanged.
func Apply(doc string, d directive.Directive) string {
	return ApplyWithResult(doc, d).Document
}

// ApplyWithResult is Apply with diagnostics.
func ApplyWithResult(doc string, d directive.Directive) Result {
	switch d.Kind {
	case directive.ReplaceDocument:
		frag := scrub.Scrub(d.Fragment)
		if frag == "" {
			return unchanged(doc)
		}
		return Result{Document: frag, Matched: true}

	case directive.Insert:
		return insert(doc, d)

	case directive.Replace:
		el, ok := markup.Find(doc, d.Selector)
		if !ok {
			return unchanged(doc)
		}
		frag := scrub.Scrub(d.Fragment)
		if frag == "" {
			return unchanged(doc)
		}
		return changed(doc[:el.Start]+frag+doc[el.End:], el)

	case directive.Delete:
		el, ok := markup.Find(doc, d.Selector)
		if !ok {
			return unchanged(doc)
		}
		start, end := el.Start, el.End
		switch rest, before := doc[end:], doc[:start]; {
		case strings.HasPrefix(rest, "\r\n"):
			end += 2
		case strings.HasPrefix(rest, "\n"):
			end++
		case strings.HasSuffix(before, "\r\n"):
			start -= 2
		case strings.HasSuffix(before, "\n"):
			start--
		}
		return changed(doc[:start]+doc[end:], el)
	}
	return unchanged(doc)
}

func insert(doc string, d directive.Directive) Result {
	frag := d.Fragment
	if markup.IsFullDocument(frag) {
		frag = markup.NarrowToBody(frag)
	}
	frag = scrub.Scrub(frag)
	if frag == "" {
		return unchanged(doc)
	}

	switch d.Position {
	case directive.Before, directive.After:
		if el, ok := markup.Find(doc, d.Target); ok {
			at := el.Start
			if d.Position == directive.After {
				at = el.End
			}
			return changed(doc[:at]+frag+doc[at:], el)
		}
		r := changed(insertEdge(doc, frag, false), markup.Element{})
		r.FellBack = true
		return r
	case directive.Start:
		return changed(insertEdge(doc, frag, true), markup.Element{})
	default:
		return changed(insertEdge(doc, frag, false), markup.Element{})
	}
}

// insertEdge puts frag right inside the body tags, or at the very start or
// end of doc when it has none.
func insertEdge(doc, frag string, atStart bool) string {
	if atStart {
		if i := markup.BodyOpenEnd(doc); i >= 0 {
			return doc[:i] + frag + doc[i:]
		}
		if doc == "" {
			return frag
		}
		return frag + "\n" + doc
	}
	if i := markup.BodyCloseStart(doc); i >= 0 {
		return doc[:i] + frag + doc[i:]
	}
	if doc == "" || strings.HasSuffix(doc, "\n") {
		return doc + frag
	}
	return doc + "\n" + frag
}

func changed(doc string, el markup.Element) Result {
	return Result{Document: scrub.Scrub(doc), Matched: true, Element: el}
}

func unchanged(doc string) Result {
	return Result{Document: doc}
}
