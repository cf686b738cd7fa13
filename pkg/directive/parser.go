package directive

import (
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/protocol"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/scrub"
)

// Parse reads the first OPERATION block of raw. It returns ok == false when
// there is none, when its operation keyword is unknown, when a Replace or
// Delete has no selector, or when an operation that needs markup is left
// with an empty fragment after scrubbing.
func Parse(raw string) (Directive, bool) {
	doc := tokenize(raw)
	for _, b := range doc.Blocks {
		if b.Grammar != pageGrammar {
			continue
		}
		return directiveFromBlock(doc.Message, b)
	}
	return Directive{}, false
}

func directiveFromBlock(message string, b Block) (Directive, bool) {
	kind, ok := ParseOperation(b.Headers[protocol.KeyOperation])
	if !ok {
		return Directive{}, false
	}

	d := Directive{
		Message:  message,
		Kind:     kind,
		Position: ParsePosition(b.Headers[protocol.KeyPosition]),
		Target:   b.Headers[protocol.KeyTarget],
		Selector: b.Headers[protocol.KeySelector],
		Fragment: scrub.Scrub(protocol.StripFences(b.Body)),
		Hint:     newHint(b.Headers[protocol.KeyComponentType], b.Headers[protocol.KeyComponentName]),
	}

	switch kind {
	case Replace, Delete:
		// models sometimes name the element under TARGET
		if d.Selector == "" {
			d.Selector = d.Target
		}
		if d.Selector == "" {
			return Directive{}, false
		}
	case Insert:
		if (d.Position == Before || d.Position == After) && d.Target == "" {
			d.Target = d.Selector
		}
	}

	if kind.NeedsFragment() && d.Fragment == "" {
		return Directive{}, false
	}
	return d, true
}
