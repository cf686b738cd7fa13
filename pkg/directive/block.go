package directive

import (
	"strings"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/markup"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/protocol"
)

// Grammar describes one block kind of the three-dash family: the header that
// opens such a block and the header keys it reads. All kinds share one
// tokenizer, so they cannot drift apart.
type Grammar struct {
	Name    string
	Primary string
	Keys    []string
}

func (g *Grammar) accepts(key string) bool {
	for _, k := range g.Keys {
		if k == key {
			return true
		}
	}
	return false
}

var (
	pageGrammar = &Grammar{
		Name:    "page",
		Primary: protocol.KeyOperation,
		Keys: []string{protocol.KeyOperation, protocol.KeyPosition, protocol.KeyTarget,
			protocol.KeySelector, protocol.KeyComponentType, protocol.KeyComponentName},
	}
	componentGrammar = &Grammar{
		Name:    "component",
		Primary: protocol.KeyComponentUpdate,
		Keys:    []string{protocol.KeyComponentUpdate, protocol.KeyComponentID, protocol.KeyComponentName},
	}
	sectionGrammar = &Grammar{
		Name:    "section",
		Primary: protocol.KeySectionUpdate,
		Keys:    []string{protocol.KeySectionUpdate, protocol.KeySectionID, protocol.KeySectionAction},
	}
	tokenGrammar = &Grammar{
		Name:    "token",
		Primary: protocol.KeyTokenUpdate,
		Keys:    []string{protocol.KeyTokenUpdate},
	}
	menuGrammar = &Grammar{
		Name:    "menu",
		Primary: protocol.KeyMenuUpdate,
		Keys:    []string{protocol.KeyMenuUpdate, protocol.KeyMenuLocation},
	}
	entryGrammar = &Grammar{
		Name:    "entry",
		Primary: protocol.KeyEntryUpdate,
		Keys:    []string{protocol.KeyEntryUpdate, protocol.KeyEntryID, protocol.KeyEntryAction},
	}

	grammars = []*Grammar{pageGrammar, componentGrammar, sectionGrammar, tokenGrammar, menuGrammar, entryGrammar}
)

func grammarFor(primary string) *Grammar {
	for _, g := range grammars {
		if g.Primary == primary {
			return g
		}
	}
	return nil
}

// Block is one header segment plus the body that follows it.
type Block struct {
	Grammar *Grammar
	Headers map[string]string
	Body    string
}

// tokenized is a whole response split into its message and blocks.
type tokenized struct {
	Message string
	Blocks  []Block
}

type headerLine struct {
	key, value string
}

type segment struct {
	lead    string // free text before the first header line
	headers []headerLine
	rest    string // text after the header lines
}

func (s segment) grammar() *Grammar {
	for _, h := range s.headers {
		if g := grammarFor(h.key); g != nil {
			return g
		}
	}
	return nil
}

func (s segment) header(key string) (string, bool) {
	for _, h := range s.headers {
		if h.key == key {
			return h.value, true
		}
	}
	return "", false
}

// tokenize splits raw on three-dash lines. A segment whose header lines name
// a grammar's primary key opens a block; following segments without such
// headers belong to that block's body. Before the first block, the first
// segment that is not markup is the message.
func tokenize(raw string) tokenized {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	var out tokenized
	var cur *Block
	var body []string
	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.TrimSpace(strings.Join(body, "\n---\n"))
		out.Blocks = append(out.Blocks, *cur)
		cur, body = nil, nil
	}

	for _, part := range splitSegments(text) {
		seg := readSegment(part, cur == nil)

		if g := seg.grammar(); g != nil {
			if out.Message == "" {
				out.Message = messageOf(segment{lead: seg.lead, headers: seg.headers})
			}
			flush()
			cur = &Block{Grammar: g, Headers: map[string]string{}}
			for _, h := range seg.headers {
				if !g.accepts(h.key) {
					continue
				}
				if _, dup := cur.Headers[h.key]; !dup {
					cur.Headers[h.key] = h.value
				}
			}
			if strings.TrimSpace(seg.rest) != "" {
				body = append(body, seg.rest)
			}
			continue
		}

		if cur != nil {
			body = append(body, part)
			continue
		}
		if out.Message == "" {
			out.Message = messageOf(seg)
		}
	}
	flush()
	return out
}

func splitSegments(text string) []string {
	var segs []string
	var cur []string
	for _, l := range strings.Split(text, "\n") {
		if protocol.IsSeparator(l) {
			segs = append(segs, strings.Join(cur, "\n"))
			cur = nil
			continue
		}
		cur = append(cur, l)
	}
	return append(segs, strings.Join(cur, "\n"))
}

// readSegment collects the header lines at the top of a segment. With
// allowLead, free text may precede them (a message that was not separated
// from the headers).
func readSegment(s string, allowLead bool) segment {
	lines := strings.Split(s, "\n")
	var seg segment

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if allowLead {
		j := i
		for j < len(lines) {
			if _, _, ok := protocol.SplitHeader(lines[j]); ok {
				break
			}
			j++
		}
		if j < len(lines) {
			seg.lead = strings.TrimSpace(strings.Join(lines[i:j], "\n"))
			i = j
		}
	}

	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		k, v, ok := protocol.SplitHeader(lines[i])
		if !ok {
			break
		}
		seg.headers = append(seg.headers, headerLine{key: k, value: v})
	}
	seg.rest = strings.Join(lines[i:], "\n")
	return seg
}

func messageOf(seg segment) string {
	parts := []string{proseBefore(seg.lead)}
	if v, ok := seg.header(protocol.KeyMessage); ok {
		parts = append(parts, v)
	}
	parts = append(parts, proseBefore(seg.rest))
	return strings.TrimSpace(strings.Join(nonEmpty(parts), "\n"))
}

func markupStart(s string) int {
	if i := markup.DocumentStart(s); i >= 0 {
		return i
	}
	return markup.FirstBlockTag(s)
}

// proseBefore returns the text of s up to the first markup, without an
// opening code fence that introduces it.
func proseBefore(s string) string {
	i := markupStart(s)
	if i < 0 {
		return s
	}
	lines := strings.Split(strings.TrimRight(s[:i], " \t\n"), "\n")
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
