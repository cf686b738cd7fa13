package directive

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/markup"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/protocol"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/scrub"
)

// ComponentUpdate replaces the markup of a stored header/footer component.
type ComponentUpdate struct {
	Ref      string        `json:"ref"`
	Kind     ComponentKind `json:"kind,omitempty"`
	ID       string        `json:"id,omitempty"`
	Name     string        `json:"name,omitempty"`
	Fragment string        `json:"fragment"`
}

// SectionAction is what a SectionUpdate does to the named section.
type SectionAction int

const (
	SectionReplace SectionAction = iota
	SectionInsert
	SectionDelete
)

func (a SectionAction) String() string {
	switch a {
	case SectionReplace:
		return "replace"
	case SectionInsert:
		return "insert"
	case SectionDelete:
		return "delete"
	default:
		return fmt.Sprintf("SectionAction(%d)", int(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a SectionAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// SectionUpdate edits one named section of a page.
type SectionUpdate struct {
	Name     string        `json:"name"`
	ID       string        `json:"id,omitempty"`
	Action   SectionAction `json:"action"`
	Fragment string        `json:"fragment,omitempty"`
}

// TokenUpdate sets design-token values of one category. Nested maps are
// flattened with dotted keys.
type TokenUpdate struct {
	Category string            `json:"category"`
	Values   map[string]string `json:"values"`
}

// MenuItem is one navigation entry.
type MenuItem struct {
	Label    string     `json:"label" yaml:"label"`
	URL      string     `json:"url" yaml:"url"`
	Children []MenuItem `json:"children,omitempty" yaml:"children,omitempty"`
}

// MenuUpdate replaces the items of a navigation menu.
type MenuUpdate struct {
	Slug     string     `json:"slug"`
	Location string     `json:"location,omitempty"`
	Items    []MenuItem `json:"items"`
}

// EntryAction is what an EntryUpdate does to a structured record.
type EntryAction int

const (
	EntryCreate EntryAction = iota
	EntryUpdateFields
	EntryDelete
)

func (a EntryAction) String() string {
	switch a {
	case EntryCreate:
		return "create"
	case EntryUpdateFields:
		return "update"
	case EntryDelete:
		return "delete"
	default:
		return fmt.Sprintf("EntryAction(%d)", int(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a EntryAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// EntryUpdate creates, changes or removes a record of a collection.
type EntryUpdate struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id,omitempty"`
	Action     EntryAction    `json:"action"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Response is everything a model answer asked for.
type Response struct {
	Message    string            `json:"message"`
	Directives []Directive       `json:"directives,omitempty"`
	Components []ComponentUpdate `json:"components,omitempty"`
	Sections   []SectionUpdate   `json:"sections,omitempty"`
	Tokens     []TokenUpdate     `json:"tokens,omitempty"`
	Menus      []MenuUpdate      `json:"menus,omitempty"`
	Entries    []EntryUpdate     `json:"entries,omitempty"`

	// FellBack is set when no block header was recognised and the page
	// markup found in the text became a ReplaceDocument directive.
	FellBack bool `json:"fell_back,omitempty"`
}

// Empty reports whether the response carries no update at all.
func (r Response) Empty() bool {
	return len(r.Directives) == 0 && len(r.Components) == 0 && len(r.Sections) == 0 &&
		len(r.Tokens) == 0 && len(r.Menus) == 0 && len(r.Entries) == 0
}

// ParseResponse parses every block of raw. Blocks that do not make sense are
// skipped. When the text has no recognised block header at all, the markup
// found in it is returned as a ReplaceDocument directive; ok is false only
// when nothing usable is left.
func ParseResponse(raw string) (Response, bool) {
	doc := tokenize(raw)
	resp := Response{Message: doc.Message}

	for _, b := range doc.Blocks {
		switch b.Grammar {
		case pageGrammar:
			if d, ok := directiveFromBlock(doc.Message, b); ok {
				resp.Directives = append(resp.Directives, d)
			}
		case componentGrammar:
			if c, ok := componentFromBlock(b); ok {
				resp.Components = append(resp.Components, c)
			}
		case sectionGrammar:
			if s, ok := sectionFromBlock(b); ok {
				resp.Sections = append(resp.Sections, s)
			}
		case tokenGrammar:
			if t, ok := tokenFromBlock(b); ok {
				resp.Tokens = append(resp.Tokens, t)
			}
		case menuGrammar:
			if m, ok := menuFromBlock(b); ok {
				resp.Menus = append(resp.Menus, m)
			}
		case entryGrammar:
			if e, ok := entryFromBlock(b); ok {
				resp.Entries = append(resp.Entries, e)
			}
		}
	}

	if len(doc.Blocks) == 0 {
		if frag := scanFragment(raw); frag != "" {
			resp.Directives = append(resp.Directives, Directive{
				Message:  doc.Message,
				Kind:     ReplaceDocument,
				Fragment: frag,
			})
			resp.FellBack = true
		}
	}

	if resp.Empty() {
		return Response{}, false
	}
	return resp, true
}

// scanFragment finds page markup in text that has no block headers: a full
// document wins, then whatever follows a second separator, then the first
// block-level element.
func scanFragment(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	var frag string
	if i := markup.DocumentStart(text); i >= 0 {
		frag = text[i:]
	} else if segs := splitSegments(text); len(segs) > 2 {
		frag = strings.Join(segs[2:], "\n---\n")
	} else if i := markup.FirstBlockTag(text); i >= 0 {
		frag = text[i:]
	}
	frag = scrub.Scrub(protocol.StripFences(frag))
	if !strings.Contains(frag, "<") {
		return ""
	}
	return frag
}

func fragmentOf(b Block) string {
	return scrub.Scrub(protocol.StripFences(b.Body))
}

func componentFromBlock(b Block) (ComponentUpdate, bool) {
	c := ComponentUpdate{
		Ref:      b.Headers[protocol.KeyComponentUpdate],
		ID:       b.Headers[protocol.KeyComponentID],
		Name:     b.Headers[protocol.KeyComponentName],
		Fragment: fragmentOf(b),
	}
	if k, ok := ParseComponentKind(c.Ref); ok {
		c.Kind = k
		if c.Name == "" {
			c.Name = titleCase(k.String())
		}
	}
	if c.Ref == "" && c.ID == "" {
		return ComponentUpdate{}, false
	}
	return c, c.Fragment != ""
}

var sectionActionWords = map[string]SectionAction{
	"replace": SectionReplace,
	"update":  SectionReplace,
	"modify":  SectionReplace,
	"edit":    SectionReplace,
	"insert":  SectionInsert,
	"add":     SectionInsert,
	"create":  SectionInsert,
	"append":  SectionInsert,
	"delete":  SectionDelete,
	"remove":  SectionDelete,
}

func sectionFromBlock(b Block) (SectionUpdate, bool) {
	s := SectionUpdate{
		Name: b.Headers[protocol.KeySectionUpdate],
		ID:   b.Headers[protocol.KeySectionID],
	}
	if v := b.Headers[protocol.KeySectionAction]; v != "" {
		a, ok := sectionActionWords[normalizeWord(v)]
		if !ok {
			return SectionUpdate{}, false
		}
		s.Action = a
	}
	if s.Name == "" && s.ID == "" {
		return SectionUpdate{}, false
	}
	if s.Action == SectionDelete {
		return s, true
	}
	s.Fragment = fragmentOf(b)
	return s, s.Fragment != ""
}

// bareHexRe finds unquoted colour values, which YAML would read as comments.
var bareHexRe = regexp.MustCompile(`(?m)^(\s*[^\s:#][^:\n]*:[ \t]+)(#[0-9A-Fa-f]{3,8})[ \t]*$`)

func yamlBody(b Block) string {
	body := protocol.StripFences(b.Body)
	return bareHexRe.ReplaceAllString(body, `$1"$2"`)
}

func tokenFromBlock(b Block) (TokenUpdate, bool) {
	t := TokenUpdate{Category: b.Headers[protocol.KeyTokenUpdate], Values: map[string]string{}}
	if t.Category == "" {
		return TokenUpdate{}, false
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(yamlBody(b)), &raw); err != nil {
		return TokenUpdate{}, false
	}
	flatten("", raw, t.Values)
	return t, len(t.Values) > 0
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		switch v := in[k].(type) {
		case map[string]any:
			flatten(name, v, out)
		case nil:
		default:
			out[name] = fmt.Sprint(v)
		}
	}
}

func menuFromBlock(b Block) (MenuUpdate, bool) {
	m := MenuUpdate{
		Slug:     b.Headers[protocol.KeyMenuUpdate],
		Location: b.Headers[protocol.KeyMenuLocation],
	}
	if m.Slug == "" {
		return MenuUpdate{}, false
	}
	body := []byte(yamlBody(b))
	if err := yaml.Unmarshal(body, &m.Items); err != nil {
		var wrapped struct {
			Items []MenuItem `yaml:"items"`
		}
		if err := yaml.Unmarshal(body, &wrapped); err != nil {
			return MenuUpdate{}, false
		}
		m.Items = wrapped.Items
	}
	m.Items = normalizeItems(m.Items)
	return m, len(m.Items) > 0
}

// normalizeItems drops items without a URL and labels the rest.
func normalizeItems(items []MenuItem) []MenuItem {
	var out []MenuItem
	for _, it := range items {
		it.URL = strings.TrimSpace(it.URL)
		if it.URL == "" {
			continue
		}
		if strings.TrimSpace(it.Label) == "" {
			it.Label = labelFor(it.URL)
		}
		it.Children = normalizeItems(it.Children)
		out = append(out, it)
	}
	return out
}

func labelFor(url string) string {
	p := url
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	base := path.Base(strings.TrimRight(p, "/"))
	if base == "" || base == "." || base == "/" {
		return "Home"
	}
	return titleCase(base)
}

var entryActionWords = map[string]EntryAction{
	"create": EntryCreate,
	"add":    EntryCreate,
	"insert": EntryCreate,
	"update": EntryUpdateFields,
	"modify": EntryUpdateFields,
	"edit":   EntryUpdateFields,
	"delete": EntryDelete,
	"remove": EntryDelete,
}

func entryFromBlock(b Block) (EntryUpdate, bool) {
	e := EntryUpdate{
		Collection: b.Headers[protocol.KeyEntryUpdate],
		ID:         b.Headers[protocol.KeyEntryID],
	}
	if e.Collection == "" {
		return EntryUpdate{}, false
	}
	switch v := b.Headers[protocol.KeyEntryAction]; {
	case v != "":
		a, ok := entryActionWords[normalizeWord(v)]
		if !ok {
			return EntryUpdate{}, false
		}
		e.Action = a
	case e.ID != "":
		e.Action = EntryUpdateFields
	default:
		e.Action = EntryCreate
	}

	if e.Action != EntryCreate && e.ID == "" {
		return EntryUpdate{}, false
	}
	if e.Action == EntryDelete {
		return e, true
	}
	if err := yaml.Unmarshal([]byte(yamlBody(b)), &e.Fields); err != nil {
		return EntryUpdate{}, false
	}
	return e, len(e.Fields) > 0
}
