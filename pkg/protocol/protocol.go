// Package protocol holds the tokens of the block grammar that model responses
// are written in: header keywords, the three-dash separator line and the
// fenced-code markers that sometimes wrap a payload.
package protocol

import (
	"regexp"
	"strings"
)

// Header keywords. MESSAGE may introduce the free-form message section; the
// others only appear inside a header segment.
const (
	KeyMessage = "MESSAGE"

	KeyOperation     = "OPERATION"
	KeyPosition      = "POSITION"
	KeyTarget        = "TARGET"
	KeySelector      = "SELECTOR"
	KeyComponentType = "COMPONENT_TYPE"
	KeyComponentName = "COMPONENT_NAME"

	KeyComponentUpdate = "COMPONENT_UPDATE"
	KeyComponentID     = "COMPONENT_ID"

	KeySectionUpdate = "SECTION_UPDATE"
	KeySectionID     = "SECTION_ID"
	KeySectionAction = "SECTION_ACTION"

	KeyTokenUpdate = "TOKEN_UPDATE"

	KeyMenuUpdate   = "MENU_UPDATE"
	KeyMenuLocation = "MENU_LOCATION"

	KeyEntryUpdate = "ENTRY_UPDATE"
	KeyEntryID     = "ENTRY_ID"
	KeyEntryAction = "ENTRY_ACTION"
)

// HeaderKeys lists every block header keyword except MESSAGE.
var HeaderKeys = []string{
	KeyOperation, KeyPosition, KeyTarget, KeySelector,
	KeyComponentType, KeyComponentName,
	KeyComponentUpdate, KeyComponentID,
	KeySectionUpdate, KeySectionID, KeySectionAction,
	KeyTokenUpdate,
	KeyMenuUpdate, KeyMenuLocation,
	KeyEntryUpdate, KeyEntryID, KeyEntryAction,
}

var (
	knownKeys = func() map[string]bool {
		m := map[string]bool{KeyMessage: true}
		for _, k := range HeaderKeys {
			m[k] = true
		}
		return m
	}()

	headerLineRe = regexp.MustCompile(`^[ \t]*([A-Z][A-Z_]*)[ \t]*:(.*)$`)

	// openFenceRe matches ```html, ```yaml, ``` and the like on their own line.
	openFenceRe = regexp.MustCompile("^[ \\t]*```[A-Za-z0-9_+-]*[ \\t]*$")
	// closeFenceRe also accepts the explicit ```END marker.
	closeFenceRe = regexp.MustCompile("^[ \\t]*```(?:END)?[ \\t]*$")
)

// IsKnownKey reports whether key is a recognised header keyword.
func IsKnownKey(key string) bool {
	return knownKeys[key]
}

// IsSeparator reports whether line consists only of three or more dashes,
// optionally surrounded by blanks.
func IsSeparator(line string) bool {
	t := strings.TrimSpace(line)
	if len(t) < 3 {
		return false
	}
	return strings.Trim(t, "-") == ""
}

// SplitHeader splits a `KEY: value` line. ok is false when the line is not a
// header or the key is not one of the recognised keywords. Backticks wrapping
// the value are removed since models like to quote selectors that way.
func SplitHeader(line string) (key, value string, ok bool) {
	m := headerLineRe.FindStringSubmatch(line)
	if m == nil || !knownKeys[m[1]] {
		return "", "", false
	}
	value = strings.TrimSpace(m[2])
	value = strings.TrimSpace(strings.Trim(value, "`"))
	return m[1], value, true
}

// StripFences removes a leading opening fence line and any trailing closing
// fence lines from body.
func StripFences(body string) string {
	lines := strings.Split(body, "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start < len(lines) && openFenceRe.MatchString(lines[start]) {
		start++
	}

	end := len(lines)
	for end > start {
		l := lines[end-1]
		if strings.TrimSpace(l) == "" || closeFenceRe.MatchString(l) {
			end--
			continue
		}
		break
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
