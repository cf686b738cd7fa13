package scrub

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrub(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "clean fragment is only trimmed",
			in:   "\n  <section id=\"hero\">\n  <h1>Hi</h1>\n</section>\n\n",
			want: "<section id=\"hero\">\n  <h1>Hi</h1>\n</section>",
		},
		{
			name: "leaked message line inside payload",
			in:   "<div>\nMESSAGE: oops\n<p>x</p>\n</div>",
			want: "<div>\n<p>x</p>\n</div>",
		},
		{
			name: "message running into a dash block",
			in:   "MESSAGE: added the hero --- <section>A</section>",
			want: "<section>A</section>",
		},
		{
			name: "header lines anywhere",
			in:   "OPERATION: add\nPOSITION: end\n<div>\n  SELECTOR: #x\n</div>\nCOMPONENT_TYPE: header\nCOMPONENT_NAME: Main",
			want: "<div>\n</div>",
		},
		{
			name: "sibling grammar headers",
			in:   "TOKEN_UPDATE: colors\n<p>x</p>\nENTRY_ID: 4",
			want: "<p>x</p>",
		},
		{
			name: "separator lines",
			in:   "---\n<p>a</p>\n-----\n<p>b</p>\n---",
			want: "<p>a</p>\n<p>b</p>",
		},
		{
			name: "placeholder comments",
			in:   "<!-- no code generated -->\n<main>\n<!-- Section: Hero -->\n<h1>x</h1><!-- ... existing content ... -->\n<!-- END SECTION -->\n</main>",
			want: "<main>\n<h1>x</h1>\n</main>",
		},
		{
			name: "ordinary comments survive",
			in:   "<!-- hero image credits: unsplash -->\n<img src=\"a.png\">",
			want: "<!-- hero image credits: unsplash -->\n<img src=\"a.png\">",
		},
		{
			name: "css declarations are not headers",
			in:   "<style>\n.a {\nposition: absolute;\n}\n</style>",
			want: "<style>\n.a {\nposition: absolute;\n}\n</style>",
		},
		{
			name: "blank runs collapse to one blank line",
			in:   "<p>a</p>\n\n\n\n\n<p>b</p>\n\n<p>c</p>",
			want: "<p>a</p>\n\n<p>b</p>\n\n<p>c</p>",
		},
		{
			name: "only protocol tokens",
			in:   "MESSAGE: x\n---\nOPERATION: delete\n---\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scrub(tt.in))
		})
	}
}

func TestScrubIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"MESSAGE: a --- MESSAGE: b --- <p>x</p>",
		"<div>\n\n\n\n\nMESSAGE: y\n\n\n\n</div>",
		"---\n---\n---",
		"OPERATION: add\n  ---  \n<!-- unchanged -->\n\n\n\n<p>z</p>",
		"<!-- rest of the page --><!-- rest of the page -->",
		"MESSAGE:---MESSAGE:---",
		"<p>\r\n\r\n\r\n\r\n</p>",
		strings.Repeat("-", 80),
	}
	for _, in := range inputs {
		once := Scrub(in)
		assert.Equal(t, once, Scrub(once), "input %q", in)
	}
}
