package directive

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var messageMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
)

// RenderMessage renders the markdown of a response message to HTML for chat
// surfaces. Raw HTML in the message is not passed through.
func RenderMessage(md string) (string, error) {
	var buf bytes.Buffer
	if err := messageMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
