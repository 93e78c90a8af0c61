package views

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
)

//go:embed findings.md
var findingsMarkdown []byte

// RenderMarkdown converts markdown to HTML. Raw HTML in the source is not passed through.
func RenderMarkdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Findings returns the static "Key Findings & Next Steps" panel as HTML.
func Findings() (template.HTML, error) {
	return RenderMarkdown(findingsMarkdown)
}
