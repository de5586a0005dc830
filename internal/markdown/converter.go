// Package markdown converts task markdown to HTML and highlights fenced
// code blocks in rendered output.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter renders GitHub-flavoured markdown with hard line breaks. Raw
// HTML in the source is never passed through.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter creates a Converter.
func NewConverter() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render converts src to HTML.
func (c *Converter) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
