package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "github"

var codeBlockRe = regexp.MustCompile(`(?s)<pre><code class="language-([A-Za-z0-9_+#.-]+)">(.*?)</code></pre>`)

// Highlighter rewrites fenced code blocks in rendered HTML into
// syntax-highlighted markup. Highlighting uses CSS classes; the matching
// stylesheet comes from WriteCSS.
type Highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewHighlighter creates a Highlighter for the named chroma style. Unknown
// names fall back to chroma's default style.
func NewHighlighter(style string) *Highlighter {
	if style == "" {
		style = DefaultStyle
	}
	return &Highlighter{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// Enhance highlights every code block with a recognised language. Blocks
// that fail to highlight are left as they were and their errors are
// returned joined; the returned content is always usable.
func (h *Highlighter) Enhance(content template.HTML) (template.HTML, error) {
	var errs []error
	out := codeBlockRe.ReplaceAllStringFunc(string(content), func(block string) string {
		m := codeBlockRe.FindStringSubmatch(block)
		highlighted, err := h.highlight(m[1], html.UnescapeString(m[2]))
		if err != nil {
			errs = append(errs, err)
			return block
		}
		if highlighted == "" {
			return block
		}
		return highlighted
	})
	return template.HTML(out), errors.Join(errs...)
}

func (h *Highlighter) highlight(lang, code string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", nil
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("failed to tokenise %s block: %w", lang, err)
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("failed to format %s block: %w", lang, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// WriteCSS writes the stylesheet for the highlighter's classes.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}
