package markdown

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Render(t *testing.T) {
	t.Parallel()

	c := NewConverter()

	tests := []struct {
		name     string
		src      string
		contains []string
	}{
		{"heading", "# Title", []string{"<h1>Title</h1>"}},
		{"hard wraps", "line one\nline two", []string{"line one<br>", "line two"}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"strikethrough", "~~gone~~", []string{"<del>gone</del>"}},
		{"fenced code", "```go\nfunc main() {}\n```", []string{`<pre><code class="language-go">func main() {}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Render(tt.src)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, string(got), want)
			}
		})
	}
}

func TestConverter_RawHTMLOmitted(t *testing.T) {
	t.Parallel()

	got, err := NewConverter().Render("hello <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(got), "<script>")
}

func TestHighlighter_Enhance(t *testing.T) {
	t.Parallel()

	h := NewHighlighter("github")
	content := template.HTML(`<p>before</p><pre><code class="language-go">func main() { fmt.Println(&quot;hi&quot;) }
</code></pre>`)

	got, err := h.Enhance(content)
	require.NoError(t, err)
	assert.Contains(t, string(got), `class="chroma"`)
	assert.Contains(t, string(got), "<p>before</p>")
	assert.NotContains(t, string(got), `class="language-go"`)
	assert.Contains(t, string(got), "Println")
}

func TestHighlighter_LeavesUnknownBlocks(t *testing.T) {
	t.Parallel()

	h := NewHighlighter("")
	content := template.HTML(`<pre><code class="language-notareallanguage">x &lt; y</code></pre><pre><code>plain</code></pre>`)

	got, err := h.Enhance(content)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestHighlighter_WriteCSS(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewHighlighter("monokai").WriteCSS(&buf))
	assert.Contains(t, buf.String(), ".chroma")
}

func TestConvertThenHighlight(t *testing.T) {
	t.Parallel()

	html, err := NewConverter().Render("```go\nx := 1 < 2\n```")
	require.NoError(t, err)

	got, err := NewHighlighter(DefaultStyle).Enhance(html)
	require.NoError(t, err)
	assert.Contains(t, string(got), "chroma")
	assert.Contains(t, string(got), "&lt;")
}
