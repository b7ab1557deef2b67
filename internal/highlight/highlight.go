// Package highlight renders snippet code as syntax-highlighted HTML using chroma.
//
// Snippets carry no language field, so the lexer is guessed: first from the
// snippet name as a filename ("main.go", "Dockerfile"), then by content
// analysis (shebangs, <?php, ...), and finally plain text.
package highlight

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const defaultStyle = "github"

// Highlighter turns code into HTML. It is safe for concurrent use.
type Highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// New returns a Highlighter using the named chroma style. Unknown or empty
// names fall back to "github".
func New(styleName string) *Highlighter {
	if styleName == "" {
		styleName = defaultStyle
	}
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}

	return &Highlighter{
		style: style,
		// Inline styles, so no chroma stylesheet has to be served. Line
		// numbers link to #L<n> anchors.
		formatter: chromahtml.New(
			chromahtml.WithClasses(false),
			chromahtml.WithLineNumbers(true),
			chromahtml.WithLinkableLineNumbers(true, "L"),
			chromahtml.TabWidth(4),
		),
	}
}

// lexerFor picks a lexer for a snippet.
func lexerFor(name, code string) chroma.Lexer {
	lexer := lexers.Match(name)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Language reports the name of the lexer Code would use, e.g. "Go" or "plaintext".
func Language(name, code string) string {
	return lexerFor(name, code).Config().Name
}

// Code renders code as a highlighted <pre> block. chroma escapes every token,
// so the result is safe to embed in a page as-is.
func (h *Highlighter) Code(name, code string) (template.HTML, error) {
	it, err := lexerFor(name, code).Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("highlight: tokenising %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, it); err != nil {
		return "", fmt.Errorf("highlight: formatting %q: %w", name, err)
	}

	return template.HTML(buf.String()), nil
}
