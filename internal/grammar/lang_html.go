//go:build !no_html && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/html"

func init() {
	register(HTML, html.GetLanguage, QueryHighlights, QueryInjection)
}
