//go:build !no_css && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/css"

func init() {
	register(CSS, css.GetLanguage, QueryHighlights)
}
