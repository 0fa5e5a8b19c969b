//go:build !no_javascript && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/javascript"

func init() {
	register(JavaScript, javascript.GetLanguage, QueryHighlights, QueryInjection, QueryJSX, QueryLocals, QueryTags)
}
