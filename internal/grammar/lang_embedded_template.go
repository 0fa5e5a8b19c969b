//go:build !no_embedded_template && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/embedded_template"

func init() {
	register(EmbeddedTemplate, embedded_template.GetLanguage, QueryHighlights)
}
