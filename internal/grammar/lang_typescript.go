//go:build !no_typescript && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/typescript"

func init() {
	register(TypeScript, typescript.GetLanguage, QueryHighlights, QueryLocals, QueryTags)
}
