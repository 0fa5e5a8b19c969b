//go:build !no_gleam && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/gleam"

func init() {
	register(Gleam, gleam.GetLanguage, QueryHighlights, QueryLocals, QueryTags)
}
