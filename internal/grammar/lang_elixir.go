//go:build !no_elixir && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/elixir"

func init() {
	register(Elixir, elixir.GetLanguage, QueryHighlights, QueryTags)
}
