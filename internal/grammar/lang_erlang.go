//go:build !no_erlang && !lean

package grammar

import "github.com/alexaandru/go-sitter-forest/erlang"

func init() {
	register(Erlang, erlang.GetLanguage)
}
