package grammar

import (
	"path/filepath"
	"strings"
)

// extToTag maps file extensions to grammar tags.
var extToTag = map[string]Tag{
	".css":   CSS,
	".ex":    Elixir,
	".exs":   Elixir,
	".heex":  Elixir,
	".eex":   EmbeddedTemplate,
	".erb":   EmbeddedTemplate,
	".ejs":   EmbeddedTemplate,
	".erl":   Erlang,
	".hrl":   Erlang,
	".gleam": Gleam,
	".html":  HTML,
	".htm":   HTML,
	".js":    JavaScript,
	".mjs":   JavaScript,
	".cjs":   JavaScript,
	".jsx":   JavaScript,
	".sql":   SQL,
	".ts":    TypeScript,
	".mts":   TypeScript,
	".cts":   TypeScript,
}

// TagForFile returns the grammar tag for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
// The result says nothing about whether the grammar is compiled in.
func TagForFile(path string) (Tag, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	tag, ok := extToTag[ext]
	return tag, ok
}
