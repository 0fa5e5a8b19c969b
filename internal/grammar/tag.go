// Package grammar is the registry of grammars compiled into the bridge.
//
// The set of tags is closed. Each tag's grammar is selected at build time:
// the default build includes all nine, a `no_<tag>` build tag removes one,
// and the `lean` build tag removes all of them. Excluded grammars keep
// their Tag constant but report unsupported everywhere.
package grammar

// Tag names one grammar.
type Tag string

const (
	CSS              Tag = "css"
	Elixir           Tag = "elixir"
	EmbeddedTemplate Tag = "embedded_template"
	Erlang           Tag = "erlang"
	Gleam            Tag = "gleam"
	HTML             Tag = "html"
	JavaScript       Tag = "javascript"
	SQL              Tag = "sql"
	TypeScript       Tag = "typescript"
)

var allTags = []Tag{CSS, Elixir, EmbeddedTemplate, Erlang, Gleam, HTML, JavaScript, SQL, TypeScript}

// Tags returns every tag in the closed set, compiled in or not.
func Tags() []Tag {
	out := make([]Tag, len(allTags))
	copy(out, allTags)
	return out
}

// ParseTag validates a host-supplied name against the closed set.
func ParseTag(s string) (Tag, bool) {
	for _, t := range allTags {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func (t Tag) String() string { return string(t) }

// Canned query names.
const (
	QueryHighlights = "highlights"
	QueryLocals     = "locals"
	QueryTags       = "tags"
	QueryInjection  = "injection"
	QueryJSX        = "jsx"
)

// Query is a canned query shipped with a grammar.
type Query struct {
	Name   string
	Source string
}
