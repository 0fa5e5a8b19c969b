package grammar

import (
	"embed"
	"fmt"
	"path"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

//go:embed queries
var queryFS embed.FS

// entry is one compiled-in grammar. The descriptor is built lazily on first
// use and shared by every Registry for the life of the process.
type entry struct {
	load    func() unsafe.Pointer
	queries []Query

	once sync.Once
	lang *tree_sitter.Language
}

func (e *entry) language() *tree_sitter.Language {
	e.once.Do(func() {
		if ptr := e.load(); ptr != nil {
			e.lang = tree_sitter.NewLanguage(ptr)
		}
	})
	return e.lang
}

// compiled holds the grammars registered by the lang_<tag>.go files.
var compiled = map[Tag]*entry{}

// register is called from the init of each grammar file. Query sources are
// read from the embedded queries/<tag>/<name>.scm files in the order given.
func register(tag Tag, load func() unsafe.Pointer, queryNames ...string) {
	qs := make([]Query, 0, len(queryNames))
	for _, name := range queryNames {
		qs = append(qs, Query{Name: name, Source: mustReadQuery(tag, name)})
	}
	compiled[tag] = &entry{load: load, queries: qs}
}

func mustReadQuery(tag Tag, name string) string {
	data, err := queryFS.ReadFile(path.Join("queries", string(tag), name+".scm"))
	if err != nil {
		panic(fmt.Sprintf("grammar: missing %s query for %s: %v", name, tag, err))
	}
	return string(data)
}

// Registry answers which grammars are usable. The zero value is not usable;
// obtain one from Default or Restrict.
type Registry struct {
	enabled map[Tag]bool // nil means every compiled-in grammar
}

var defaultRegistry = &Registry{}

// Default returns the registry of every grammar compiled into the binary.
func Default() *Registry {
	return defaultRegistry
}

// Restrict returns a registry in which only the given tags remain supported.
// Tags that are not compiled in stay unsupported.
func (r *Registry) Restrict(tags ...Tag) *Registry {
	enabled := make(map[Tag]bool, len(tags))
	for _, t := range tags {
		if r.Supported(t) {
			enabled[t] = true
		}
	}
	return &Registry{enabled: enabled}
}

// Supported reports whether tag's grammar is compiled in and enabled.
func (r *Registry) Supported(tag Tag) bool {
	if _, ok := compiled[tag]; !ok {
		return false
	}
	if r.enabled == nil {
		return true
	}
	return r.enabled[tag]
}

// Language returns the engine descriptor for tag, or false when unsupported.
func (r *Registry) Language(tag Tag) (*tree_sitter.Language, bool) {
	if !r.Supported(tag) {
		return nil, false
	}
	lang := compiled[tag].language()
	return lang, lang != nil
}

// Queries returns tag's canned queries in their fixed order. The result is
// empty when tag is unsupported.
func (r *Registry) Queries(tag Tag) []Query {
	if !r.Supported(tag) {
		return []Query{}
	}
	qs := compiled[tag].queries
	out := make([]Query, len(qs))
	copy(out, qs)
	return out
}

// Query looks up one canned query by name.
func (r *Registry) Query(tag Tag, name string) (Query, bool) {
	for _, q := range r.Queries(tag) {
		if q.Name == name {
			return q, true
		}
	}
	return Query{}, false
}

// SupportedTags returns the enabled subset of Tags, in the same order.
func (r *Registry) SupportedTags() []Tag {
	var out []Tag
	for _, t := range allTags {
		if r.Supported(t) {
			out = append(out, t)
		}
	}
	return out
}
