package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wantQueries is the fixed canned-query list for every tag.
var wantQueries = map[Tag][]string{
	CSS:              {QueryHighlights},
	Elixir:           {QueryHighlights, QueryTags},
	EmbeddedTemplate: {QueryHighlights},
	Erlang:           nil,
	Gleam:            {QueryHighlights, QueryLocals, QueryTags},
	HTML:             {QueryHighlights, QueryInjection},
	JavaScript:       {QueryHighlights, QueryInjection, QueryJSX, QueryLocals, QueryTags},
	SQL:              nil,
	TypeScript:       {QueryHighlights, QueryLocals, QueryTags},
}

func queryNames(qs []Query) []string {
	var names []string
	for _, q := range qs {
		names = append(names, q.Name)
	}
	return names
}

func TestTags_ClosedSet(t *testing.T) {
	t.Parallel()
	tags := Tags()
	require.Len(t, tags, 9)
	assert.Equal(t, []Tag{CSS, Elixir, EmbeddedTemplate, Erlang, Gleam, HTML, JavaScript, SQL, TypeScript}, tags)

	// Callers get a copy.
	tags[0] = "mutated"
	assert.Equal(t, CSS, Tags()[0])
}

func TestParseTag(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Tag
		ok   bool
	}{
		{"css", CSS, true},
		{"embedded_template", EmbeddedTemplate, true},
		{"typescript", TypeScript, true},
		{"tsx", "", false},
		{"JavaScript", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseTag(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_QueriesPerGrammar(t *testing.T) {
	t.Parallel()
	reg := Default()
	for tag, want := range wantQueries {
		t.Run(string(tag), func(t *testing.T) {
			t.Parallel()
			if !reg.Supported(tag) {
				assert.Empty(t, reg.Queries(tag))
				return
			}
			qs := reg.Queries(tag)
			assert.Equal(t, want, queryNames(qs))
			for _, q := range qs {
				assert.NotEmpty(t, q.Source, "%s/%s", tag, q.Name)
			}
		})
	}
}

func TestRegistry_LanguagePresentIffSupported(t *testing.T) {
	t.Parallel()
	reg := Default()
	for _, tag := range Tags() {
		lang, ok := reg.Language(tag)
		assert.Equal(t, reg.Supported(tag), ok, string(tag))
		if ok {
			assert.NotNil(t, lang, string(tag))
		} else {
			assert.Nil(t, lang, string(tag))
		}
	}
}

func TestRegistry_LanguageIsCached(t *testing.T) {
	t.Parallel()
	if !Default().Supported(JavaScript) {
		t.Skip("javascript grammar not compiled in")
	}
	a, _ := Default().Language(JavaScript)
	b, _ := Default().Language(JavaScript)
	assert.Same(t, a, b)
}

func TestRegistry_Restrict(t *testing.T) {
	t.Parallel()
	reg := Default().Restrict(JavaScript, HTML)

	for _, tag := range Tags() {
		want := (tag == JavaScript || tag == HTML) && Default().Supported(tag)
		assert.Equal(t, want, reg.Supported(tag), string(tag))
	}

	assert.Empty(t, reg.Queries(CSS))
	_, ok := reg.Language(CSS)
	assert.False(t, ok)

	// Restricting further can only shrink the set.
	narrower := reg.Restrict(CSS, HTML)
	assert.False(t, narrower.Supported(CSS))
	assert.Equal(t, Default().Supported(HTML), narrower.Supported(HTML))
}

func TestRegistry_UnknownTag(t *testing.T) {
	t.Parallel()
	reg := Default()
	assert.False(t, reg.Supported("cobol"))
	assert.Empty(t, reg.Queries("cobol"))
	_, ok := reg.Language("cobol")
	assert.False(t, ok)
}

func TestRegistry_QueryLookup(t *testing.T) {
	t.Parallel()
	reg := Default()
	if !reg.Supported(JavaScript) {
		t.Skip("javascript grammar not compiled in")
	}
	q, ok := reg.Query(JavaScript, QueryJSX)
	require.True(t, ok)
	assert.Equal(t, QueryJSX, q.Name)
	assert.Contains(t, q.Source, "jsx_opening_element")

	_, ok = reg.Query(JavaScript, "folds")
	assert.False(t, ok)
}

func TestRegistry_SupportedTagsKeepsOrder(t *testing.T) {
	t.Parallel()
	reg := Default().Restrict(TypeScript, CSS)
	var want []Tag
	for _, tag := range []Tag{CSS, TypeScript} {
		if Default().Supported(tag) {
			want = append(want, tag)
		}
	}
	assert.Equal(t, want, reg.SupportedTags())
}

func TestTagForFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want Tag
		ok   bool
	}{
		{"style.css", CSS, true},
		{"lib/app.ex", Elixir, true},
		{"test/app_test.exs", Elixir, true},
		{"views/index.html.erb", EmbeddedTemplate, true},
		{"src/app.erl", Erlang, true},
		{"src/app.gleam", Gleam, true},
		{"index.HTML", HTML, true},
		{"main.mjs", JavaScript, true},
		{"component.jsx", JavaScript, true},
		{"schema.sql", SQL, true},
		{"index.ts", TypeScript, true},
		{"main.go", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := TagForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
