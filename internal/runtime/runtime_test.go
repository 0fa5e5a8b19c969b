package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/treebridge"
	"github.com/jward/treebridge/internal/store"
)

func newBridge(t *testing.T, opts ...treebridge.Option) *treebridge.Bridge {
	t.Helper()
	b := treebridge.New(append([]treebridge.Option{treebridge.WithWorkers(2)}, opts...)...)
	t.Cleanup(func() { b.Close() })
	return b
}

func requireLanguage(t *testing.T, b *treebridge.Bridge, tag treebridge.Tag) {
	t.Helper()
	if !b.LanguageSupported(tag) {
		t.Skipf("%s grammar not compiled in", tag)
	}
}

func run(t *testing.T, rt *Runtime, script string, globals map[string]any) any {
	t.Helper()
	result, err := rt.RunSource(context.Background(), script, globals)
	require.NoError(t, err)
	return result
}

// --- Bridge builtins ---

func TestRunSource_ParseRootNode(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)
	rt := NewRuntime(b, "")

	got := run(t, rt, `
p := parser_new("javascript")
tree := parser_parse(p, "const x = 1;")
tree_root_node(tree)
`, nil)

	root, ok := got.(map[string]any)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "program", root["kind"])
	assert.Equal(t, false, root["has_error"])
	assert.Nil(t, root["text"])

	rng := root["range"].(map[string]any)
	assert.Equal(t, int64(0), rng["start_byte"])
	assert.Equal(t, int64(12), rng["end_byte"])
}

func TestRunSource_QueryIdentifiers(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)
	rt := NewRuntime(b, "")

	got := run(t, rt, `
src := "function f(a) { return a; }"
p := parser_new("javascript")
tree := parser_parse(p, src)
matches := query_matches(tree, "javascript", "(identifier) @id", src)
names := []
for i := 0; i < len(matches); i++ {
    caps := matches[i]["captures"]
    for j := 0; j < len(caps); j++ {
        assert(caps[j]["capture_name"] == "id", "unexpected capture name")
        names.append(caps[j]["node"]["text"])
    }
}
names
`, nil)

	assert.Equal(t, []any{"f", "a", "a"}, got)
}

func TestRunSource_IncrementalEdit(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.HTML)
	rt := NewRuntime(b, "")

	got := run(t, rt, `
p := parser_new("html")
tree := parser_parse(p, "<a>hi</a>")
edit := {"start_byte": 3, "old_end_byte": 5, "new_end_byte": 7}
edit["start_position"] = {"row": 0, "column": 3}
edit["old_end_position"] = {"row": 0, "column": 5}
edit["new_end_position"] = {"row": 0, "column": 7}
tree_edit(tree, edit)
assert(tree_root_node(tree)["has_changes"], "edit should mark the tree")
edited := parser_parse(p, "<a>HELLO</a>", tree)
tree_root_node(edited)["range"]["end_byte"]
`, nil)

	assert.Equal(t, int64(12), got)
}

func TestRunSource_MalformedInputHasError(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)
	rt := NewRuntime(b, "")

	got := run(t, rt, `
p := parser_new("javascript")
tree_root_node(parser_parse(p, "const x ="))["has_error"]
`, nil)
	assert.Equal(t, true, got)
}

func TestRunSource_QueryErrorKind(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.CSS)
	rt := NewRuntime(b, "")

	_, err := rt.RunSource(context.Background(), `
p := parser_new("css")
tree := parser_parse(p, "")
query_matches(tree, "css", "(((", "")
`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query_matches: query_error:")
}

func TestRunSource_UnsupportedLanguageKind(t *testing.T) {
	t.Parallel()
	b := newBridge(t, treebridge.WithLanguages(treebridge.JavaScript))
	rt := NewRuntime(b, "")

	got := run(t, rt, `[language_supported("css"), len(language_queries("css")), language_tags()]`, nil)
	list := got.([]any)
	assert.Equal(t, false, list[0])
	assert.Equal(t, int64(0), list[1])

	_, err := rt.RunSource(context.Background(), `parser_new("css")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser_new: unsupported_language:")
}

func TestRunSource_LanguageQueries(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.Gleam)
	rt := NewRuntime(b, "")

	got := run(t, rt, `language_queries("gleam")`, nil)
	qs := got.(map[string]any)
	assert.Len(t, qs, 3)
	for _, name := range []string{"highlights", "locals", "tags"} {
		assert.NotEmpty(t, qs[name], name)
	}

	assert.Equal(t, false, run(t, rt, `language_supported("cobol")`, nil))
}

func TestRunSource_ByteSliceSource(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)
	rt := NewRuntime(b, "")

	got := run(t, rt, `
p := parser_new("javascript")
tree := parser_parse(p, src, nil)
matches := query_matches(tree, "javascript", "(number) @n", src)
matches[0]["captures"][0]["node"]["text"]
`, map[string]any{"src": object.NewByteSlice([]byte("let v = 42;"))})
	assert.Equal(t, "42", got)
}

func TestRunSource_PreWalkAndSetLanguage(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)
	requireLanguage(t, b, treebridge.CSS)
	rt := NewRuntime(b, "")

	got := run(t, rt, `
p := parser_new("javascript")
parser_set_language(p, "css")
parser_set_included_ranges(p, [])
nodes := tree_pre_walk(parser_parse(p, "a { color: red; }"))
[nodes[0]["kind"], len(nodes) > 1]
`, nil)
	assert.Equal(t, []any{"stylesheet", true}, got)
}

func TestRunSource_ArgumentErrors(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)
	rt := NewRuntime(b, "")

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"parser not a handle", `parser_parse("nope", "x")`, "parser_parse: type_error:"},
		{"source not bytes", `parser_parse(parser_new("javascript"), 42)`, "parser_parse: type_error:"},
		{"tree not a handle", `tree_root_node(parser_new("javascript"))`, "tree_root_node: type_error:"},
		{"edit missing field", `
p := parser_new("javascript")
tree_edit(parser_parse(p, "1;"), {"start_byte": 0})
`, "tree_edit: type_error:"},
		{"reversed range", `
r := {"start_byte": 5, "end_byte": 1, "start_point": {"row": 0, "column": 5}, "end_point": {"row": 0, "column": 1}}
parser_set_included_ranges(parser_new("javascript"), [r])
`, "parser_set_included_ranges: included_ranges_error:"},
		{"negative offset", `
r := {"start_byte": -1, "end_byte": 1, "start_point": {"row": 0, "column": 0}, "end_point": {"row": 0, "column": 1}}
parser_set_included_ranges(parser_new("javascript"), [r])
`, "parser_set_included_ranges: type_error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := rt.RunSource(context.Background(), tt.script, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// --- Store builtins ---

func TestRunSource_StoreTreeAndQuery(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)

	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	rt := NewRuntime(b, "", WithStore(s))
	got := run(t, rt, `
src := "function greet() {}"
p := parser_new("javascript")
id := store_tree("/src/greet.js", parser_parse(p, src), src)
rows := db_query("SELECT kind FROM nodes WHERE tree_id = ? ORDER BY ordinal LIMIT 1", id)
rows[0]["kind"]
`, nil)
	assert.Equal(t, "program", got)

	stored, err := s.TreeByPath("/src/greet.js")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "javascript", stored.Language)
}

func TestRunSource_DBQueryRejectsWrites(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	rt := NewRuntime(b, "", WithStore(s))
	_, err = rt.RunSource(context.Background(), `db_query("DELETE FROM trees")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT and WITH")
}

func TestRunSource_DBQueryCannotWriteThroughSelectOrWith(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, treebridge.JavaScript)

	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	rt := NewRuntime(b, "", WithStore(s))
	run(t, rt, `
src := "let a = 1;"
store_tree("/a.js", parser_parse(parser_new("javascript"), src), src)
store_tree("/b.js", parser_parse(parser_new("javascript"), src), src)
`, nil)

	trees, err := s.Trees()
	require.NoError(t, err)
	require.Len(t, trees, 2)

	for _, stmt := range []string{
		`WITH x AS (SELECT 1) DELETE FROM trees WHERE path = '/a.js'`,
		`SELECT 1; DELETE FROM trees`,
		`SELECT 1; UPDATE trees SET language = 'sql'`,
	} {
		_, err := rt.RunSource(context.Background(), `db_query("`+stmt+`")`, nil)
		assert.Error(t, err, stmt)

		trees, err := s.Trees()
		require.NoError(t, err)
		require.Len(t, trees, 2, stmt)
		for _, tree := range trees {
			assert.Equal(t, "javascript", tree.Language, stmt)
		}
	}
}

func TestBuildGlobals_StoreOnlyWhenAttached(t *testing.T) {
	t.Parallel()
	b := newBridge(t)

	globals := NewRuntime(b, "").buildGlobals(nil)
	assert.NotContains(t, globals, "store_tree")
	assert.NotContains(t, globals, "db_query")
	for _, name := range []string{
		"language_supported", "language_queries", "parser_new", "parser_set_language",
		"parser_set_included_ranges", "parser_parse", "tree_edit", "tree_root_node",
		"tree_pre_walk", "query_matches", "language_tags", "log",
	} {
		assert.Contains(t, globals, name)
	}
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sum.risor"), []byte(`1 + 2`), 0644))

	rt := NewRuntime(newBridge(t), dir)
	got, err := rt.RunScript(context.Background(), "sum.risor", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(newBridge(t), t.TempDir())
	_, err := rt.RunScript(context.Background(), "missing.risor", nil)
	require.Error(t, err)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"outline.risor": &fstest.MapFile{Data: []byte(`x := 1`)},
	}
	rt := NewRuntime(newBridge(t), "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/outline.risor")
	require.NoError(t, err)
	assert.Equal(t, "x := 1", got)

	_, err = rt.LoadScript("nope.risor")
	require.Error(t, err)
}

func TestImport_FSImporterSeesGlobals(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"helpers.risor": &fstest.MapFile{Data: []byte(`
func supported(tag) {
	log.Info("checking " + tag)
	return language_supported(tag)
}
`)},
	}
	rt := NewRuntime(newBridge(t), "", WithRuntimeFS(mapFS))

	got := run(t, rt, `
import helpers
helpers.supported("cobol")
`, nil)
	assert.Equal(t, false, got)
}

func TestImport_LocalImporter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(newBridge(t), dir)
	got := run(t, rt, `
import math_utils
math_utils.double(21)
`, nil)
	assert.Equal(t, int64(42), got)
}

// --- Conversions ---

func TestEditFromObject(t *testing.T) {
	t.Parallel()
	pt := func(r, c int64) object.Object {
		return object.NewMap(map[string]object.Object{"row": object.NewInt(r), "column": object.NewInt(c)})
	}
	obj := object.NewMap(map[string]object.Object{
		"start_byte":       object.NewInt(3),
		"old_end_byte":     object.NewInt(5),
		"new_end_byte":     object.NewInt(7),
		"start_position":   pt(0, 3),
		"old_end_position": pt(0, 5),
		"new_end_position": pt(1, 0),
	})

	got, err := editFromObject(obj)
	require.NoError(t, err)
	assert.Equal(t, treebridge.InputEdit{
		StartByte: 3, OldEndByte: 5, NewEndByte: 7,
		StartPosition:  treebridge.Point{Row: 0, Column: 3},
		OldEndPosition: treebridge.Point{Row: 0, Column: 5},
		NewEndPosition: treebridge.Point{Row: 1, Column: 0},
	}, got)

	_, err = editFromObject(object.NewString("edit"))
	require.Error(t, err)
}

func TestNodeToObject_AbsentText(t *testing.T) {
	t.Parallel()
	text := "x"
	withText := nodeToObject(treebridge.Node{Kind: "identifier", Text: &text}).Interface().(map[string]any)
	assert.Equal(t, "x", withText["text"])

	without := nodeToObject(treebridge.Node{Kind: "program"}).Interface().(map[string]any)
	assert.Nil(t, without["text"])
	assert.Contains(t, without, "child_count")
}

func TestToBytes(t *testing.T) {
	t.Parallel()
	got, err := toBytes(object.NewString("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got, err = toBytes(object.NewByteSlice([]byte{0xff, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00}, got)

	_, err = toBytes(object.NewInt(1))
	require.Error(t, err)
}
