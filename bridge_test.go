package treebridge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBridge(t *testing.T, opts ...Option) *Bridge {
	t.Helper()
	b := New(opts...)
	t.Cleanup(func() { b.Close() })
	return b
}

func requireLanguage(t *testing.T, b *Bridge, tag Tag) {
	t.Helper()
	if !b.LanguageSupported(tag) {
		t.Skipf("%s grammar not compiled in", tag)
	}
}

func parseWith(t *testing.T, b *Bridge, tag Tag, src string) (*Parser, *Tree) {
	t.Helper()
	requireLanguage(t, b, tag)
	p, err := b.ParserNew(tag)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	tree, err := b.ParserParse(context.Background(), p, []byte(src), nil)
	require.NoError(t, err)
	require.NotNil(t, tree)
	t.Cleanup(func() { tree.Close() })
	return p, tree
}

func TestBridge_ParseRootNode(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	_, tree := parseWith(t, b, JavaScript, "const x = 1;")

	root, err := b.TreeRootNode(context.Background(), tree)
	require.NoError(t, err)
	assert.Equal(t, "program", root.Kind)
	assert.False(t, root.HasError)
	assert.Equal(t, uint(0), root.Range.StartByte)
	assert.Equal(t, uint(12), root.Range.EndByte)
}

func TestBridge_QueryIdentifiers(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	src := "function f(a) { return a; }"
	_, tree := parseWith(t, b, JavaScript, src)

	matches, err := b.QueryMatches(context.Background(), tree, JavaScript, []byte("(identifier) @id"), []byte(src))
	require.NoError(t, err)

	var texts []string
	for _, m := range matches {
		for _, c := range m.Captures {
			assert.Equal(t, "id", c.CaptureName)
			texts = append(texts, c.Node.TextOr(""))
		}
	}
	assert.Equal(t, []string{"f", "a", "a"}, texts)
}

func TestBridge_IncrementalEdit(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	ctx := context.Background()
	p, tree := parseWith(t, b, HTML, "<a>hi</a>")

	require.NoError(t, b.TreeEdit(ctx, tree, InputEdit{
		StartByte: 3, OldEndByte: 5, NewEndByte: 7,
		StartPosition:  Point{Row: 0, Column: 3},
		OldEndPosition: Point{Row: 0, Column: 5},
		NewEndPosition: Point{Row: 0, Column: 7},
	}))

	next, err := b.ParserParse(ctx, p, []byte("<a>HELLO</a>"), tree)
	require.NoError(t, err)
	require.NotNil(t, next)
	defer next.Close()

	root, err := b.TreeRootNode(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, uint(12), root.Range.EndByte)
}

func TestBridge_MalformedInput(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	_, tree := parseWith(t, b, JavaScript, "const x =")

	root, err := b.TreeRootNode(context.Background(), tree)
	require.NoError(t, err)
	assert.True(t, root.HasError)
}

func TestBridge_BadQuery(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	_, tree := parseWith(t, b, CSS, "")

	_, err := b.QueryMatches(context.Background(), tree, CSS, []byte("((("), nil)
	require.ErrorIs(t, err, ErrQuery)
	assert.Equal(t, "query_error", ErrorKind(err))

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, uint(0), qe.Row)
}

func TestBridge_RestrictedLanguage(t *testing.T) {
	t.Parallel()
	b := newBridge(t, WithLanguages(JavaScript))

	assert.False(t, b.LanguageSupported(CSS))
	assert.Empty(t, b.LanguageQueries(CSS))
	assert.Empty(t, b.LanguageQueryList(CSS))

	_, err := b.ParserNew(CSS)
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Equal(t, "unsupported_language", ErrorKind(err))
}

func TestBridge_LanguageQueries(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, JavaScript)

	qs := b.LanguageQueries(JavaScript)
	assert.Len(t, qs, 5)
	for _, name := range []string{"highlights", "injection", "jsx", "locals", "tags"} {
		assert.NotEmpty(t, qs[name], name)
	}

	var names []string
	for _, q := range b.LanguageQueryList(JavaScript) {
		names = append(names, q.Name)
	}
	assert.Equal(t, []string{"highlights", "injection", "jsx", "locals", "tags"}, names)
}

func TestBridge_SetLanguageAndRanges(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, CSS)
	p, _ := parseWith(t, b, JavaScript, "1;")

	require.NoError(t, b.ParserSetLanguage(p, CSS))
	assert.Equal(t, CSS, p.Tag())

	err := b.ParserSetIncludedRanges(p, []Range{{StartByte: 5, EndByte: 9}, {StartByte: 0, EndByte: 3}})
	require.ErrorIs(t, err, ErrIncludedRanges)
	assert.Equal(t, "included_ranges_error", ErrorKind(err))
	require.NoError(t, b.ParserSetIncludedRanges(p, nil))
}

func TestBridge_PreWalkStartsAtRoot(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	ctx := context.Background()
	_, tree := parseWith(t, b, TypeScript, "let n: number = 1;")

	root, err := b.TreeRootNode(ctx, tree)
	require.NoError(t, err)
	nodes, err := b.TreePreWalk(ctx, tree)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	assert.Equal(t, root.ID, nodes[0].ID)
	assert.Equal(t, "program", nodes[0].Kind)
}

func TestBridge_CanceledContextNeverRuns(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	requireLanguage(t, b, JavaScript)
	p, err := b.ParserNew(JavaScript)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tree, err := b.ParserParse(ctx, p, []byte("1;"), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tree)
	assert.Equal(t, "", ErrorKind(err))
}

func TestBridge_HeavyCallsAfterClose(t *testing.T) {
	t.Parallel()
	b := New(WithWorkers(1))
	requireLanguage(t, b, JavaScript)
	p, err := b.ParserNew(JavaScript)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, b.Close())
	_, err = b.ParserParse(context.Background(), p, []byte("1;"), nil)
	assert.Equal(t, "closed", ErrorKind(err))
}

func TestBridge_ClosedHandle(t *testing.T) {
	t.Parallel()
	b := newBridge(t)
	_, tree := parseWith(t, b, JavaScript, "1;")
	require.NoError(t, tree.Close())

	_, err := b.TreeRootNode(context.Background(), tree)
	require.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "closed", ErrorKind(err))
}

func TestBridge_Stats(t *testing.T) {
	b := newBridge(t)
	before := b.Stats()
	parseWith(t, b, JavaScript, "1;")
	after := b.Stats()

	require.Len(t, after, 2)
	assert.Equal(t, "parser", after[0].Kind)
	assert.Greater(t, after[0].Created, before[0].Created)
	assert.Greater(t, after[1].Created, before[1].Created)
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("plain"), ""},
		{fmt.Errorf("wrapped: %w", ErrUnsupportedLanguage), "unsupported_language"},
		{ErrLanguage, "language_error"},
		{ErrIncludedRanges, "included_ranges_error"},
		{&QueryError{Kind: "syntax"}, "query_error"},
		{ErrInvalidUTF8, "invalid_utf8"},
		{ErrLockPoisoned, "lock_poisoned"},
		{ErrClosed, "closed"},
		{ErrPanic, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestTags_IncludesEveryGrammar(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []Tag{CSS, Elixir, EmbeddedTemplate, Erlang, Gleam, HTML, JavaScript, SQL, TypeScript}, Tags())
}
