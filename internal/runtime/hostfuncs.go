package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"

	"github.com/jward/treebridge"
	"github.com/jward/treebridge/internal/grammar"
)

// parserHandle and treeHandle are what scripts hold. They are proxied with
// no exported surface, so scripts can only pass them back to builtins.
type parserHandle struct {
	p *treebridge.Parser
}

type treeHandle struct {
	t *treebridge.Tree
}

// hostError renders err for scripts as "<entry>: <kind>: <detail>".
func hostError(entry string, err error) *object.Error {
	kind := treebridge.ErrorKind(err)
	if kind == "" {
		kind = "error"
	}
	return object.Errorf("%s: %s: %v", entry, kind, err)
}

// argError reports a malformed argument in the same shape as hostError.
func argError(entry, format string, args ...any) *object.Error {
	return object.Errorf("%s: type_error: %s", entry, fmt.Sprintf(format, args...))
}

func toTag(entry string, obj object.Object) (grammar.Tag, *object.Error) {
	s, err := toString(obj)
	if err != nil {
		return "", argError(entry, "language: %v", err)
	}
	return grammar.Tag(s), nil
}

func toParser(entry string, obj object.Object) (*treebridge.Parser, *object.Error) {
	if proxy, ok := obj.(*object.Proxy); ok {
		if h, ok := proxy.Interface().(*parserHandle); ok {
			return h.p, nil
		}
	}
	return nil, argError(entry, "expected parser, got %s", obj.Type())
}

func toTree(entry string, obj object.Object) (*treebridge.Tree, *object.Error) {
	if proxy, ok := obj.(*object.Proxy); ok {
		if h, ok := proxy.Interface().(*treeHandle); ok {
			return h.t, nil
		}
	}
	return nil, argError(entry, "expected tree, got %s", obj.Type())
}

func newHandle(entry string, h any) object.Object {
	proxy, err := object.NewProxy(h)
	if err != nil {
		return hostError(entry, err)
	}
	return proxy
}

// language_tags() → list of supported tags
func makeLanguageTagsFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("language_tags", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("language_tags", 0, len(args))
		}
		tags := b.Registry().SupportedTags()
		items := make([]object.Object, 0, len(tags))
		for _, tag := range tags {
			items = append(items, object.NewString(string(tag)))
		}
		return object.NewList(items)
	})
}

// language_supported(tag) → bool
func makeLanguageSupportedFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("language_supported", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("language_supported", 1, len(args))
		}
		tag, argErr := toTag("language_supported", args[0])
		if argErr != nil {
			return argErr
		}
		return object.NewBool(b.LanguageSupported(tag))
	})
}

// language_queries(tag) → map of query name to source
func makeLanguageQueriesFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("language_queries", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("language_queries", 1, len(args))
		}
		tag, argErr := toTag("language_queries", args[0])
		if argErr != nil {
			return argErr
		}
		out := make(map[string]object.Object)
		for name, src := range b.LanguageQueries(tag) {
			out[name] = object.NewString(src)
		}
		return object.NewMap(out)
	})
}

// parser_new(tag) → parser
func makeParserNewFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("parser_new", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parser_new", 1, len(args))
		}
		tag, argErr := toTag("parser_new", args[0])
		if argErr != nil {
			return argErr
		}
		p, err := b.ParserNew(tag)
		if err != nil {
			return hostError("parser_new", err)
		}
		return newHandle("parser_new", &parserHandle{p: p})
	})
}

// parser_set_language(parser, tag) → nil
func makeParserSetLanguageFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("parser_set_language", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parser_set_language", 2, len(args))
		}
		p, argErr := toParser("parser_set_language", args[0])
		if argErr != nil {
			return argErr
		}
		tag, argErr := toTag("parser_set_language", args[1])
		if argErr != nil {
			return argErr
		}
		if err := b.ParserSetLanguage(p, tag); err != nil {
			return hostError("parser_set_language", err)
		}
		return object.Nil
	})
}

// parser_set_included_ranges(parser, ranges) → nil
func makeParserSetIncludedRangesFn(b *treebridge.Bridge) *object.Builtin {
	const entry = "parser_set_included_ranges"
	return object.NewBuiltin(entry, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError(entry, 2, len(args))
		}
		p, argErr := toParser(entry, args[0])
		if argErr != nil {
			return argErr
		}
		ranges, err := rangesFromObject(args[1])
		if err != nil {
			return argError(entry, "%v", err)
		}
		for i, r := range ranges {
			if !r.Valid() {
				return hostError(entry, fmt.Errorf("%w: range %d ends before it starts", treebridge.ErrIncludedRanges, i))
			}
		}
		if err := b.ParserSetIncludedRanges(p, ranges); err != nil {
			return hostError(entry, err)
		}
		return object.Nil
	})
}

// parser_parse(parser, source, old_tree?) → tree or nil
func makeParserParseFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("parser_parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 || len(args) > 3 {
			return argError("parser_parse", "expected 2 or 3 arguments, got %d", len(args))
		}
		p, argErr := toParser("parser_parse", args[0])
		if argErr != nil {
			return argErr
		}
		src, err := toBytes(args[1])
		if err != nil {
			return argError("parser_parse", "source: %v", err)
		}
		var old *treebridge.Tree
		if len(args) == 3 && !isNil(args[2]) {
			if old, argErr = toTree("parser_parse", args[2]); argErr != nil {
				return argErr
			}
		}

		tree, err := b.ParserParse(ctx, p, src, old)
		if err != nil {
			return hostError("parser_parse", err)
		}
		if tree == nil {
			return object.Nil
		}
		return newHandle("parser_parse", &treeHandle{t: tree})
	})
}

// tree_edit(tree, edit) → nil
func makeTreeEditFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("tree_edit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("tree_edit", 2, len(args))
		}
		t, argErr := toTree("tree_edit", args[0])
		if argErr != nil {
			return argErr
		}
		edit, err := editFromObject(args[1])
		if err != nil {
			return argError("tree_edit", "%v", err)
		}
		if !edit.Valid() {
			return argError("tree_edit", "edit ends before it starts")
		}
		if err := b.TreeEdit(ctx, t, edit); err != nil {
			return hostError("tree_edit", err)
		}
		return object.Nil
	})
}

// tree_root_node(tree) → node
func makeTreeRootNodeFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("tree_root_node", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("tree_root_node", 1, len(args))
		}
		t, argErr := toTree("tree_root_node", args[0])
		if argErr != nil {
			return argErr
		}
		n, err := b.TreeRootNode(ctx, t)
		if err != nil {
			return hostError("tree_root_node", err)
		}
		return nodeToObject(n)
	})
}

// tree_pre_walk(tree) → list of nodes
func makeTreePreWalkFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("tree_pre_walk", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("tree_pre_walk", 1, len(args))
		}
		t, argErr := toTree("tree_pre_walk", args[0])
		if argErr != nil {
			return argErr
		}
		nodes, err := b.TreePreWalk(ctx, t)
		if err != nil {
			return hostError("tree_pre_walk", err)
		}
		return nodesToList(nodes)
	})
}

// query_matches(tree, tag, query, source) → list of matches
func makeQueryMatchesFn(b *treebridge.Bridge) *object.Builtin {
	return object.NewBuiltin("query_matches", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 4 {
			return object.NewArgsError("query_matches", 4, len(args))
		}
		t, argErr := toTree("query_matches", args[0])
		if argErr != nil {
			return argErr
		}
		tag, argErr := toTag("query_matches", args[1])
		if argErr != nil {
			return argErr
		}
		query, err := toBytes(args[2])
		if err != nil {
			return argError("query_matches", "query: %v", err)
		}
		src, err := toBytes(args[3])
		if err != nil {
			return argError("query_matches", "source: %v", err)
		}

		matches, err := b.QueryMatches(ctx, t, tag, query, src)
		if err != nil {
			return hostError("query_matches", err)
		}
		return matchesToList(matches)
	})
}

// logObject provides log.Info/Warn/Error for Risor scripts.
type logObject struct {
	log commonlog.Logger
}

func (l *logObject) Info(msg string) {
	l.log.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.log.Warning(msg)
}

func (l *logObject) Error(msg string) {
	l.log.Error(msg)
}
