package sitter

import (
	"fmt"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jward/treebridge/internal/grammar"
	"github.com/jward/treebridge/internal/snapshot"
)

// QueryMatches compiles query against tag's grammar and runs it over the
// whole tree. Capture text is sliced from source; source is expected to be
// the bytes tree was parsed from, and capture text is meaningless (or
// absent, when out of range) if it is not. The query is compiled on every
// call.
func QueryMatches(langs LanguageSource, tree *Tree, tag grammar.Tag, query, source []byte) ([]snapshot.QueryMatch, error) {
	lang, err := resolve(langs, tag)
	if err != nil {
		return nil, fmt.Errorf("sitter: query: %w", err)
	}
	if !utf8.Valid(query) {
		return nil, fmt.Errorf("sitter: query: %w", ErrInvalidUTF8)
	}

	q, qerr := tree_sitter.NewQuery(lang, string(query))
	if qerr != nil {
		return nil, fmt.Errorf("sitter: query: %w", queryErrorFrom(qerr))
	}
	defer q.Close()
	names := q.CaptureNames()

	matches := []snapshot.QueryMatch{}
	err = tree.with(func(raw *tree_sitter.Tree) error {
		cursor := tree_sitter.NewQueryCursor()
		defer cursor.Close()

		root := raw.RootNode()
		// Text predicates slice the source by node offsets, so a source
		// shorter than the tree is padded for the engine only.
		text := source
		if end := int(root.EndByte()); len(text) < end {
			text = make([]byte, end)
			copy(text, source)
		}

		it := cursor.Matches(q, root, text)
		for m := it.Next(); m != nil; m = it.Next() {
			matches = append(matches, snapshot.MatchFrom(m, names, source))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sitter: query: %w", err)
	}
	return matches, nil
}
