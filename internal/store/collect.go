package store

import (
	"context"
	"fmt"

	"github.com/jward/treebridge"
)

// Collect builds a batch for one parsed file: its pre-walk plus the matches
// of every canned query registered for the tree's grammar.
func Collect(ctx context.Context, b *treebridge.Bridge, path string, tree *treebridge.Tree, src []byte) (*Batch, error) {
	nodes, err := b.TreePreWalk(ctx, tree)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", path, err)
	}

	tag := tree.Tag()
	batch := NewBatch(path, string(tag), src, nodes)
	for _, q := range b.LanguageQueryList(tag) {
		matches, err := b.QueryMatches(ctx, tree, tag, []byte(q.Source), src)
		if err != nil {
			return nil, fmt.Errorf("collect %s: query %s: %w", path, q.Name, err)
		}
		batch.AddMatches(q.Name, matches)
	}
	return batch, nil
}
