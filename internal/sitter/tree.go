package sitter

import (
	"fmt"
	"runtime"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jward/treebridge/internal/grammar"
	"github.com/jward/treebridge/internal/snapshot"
)

// Tree is a lock-guarded engine tree produced by Parser.Parse. Edit mutates
// it in place; parsing again produces a new Tree.
type Tree struct {
	g       guard
	raw     *tree_sitter.Tree // nil once closed
	tag     grammar.Tag
	cleanup runtime.Cleanup
}

func newTree(raw *tree_sitter.Tree, tag grammar.Tag) *Tree {
	t := &Tree{raw: raw, tag: tag}
	t.cleanup = runtime.AddCleanup(t, releaseTree, raw)
	treeKind.acquire()
	return t
}

func releaseTree(raw *tree_sitter.Tree) {
	raw.Close()
	treeKind.release("cleanup")
}

// with is the tree's lock accessor. Everything that touches the engine tree,
// including the query executor, goes through it.
func (t *Tree) with(fn func(raw *tree_sitter.Tree) error) error {
	defer runtime.KeepAlive(t)
	return t.g.do(func() error {
		if t.raw == nil {
			return ErrClosed
		}
		return fn(t.raw)
	})
}

// Tag returns the grammar the tree was parsed with.
func (t *Tree) Tag() grammar.Tag {
	return t.tag
}

// Edit shifts the tree to account for one contiguous text edit. Call it for
// every edit before re-parsing incrementally.
func (t *Tree) Edit(edit snapshot.InputEdit) error {
	ts := edit.TS()
	err := t.with(func(raw *tree_sitter.Tree) error {
		raw.Edit(&ts)
		return nil
	})
	if err != nil {
		return fmt.Errorf("sitter: edit: %w", err)
	}
	return nil
}

// RootNode snapshots the root. The snapshot has no text.
func (t *Tree) RootNode() (snapshot.Node, error) {
	var n snapshot.Node
	err := t.with(func(raw *tree_sitter.Tree) error {
		n = snapshot.NodeFrom(raw.RootNode(), nil)
		return nil
	})
	if err != nil {
		return snapshot.Node{}, fmt.Errorf("sitter: root node: %w", err)
	}
	return n, nil
}

// PreWalk snapshots every node in pre-order: parent before children,
// children left to right. Snapshots have no text.
func (t *Tree) PreWalk() ([]snapshot.Node, error) {
	var nodes []snapshot.Node
	err := t.with(func(raw *tree_sitter.Tree) error {
		nodes = preWalk(raw)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sitter: pre walk: %w", err)
	}
	return nodes, nil
}

func preWalk(raw *tree_sitter.Tree) []snapshot.Node {
	cursor := raw.Walk()
	defer cursor.Close()

	var nodes []snapshot.Node
	for {
		nodes = append(nodes, snapshot.NodeFrom(cursor.Node(), nil))
		if cursor.GotoFirstChild() {
			continue
		}
		for !cursor.GotoNextSibling() {
			if !cursor.GotoParent() {
				return nodes
			}
		}
	}
}

// Close releases the engine tree. It is safe to call more than once.
func (t *Tree) Close() error {
	return t.g.do(func() error {
		if t.raw == nil {
			return nil
		}
		t.cleanup.Stop()
		t.raw.Close()
		t.raw = nil
		treeKind.release("close")
		return nil
	})
}
