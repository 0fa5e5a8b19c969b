// Package treebridge exposes the tree-sitter incremental parsing engine to
// managed hosts: Go callers of this package and Risor scripts run by
// internal/runtime.
//
// # Handles
//
// A [Parser] owns one engine parser and a [Tree] owns one engine tree. Each
// handle has its own mutex, so operations on one handle run one at a time
// while distinct handles never contend. A panic while a handle is locked
// poisons it: every later operation fails with [ErrLockPoisoned].
//
// Native memory is released when a handle becomes unreachable. Call Close to
// release it early; operations on a closed handle fail with [ErrClosed].
//
// # Snapshots
//
// Nothing returned by the bridge points into engine memory. Nodes, ranges and
// query matches are plain values ([Node], [Range], [QueryMatch]) that stay
// valid after their tree is edited, re-parsed or closed.
//
// # Heavy work
//
// Parsing, editing, walking and querying are CPU-heavy and run on a fixed
// pool of OS-thread-locked workers. The context passed to these calls only
// governs admission: once a worker has taken the job it runs to completion.
//
//	b := treebridge.New()
//	defer b.Close()
//
//	p, err := b.ParserNew(treebridge.JavaScript)
//	if err != nil { ... }
//	tree, err := b.ParserParse(ctx, p, src, nil)
//	root, err := b.TreeRootNode(ctx, tree)
//
// # Grammars
//
// Nine grammars are compiled in by default. Build with -tags no_<tag> to drop
// one, or -tags lean to drop them all. [WithLanguages] restricts the set at
// run time.
package treebridge
