package store

import (
	"slices"
	"sync"
	"time"

	"github.com/jward/treebridge/internal/snapshot"
)

// Batch buffers one file's snapshots in memory until CommitBatch writes
// them. Parse workers fill batches concurrently; a single writer commits.
//
// The mutex protects the capture slice so several queries over the same
// tree can append in parallel.
type Batch struct {
	Tree  Tree
	Nodes []snapshot.Node

	mu       sync.Mutex
	captures []batchCapture
}

type batchCapture struct {
	queryName string
	matches   []snapshot.QueryMatch
}

// NewBatch starts a batch for path. Nodes should be the tree's pre-walk;
// leaves without text get it from src.
func NewBatch(path, language string, src []byte, nodes []snapshot.Node) *Batch {
	nodes = slices.Clone(nodes)
	for i, n := range nodes {
		if n.ChildCount == 0 && n.Text == nil {
			nodes[i] = n.WithText(src)
		}
	}
	b := &Batch{
		Tree: Tree{
			Path:      path,
			Language:  language,
			Hash:      ContentHash(src),
			ByteLen:   len(src),
			NodeCount: len(nodes),
			StoredAt:  time.Now().UTC().Truncate(time.Second),
		},
		Nodes: nodes,
	}
	if len(nodes) > 0 {
		b.Tree.HasError = nodes[0].HasError
	}
	return b
}

// AddMatches buffers the matches of one named query.
func (b *Batch) AddMatches(queryName string, matches []snapshot.QueryMatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.captures = append(b.captures, batchCapture{queryName: queryName, matches: matches})
}

// CaptureCount returns the number of buffered captures across all queries.
func (b *Batch) CaptureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, bc := range b.captures {
		for _, m := range bc.matches {
			n += len(m.Captures)
		}
	}
	return n
}
