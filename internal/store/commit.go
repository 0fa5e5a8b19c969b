package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/treebridge/internal/snapshot"
)

// CommitBatch writes every batch in a single transaction and returns the
// assigned tree IDs in batch order. A tree already stored under the same
// path is replaced, nodes and captures included.
func (s *Store) CommitBatch(batches ...*Batch) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, len(batches))
	for i, b := range batches {
		id, err := commitOne(tx, b)
		if err != nil {
			return nil, fmt.Errorf("commit batch: %s: %w", b.Tree.Path, err)
		}
		b.Tree.ID = id
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: commit: %w", err)
	}
	log.Debugf("committed %d trees", len(batches))
	return ids, nil
}

func commitOne(tx *sql.Tx, b *Batch) (int64, error) {
	if _, err := tx.Exec("DELETE FROM trees WHERE path = ?", b.Tree.Path); err != nil {
		return 0, fmt.Errorf("replace tree: %w", err)
	}

	t := &b.Tree
	res, err := tx.Exec(
		"INSERT INTO trees (path, language, hash, byte_len, has_error, node_count, stored_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		t.Path, t.Language, t.Hash, t.ByteLen, t.HasError, t.NodeCount, t.StoredAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert tree: %w", err)
	}
	treeID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert tree: %w", err)
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (tree_id, ordinal, node_id, kind, kind_id, is_named, is_extra, has_changes, has_error,
		                   is_error, is_missing, child_count, start_byte, end_byte, start_row, start_col, end_row, end_col, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare nodes: %w", err)
	}
	defer nodeStmt.Close()

	for i, n := range b.Nodes {
		_, err := nodeStmt.Exec(treeID, i, int64(n.ID), n.Kind, n.KindID, n.IsNamed, n.IsExtra, n.HasChanges,
			n.HasError, n.IsError, n.IsMissing, n.ChildCount,
			n.Range.StartByte, n.Range.EndByte,
			n.Range.StartPoint.Row, n.Range.StartPoint.Column,
			n.Range.EndPoint.Row, n.Range.EndPoint.Column, n.Text)
		if err != nil {
			return 0, fmt.Errorf("insert node %d: %w", i, err)
		}
	}

	capStmt, err := tx.Prepare(`
		INSERT INTO captures (tree_id, query_name, match_ordinal, pattern_index, capture_index, capture_name, kind,
		                      start_byte, end_byte, start_row, start_col, end_row, end_col, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare captures: %w", err)
	}
	defer capStmt.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bc := range b.captures {
		for ordinal, m := range bc.matches {
			for _, c := range m.Captures {
				if err := insertCapture(capStmt, treeID, bc.queryName, ordinal, m.PatternIndex, c); err != nil {
					return 0, err
				}
			}
		}
	}
	return treeID, nil
}

func insertCapture(stmt *sql.Stmt, treeID int64, queryName string, ordinal int, pattern uint, c snapshot.QueryCapture) error {
	n := c.Node
	_, err := stmt.Exec(treeID, queryName, ordinal, pattern, c.Index, c.CaptureName, n.Kind,
		n.Range.StartByte, n.Range.EndByte,
		n.Range.StartPoint.Row, n.Range.StartPoint.Column,
		n.Range.EndPoint.Row, n.Range.EndPoint.Column, n.Text)
	if err != nil {
		return fmt.Errorf("insert capture %s/%s: %w", queryName, c.CaptureName, err)
	}
	return nil
}
