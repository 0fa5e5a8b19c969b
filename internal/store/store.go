package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"

	"github.com/jward/treebridge/internal/snapshot"
)

var log = commonlog.GetLogger("treebridge.store")

// Store persists tree snapshots and query captures in SQLite.
type Store struct {
	db *sql.DB
	ro *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled, plus a
// second read-only connection for untrusted queries.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ro, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_query_only=true&_busy_timeout=30000", dbPath))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open read-only database: %w", err)
	}
	if err := ro.Ping(); err != nil {
		ro.Close()
		db.Close()
		return nil, fmt.Errorf("ping read-only database: %w", err)
	}
	return &Store{db: db, ro: ro}, nil
}

// Close closes both connections.
func (s *Store) Close() error {
	return errors.Join(s.ro.Close(), s.db.Close())
}

// DB returns the read-write *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ReadOnlyDB returns a connection on which SQLite itself refuses writes,
// whatever the statement text.
func (s *Store) ReadOnlyDB() *sql.DB {
	return s.ro
}

// Migrate creates the trees, nodes and captures tables. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS trees (
  id          INTEGER PRIMARY KEY,
  path        TEXT NOT NULL UNIQUE,
  language    TEXT NOT NULL,
  hash        TEXT NOT NULL,
  byte_len    INTEGER NOT NULL,
  has_error   INTEGER NOT NULL,
  node_count  INTEGER NOT NULL,
  stored_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
  id          INTEGER PRIMARY KEY,
  tree_id     INTEGER NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
  ordinal     INTEGER NOT NULL,
  node_id     INTEGER NOT NULL,
  kind        TEXT NOT NULL,
  kind_id     INTEGER NOT NULL,
  is_named    INTEGER NOT NULL,
  is_extra    INTEGER NOT NULL,
  has_changes INTEGER NOT NULL,
  has_error   INTEGER NOT NULL,
  is_error    INTEGER NOT NULL,
  is_missing  INTEGER NOT NULL,
  child_count INTEGER NOT NULL,
  start_byte  INTEGER NOT NULL,
  end_byte    INTEGER NOT NULL,
  start_row   INTEGER NOT NULL,
  start_col   INTEGER NOT NULL,
  end_row     INTEGER NOT NULL,
  end_col     INTEGER NOT NULL,
  text        TEXT
);

CREATE TABLE IF NOT EXISTS captures (
  id            INTEGER PRIMARY KEY,
  tree_id       INTEGER NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
  query_name    TEXT NOT NULL,
  match_ordinal INTEGER NOT NULL,
  pattern_index INTEGER NOT NULL,
  capture_index INTEGER NOT NULL,
  capture_name  TEXT NOT NULL,
  kind          TEXT NOT NULL,
  start_byte    INTEGER NOT NULL,
  end_byte      INTEGER NOT NULL,
  start_row     INTEGER NOT NULL,
  start_col     INTEGER NOT NULL,
  end_row       INTEGER NOT NULL,
  end_col       INTEGER NOT NULL,
  text          TEXT
);

CREATE INDEX IF NOT EXISTS idx_nodes_tree ON nodes(tree_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind);
CREATE INDEX IF NOT EXISTS idx_captures_tree ON captures(tree_id, query_name);
CREATE INDEX IF NOT EXISTS idx_captures_name ON captures(capture_name);
`

// TreeByPath returns the stored tree for path, or nil if there is none.
func (s *Store) TreeByPath(path string) (*Tree, error) {
	t := &Tree{}
	err := s.db.QueryRow(
		"SELECT id, path, language, hash, byte_len, has_error, node_count, stored_at FROM trees WHERE path = ?", path,
	).Scan(&t.ID, &t.Path, &t.Language, &t.Hash, &t.ByteLen, &t.HasError, &t.NodeCount, &t.StoredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tree by path: %w", err)
	}
	return t, nil
}

// Trees returns every stored tree ordered by path.
func (s *Store) Trees() ([]*Tree, error) {
	rows, err := s.db.Query(
		"SELECT id, path, language, hash, byte_len, has_error, node_count, stored_at FROM trees ORDER BY path",
	)
	if err != nil {
		return nil, fmt.Errorf("trees: %w", err)
	}
	defer rows.Close()

	var out []*Tree
	for rows.Next() {
		t := &Tree{}
		if err := rows.Scan(&t.ID, &t.Path, &t.Language, &t.Hash, &t.ByteLen, &t.HasError, &t.NodeCount, &t.StoredAt); err != nil {
			return nil, fmt.Errorf("trees: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTree removes a tree and, by cascade, its nodes and captures.
func (s *Store) DeleteTree(treeID int64) error {
	if _, err := s.db.Exec("DELETE FROM trees WHERE id = ?", treeID); err != nil {
		return fmt.Errorf("delete tree %d: %w", treeID, err)
	}
	return nil
}

// NodesByTree returns a tree's nodes in pre-walk order.
func (s *Store) NodesByTree(treeID int64) ([]snapshot.Node, error) {
	rows, err := s.db.Query(`
		SELECT node_id, kind, kind_id, is_named, is_extra, has_changes, has_error, is_error, is_missing,
		       child_count, start_byte, end_byte, start_row, start_col, end_row, end_col, text
		FROM nodes WHERE tree_id = ? ORDER BY ordinal`, treeID)
	if err != nil {
		return nil, fmt.Errorf("nodes by tree: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Node
	for rows.Next() {
		var n snapshot.Node
		var text sql.NullString
		err := rows.Scan(&n.ID, &n.Kind, &n.KindID, &n.IsNamed, &n.IsExtra, &n.HasChanges, &n.HasError,
			&n.IsError, &n.IsMissing, &n.ChildCount,
			&n.Range.StartByte, &n.Range.EndByte,
			&n.Range.StartPoint.Row, &n.Range.StartPoint.Column,
			&n.Range.EndPoint.Row, &n.Range.EndPoint.Column, &text)
		if err != nil {
			return nil, fmt.Errorf("nodes by tree: scan: %w", err)
		}
		n.Text = nullableText(text)
		out = append(out, n)
	}
	return out, rows.Err()
}

// CapturesByTree returns a tree's captures ordered by query, match and
// capture position.
func (s *Store) CapturesByTree(treeID int64) ([]*Capture, error) {
	rows, err := s.db.Query(`
		SELECT id, tree_id, query_name, match_ordinal, pattern_index, capture_index, capture_name, kind,
		       start_byte, end_byte, start_row, start_col, end_row, end_col, text
		FROM captures WHERE tree_id = ? ORDER BY query_name, match_ordinal, id`, treeID)
	if err != nil {
		return nil, fmt.Errorf("captures by tree: %w", err)
	}
	defer rows.Close()

	var out []*Capture
	for rows.Next() {
		c := &Capture{}
		var text sql.NullString
		err := rows.Scan(&c.ID, &c.TreeID, &c.QueryName, &c.MatchOrdinal, &c.PatternIndex, &c.CaptureIndex,
			&c.CaptureName, &c.Kind,
			&c.Range.StartByte, &c.Range.EndByte,
			&c.Range.StartPoint.Row, &c.Range.StartPoint.Column,
			&c.Range.EndPoint.Row, &c.Range.EndPoint.Column, &text)
		if err != nil {
			return nil, fmt.Errorf("captures by tree: scan: %w", err)
		}
		c.Text = nullableText(text)
		out = append(out, c)
	}
	return out, rows.Err()
}

// KindCounts returns how many nodes of each kind a tree has.
func (s *Store) KindCounts(treeID int64) (map[string]int, error) {
	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM nodes WHERE tree_id = ? GROUP BY kind", treeID)
	if err != nil {
		return nil, fmt.Errorf("kind counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("kind counts: scan: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func nullableText(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
