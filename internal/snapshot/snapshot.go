// Package snapshot holds plain-data copies of engine values. Nothing in this
// package refers to engine memory, so every value can cross into a host
// runtime and outlive the tree it came from.
package snapshot

import (
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Point is a byte-based position: Column counts bytes within Row.
type Point struct {
	Row    uint `json:"row"`
	Column uint `json:"column"`
}

// Less reports whether p sorts before o in (row, column) order.
func (p Point) Less(o Point) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Column < o.Column
}

func PointFrom(p tree_sitter.Point) Point {
	return Point{Row: p.Row, Column: p.Column}
}

func (p Point) TS() tree_sitter.Point {
	return tree_sitter.Point{Row: p.Row, Column: p.Column}
}

// Range is a span of source by byte offset and by point.
type Range struct {
	StartByte  uint  `json:"start_byte"`
	EndByte    uint  `json:"end_byte"`
	StartPoint Point `json:"start_point"`
	EndPoint   Point `json:"end_point"`
}

// Valid reports whether the range is ordered in both bytes and points.
func (r Range) Valid() bool {
	return r.StartByte <= r.EndByte && !r.EndPoint.Less(r.StartPoint)
}

func RangeFrom(r tree_sitter.Range) Range {
	return Range{
		StartByte:  r.StartByte,
		EndByte:    r.EndByte,
		StartPoint: PointFrom(r.StartPoint),
		EndPoint:   PointFrom(r.EndPoint),
	}
}

func (r Range) TS() tree_sitter.Range {
	return tree_sitter.Range{
		StartByte:  r.StartByte,
		EndByte:    r.EndByte,
		StartPoint: r.StartPoint.TS(),
		EndPoint:   r.EndPoint.TS(),
	}
}

// RangesTS converts a slice of ranges for the engine.
func RangesTS(rs []Range) []tree_sitter.Range {
	out := make([]tree_sitter.Range, len(rs))
	for i, r := range rs {
		out[i] = r.TS()
	}
	return out
}

// InputEdit describes one contiguous text mutation.
type InputEdit struct {
	StartByte      uint  `json:"start_byte"`
	OldEndByte     uint  `json:"old_end_byte"`
	NewEndByte     uint  `json:"new_end_byte"`
	StartPosition  Point `json:"start_position"`
	OldEndPosition Point `json:"old_end_position"`
	NewEndPosition Point `json:"new_end_position"`
}

// Valid reports whether both end offsets are at or after the start.
func (e InputEdit) Valid() bool {
	return e.StartByte <= e.OldEndByte && e.StartByte <= e.NewEndByte
}

func EditFrom(e tree_sitter.InputEdit) InputEdit {
	return InputEdit{
		StartByte:      e.StartByte,
		OldEndByte:     e.OldEndByte,
		NewEndByte:     e.NewEndByte,
		StartPosition:  PointFrom(e.StartPosition),
		OldEndPosition: PointFrom(e.OldEndPosition),
		NewEndPosition: PointFrom(e.NewEndPosition),
	}
}

func (e InputEdit) TS() tree_sitter.InputEdit {
	return tree_sitter.InputEdit{
		StartByte:      e.StartByte,
		OldEndByte:     e.OldEndByte,
		NewEndByte:     e.NewEndByte,
		StartPosition:  e.StartPosition.TS(),
		OldEndPosition: e.OldEndPosition.TS(),
		NewEndPosition: e.NewEndPosition.TS(),
	}
}

// Node is a detached copy of one syntax node. ID is stable only within the
// tree that produced it. Text is nil when no source was supplied or the
// node's bytes are not valid UTF-8.
type Node struct {
	ID         uint64  `json:"id"`
	Text       *string `json:"text"`
	Range      Range   `json:"range"`
	Kind       string  `json:"kind"`
	KindID     uint16  `json:"kind_id"`
	IsNamed    bool    `json:"is_named"`
	IsExtra    bool    `json:"is_extra"`
	HasChanges bool    `json:"has_changes"`
	HasError   bool    `json:"has_error"`
	IsError    bool    `json:"is_error"`
	IsMissing  bool    `json:"is_missing"`
	ChildCount uint    `json:"child_count"`
}

// NodeFrom snapshots n. Pass a nil source to omit text.
func NodeFrom(n *tree_sitter.Node, source []byte) Node {
	r := RangeFrom(n.Range())
	return Node{
		ID:         uint64(n.Id()),
		Text:       sliceText(source, r.StartByte, r.EndByte),
		Range:      r,
		Kind:       n.Kind(),
		KindID:     n.KindId(),
		IsNamed:    n.IsNamed(),
		IsExtra:    n.IsExtra(),
		HasChanges: n.HasChanges(),
		HasError:   n.HasError(),
		IsError:    n.IsError(),
		IsMissing:  n.IsMissing(),
		ChildCount: n.ChildCount(),
	}
}

// sliceText returns source[start:end] as a string, or nil when the source is
// missing, the span falls outside it, or the bytes are not UTF-8.
func sliceText(source []byte, start, end uint) *string {
	if source == nil || start > end || end > uint(len(source)) {
		return nil
	}
	b := source[start:end]
	if !utf8.Valid(b) {
		return nil
	}
	s := string(b)
	return &s
}

// TextOr returns the node text or def when absent.
func (n Node) TextOr(def string) string {
	if n.Text == nil {
		return def
	}
	return *n.Text
}

// WithText returns a copy of n whose text is sliced from source under the
// same rules as NodeFrom. Existing text is replaced.
func (n Node) WithText(source []byte) Node {
	n.Text = sliceText(source, n.Range.StartByte, n.Range.EndByte)
	return n
}

// QueryCapture is one captured node of a match.
type QueryCapture struct {
	Node        Node   `json:"node"`
	Index       uint32 `json:"index"`
	CaptureName string `json:"capture_name"`
}

// QueryMatch is one match of a query pattern. Captures keep engine order.
type QueryMatch struct {
	PatternIndex uint           `json:"pattern_index"`
	Captures     []QueryCapture `json:"captures"`
}

// CaptureFrom snapshots c. names is the query's capture-name table.
func CaptureFrom(c *tree_sitter.QueryCapture, names []string, source []byte) QueryCapture {
	var name string
	if int(c.Index) < len(names) {
		name = names[c.Index]
	}
	return QueryCapture{
		Node:        NodeFrom(&c.Node, source),
		Index:       c.Index,
		CaptureName: name,
	}
}

// MatchFrom snapshots m and all of its captures.
func MatchFrom(m *tree_sitter.QueryMatch, names []string, source []byte) QueryMatch {
	caps := make([]QueryCapture, 0, len(m.Captures))
	for i := range m.Captures {
		caps = append(caps, CaptureFrom(&m.Captures[i], names, source))
	}
	return QueryMatch{PatternIndex: m.PatternIndex, Captures: caps}
}
