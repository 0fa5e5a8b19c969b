package store

import (
	"time"

	"github.com/jward/treebridge/internal/snapshot"
)

// Tree is one stored parse of a file.
type Tree struct {
	ID        int64
	Path      string
	Language  string
	Hash      string
	ByteLen   int
	HasError  bool
	NodeCount int
	StoredAt  time.Time
}

// Capture is one stored query capture. Captures of the same match share
// QueryName and MatchOrdinal.
type Capture struct {
	ID           int64
	TreeID       int64
	QueryName    string
	MatchOrdinal int
	PatternIndex uint
	CaptureIndex uint32
	CaptureName  string
	Kind         string
	Range        snapshot.Range
	Text         *string
}
