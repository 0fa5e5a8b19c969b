package treebridge

import (
	"errors"

	"github.com/jward/treebridge/internal/grammar"
	"github.com/jward/treebridge/internal/sched"
	"github.com/jward/treebridge/internal/sitter"
	"github.com/jward/treebridge/internal/snapshot"
)

// Public aliases for the internal handle and value types. External callers
// use these names; no conversion is needed.

type Tag = grammar.Tag
type Query = grammar.Query
type Parser = sitter.Parser
type Tree = sitter.Tree
type QueryError = sitter.QueryError
type ResourceStats = sitter.ResourceStats
type Point = snapshot.Point
type Range = snapshot.Range
type InputEdit = snapshot.InputEdit
type Node = snapshot.Node
type QueryCapture = snapshot.QueryCapture
type QueryMatch = snapshot.QueryMatch

const (
	CSS              = grammar.CSS
	Elixir           = grammar.Elixir
	EmbeddedTemplate = grammar.EmbeddedTemplate
	Erlang           = grammar.Erlang
	Gleam            = grammar.Gleam
	HTML             = grammar.HTML
	JavaScript       = grammar.JavaScript
	SQL              = grammar.SQL
	TypeScript       = grammar.TypeScript
)

var (
	ErrUnsupportedLanguage = sitter.ErrUnsupportedLanguage
	ErrLanguage            = sitter.ErrLanguage
	ErrIncludedRanges      = sitter.ErrIncludedRanges
	ErrQuery               = sitter.ErrQuery
	ErrInvalidUTF8         = sitter.ErrInvalidUTF8
	ErrLockPoisoned        = sitter.ErrLockPoisoned
	ErrClosed              = sitter.ErrClosed
	ErrPanic               = sched.ErrPanic
)

// Tags returns every grammar tag, supported or not.
func Tags() []Tag { return grammar.Tags() }

// ErrorKind maps err to a stable kind name for hosts: one of
// unsupported_language, language_error, included_ranges_error, query_error,
// invalid_utf8, lock_poisoned or closed. Anything else maps to "".
func ErrorKind(err error) string {
	if k := sitter.ErrorKind(err); k != "" {
		return k
	}
	if errors.Is(err, sched.ErrClosed) {
		return sitter.KindClosed
	}
	return ""
}
