package sitter

import (
	"errors"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var (
	// ErrUnsupportedLanguage means the tag's grammar is not compiled in or
	// has been restricted away.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrLanguage means the engine rejected a language descriptor, usually
	// for an ABI version mismatch.
	ErrLanguage = errors.New("language error")
	// ErrIncludedRanges means included ranges were unordered or overlapping.
	ErrIncludedRanges = errors.New("included ranges error")
	// ErrQuery means query source failed to compile. The concrete error is a
	// *QueryError.
	ErrQuery = errors.New("query error")
	// ErrInvalidUTF8 means query source was not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8")
	// ErrLockPoisoned means an earlier panic happened while the handle's lock
	// was held.
	ErrLockPoisoned = errors.New("lock poisoned")
	// ErrClosed means the handle was closed.
	ErrClosed = errors.New("handle closed")
)

// QueryError carries the engine's diagnostic for a query that failed to
// compile.
type QueryError struct {
	Row     uint
	Column  uint
	Offset  uint
	Kind    string
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %s at row %d, column %d: %s", e.Kind, e.Row, e.Column, e.Message)
}

func (e *QueryError) Unwrap() error { return ErrQuery }

func queryErrorFrom(qe *tree_sitter.QueryError) *QueryError {
	return &QueryError{
		Row:     qe.Row,
		Column:  qe.Column,
		Offset:  qe.Offset,
		Kind:    queryErrorKind(qe.Kind),
		Message: qe.Message,
	}
}

func queryErrorKind(k tree_sitter.QueryErrorKind) string {
	switch k {
	case tree_sitter.QueryErrorSyntax:
		return "syntax"
	case tree_sitter.QueryErrorNodeType:
		return "node_type"
	case tree_sitter.QueryErrorField:
		return "field"
	case tree_sitter.QueryErrorCapture:
		return "capture"
	case tree_sitter.QueryErrorPredicate:
		return "predicate"
	case tree_sitter.QueryErrorStructure:
		return "structure"
	case tree_sitter.QueryErrorLanguage:
		return "language"
	default:
		return "unknown"
	}
}

// Error kind names used at host boundaries.
const (
	KindUnsupportedLanguage = "unsupported_language"
	KindLanguage            = "language_error"
	KindIncludedRanges      = "included_ranges_error"
	KindQuery               = "query_error"
	KindInvalidUTF8         = "invalid_utf8"
	KindLockPoisoned        = "lock_poisoned"
	KindClosed              = "closed"
)

// ErrorKind maps err to its host kind name, or "" for errors outside the
// bridge's vocabulary.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedLanguage):
		return KindUnsupportedLanguage
	case errors.Is(err, ErrLanguage):
		return KindLanguage
	case errors.Is(err, ErrIncludedRanges):
		return KindIncludedRanges
	case errors.Is(err, ErrQuery):
		return KindQuery
	case errors.Is(err, ErrInvalidUTF8):
		return KindInvalidUTF8
	case errors.Is(err, ErrLockPoisoned):
		return KindLockPoisoned
	case errors.Is(err, ErrClosed):
		return KindClosed
	default:
		return ""
	}
}
