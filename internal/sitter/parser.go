package sitter

import (
	"fmt"
	"runtime"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jward/treebridge/internal/grammar"
	"github.com/jward/treebridge/internal/snapshot"
)

// LanguageSource resolves grammar tags to engine descriptors.
// *grammar.Registry satisfies it.
type LanguageSource interface {
	Language(tag grammar.Tag) (*tree_sitter.Language, bool)
}

func resolve(langs LanguageSource, tag grammar.Tag) (*tree_sitter.Language, error) {
	lang, ok := langs.Language(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, tag)
	}
	return lang, nil
}

// Parser is a lock-guarded engine parser. Operations on one Parser are
// serialised; distinct parsers never contend. The engine parser is released
// by Close or, failing that, once the Parser is garbage collected.
type Parser struct {
	g       guard
	raw     *tree_sitter.Parser // nil once closed
	tag     grammar.Tag
	timeout time.Duration
	cleanup runtime.Cleanup
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithTimeout bounds how long a single Parse may run. A parse that exceeds
// it yields no tree. Zero means no bound.
func WithTimeout(d time.Duration) ParserOption {
	return func(p *Parser) {
		p.timeout = d
	}
}

// NewParser creates a parser for tag.
func NewParser(langs LanguageSource, tag grammar.Tag, opts ...ParserOption) (*Parser, error) {
	lang, err := resolve(langs, tag)
	if err != nil {
		return nil, fmt.Errorf("sitter: new parser: %w", err)
	}

	raw := tree_sitter.NewParser()
	if err := raw.SetLanguage(lang); err != nil {
		raw.Close()
		return nil, fmt.Errorf("sitter: new parser %s: %w: %v", tag, ErrLanguage, err)
	}

	p := &Parser{raw: raw, tag: tag}
	for _, opt := range opts {
		opt(p)
	}
	p.cleanup = runtime.AddCleanup(p, releaseParser, raw)
	parserKind.acquire()
	return p, nil
}

func releaseParser(raw *tree_sitter.Parser) {
	raw.Close()
	parserKind.release("cleanup")
}

// with runs fn against the engine parser while holding the lock. p is kept
// reachable until fn returns so its cleanup cannot free the engine parser
// mid-call.
func (p *Parser) with(fn func(raw *tree_sitter.Parser) error) error {
	defer runtime.KeepAlive(p)
	return p.g.do(func() error {
		if p.raw == nil {
			return ErrClosed
		}
		return fn(p.raw)
	})
}

// Tag returns the grammar currently assigned to the parser.
func (p *Parser) Tag() grammar.Tag {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	return p.tag
}

// SetLanguage reassigns the parser's grammar and resets any parse state
// left from the previous one.
func (p *Parser) SetLanguage(langs LanguageSource, tag grammar.Tag) error {
	lang, err := resolve(langs, tag)
	if err != nil {
		return fmt.Errorf("sitter: set language: %w", err)
	}
	return p.with(func(raw *tree_sitter.Parser) error {
		if err := raw.SetLanguage(lang); err != nil {
			return fmt.Errorf("sitter: set language %s: %w: %v", tag, ErrLanguage, err)
		}
		raw.Reset()
		p.tag = tag
		return nil
	})
}

// SetIncludedRanges restricts later parses to the given ordered,
// non-overlapping ranges. An empty slice restores whole-input parsing.
func (p *Parser) SetIncludedRanges(ranges []snapshot.Range) error {
	return p.with(func(raw *tree_sitter.Parser) error {
		if err := raw.SetIncludedRanges(snapshot.RangesTS(ranges)); err != nil {
			return fmt.Errorf("sitter: set included ranges: %w: %v", ErrIncludedRanges, err)
		}
		return nil
	})
}

// IncludedRanges returns the ranges set by SetIncludedRanges.
func (p *Parser) IncludedRanges() ([]snapshot.Range, error) {
	var out []snapshot.Range
	err := p.with(func(raw *tree_sitter.Parser) error {
		for _, r := range raw.IncludedRanges() {
			out = append(out, snapshot.RangeFrom(r))
		}
		return nil
	})
	return out, err
}

// Parse parses src. When old is non-nil the parse is incremental: every edit
// between old's source and src must already have been applied to old with
// Tree.Edit. That contract is not checked.
//
// A nil tree with a nil error means the engine produced no tree (timeout or
// internal limits). The old tree is locked after the parser.
func (p *Parser) Parse(src []byte, old *Tree) (*Tree, error) {
	var tree *Tree
	err := p.with(func(raw *tree_sitter.Parser) error {
		if old == nil {
			tree = p.parseLocked(raw, src, nil)
			return nil
		}
		return old.with(func(oldRaw *tree_sitter.Tree) error {
			tree = p.parseLocked(raw, src, oldRaw)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sitter: parse: %w", err)
	}
	return tree, nil
}

func (p *Parser) parseLocked(raw *tree_sitter.Parser, src []byte, old *tree_sitter.Tree) *Tree {
	length := len(src)
	read := func(i int, _ tree_sitter.Point) []byte {
		if i < length {
			return src[i:]
		}
		return []byte{}
	}

	var opts *tree_sitter.ParseOptions
	if p.timeout > 0 {
		deadline := time.Now().Add(p.timeout)
		opts = &tree_sitter.ParseOptions{
			ProgressCallback: func(tree_sitter.ParseState) bool {
				return time.Now().After(deadline)
			},
		}
	}

	t := raw.ParseWithOptions(read, old, opts)
	if t == nil {
		// A halted parse would otherwise resume on the next call.
		raw.Reset()
		log.Debugf("parse of %d bytes (%s) produced no tree", length, p.tag)
		return nil
	}
	return newTree(t, p.tag)
}

// Close releases the engine parser. It is safe to call more than once.
func (p *Parser) Close() error {
	return p.g.do(func() error {
		if p.raw == nil {
			return nil
		}
		p.cleanup.Stop()
		p.raw.Close()
		p.raw = nil
		parserKind.release("close")
		return nil
	})
}
