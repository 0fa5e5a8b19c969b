package treebridge

import (
	"context"
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/jward/treebridge/internal/grammar"
	"github.com/jward/treebridge/internal/sched"
	"github.com/jward/treebridge/internal/sitter"
)

// Bridge is the host-facing surface over the engine. Entry points that only
// consult the registry or touch a handle briefly run on the caller's
// goroutine; parse, edit, walk and query run on the bridge's worker pool.
type Bridge struct {
	registry *grammar.Registry
	pool     *sched.Pool
	workers  int
	timeout  time.Duration
	log      commonlog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLanguages restricts the bridge to the given grammars. Other tags behave
// as though they had been compiled out.
func WithLanguages(tags ...Tag) Option {
	return func(b *Bridge) {
		b.registry = b.registry.Restrict(tags...)
	}
}

// WithRegistry replaces the grammar registry. Options after it still apply.
func WithRegistry(r *grammar.Registry) Option {
	return func(b *Bridge) {
		b.registry = r
	}
}

// WithWorkers sets the size of the heavy-work pool. The default is
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *Bridge) {
		b.workers = n
	}
}

// WithParseTimeout bounds each parse made with parsers from this bridge. A
// parse that runs out of time yields no tree.
func WithParseTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// WithLogger replaces the bridge's logger.
func WithLogger(l commonlog.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

// New creates a Bridge and starts its worker pool. Close stops the pool.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		registry: grammar.Default(),
		log:      commonlog.GetLogger("treebridge.bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pool = sched.New(b.workers)
	b.log.Debugf("bridge ready: %d workers, languages %v", b.pool.Workers(), b.registry.SupportedTags())
	return b
}

// Close stops the worker pool once in-flight calls finish. Handles stay
// usable for the inline entry points; heavy calls fail with ErrClosed.
func (b *Bridge) Close() error {
	return b.pool.Close()
}

// Registry returns the grammar registry the bridge resolves tags against.
func (b *Bridge) Registry() *grammar.Registry {
	return b.registry
}

// Stats reports created, released and live counts per resource kind.
func (b *Bridge) Stats() []ResourceStats {
	return sitter.Stats()
}

// LanguageSupported reports whether tag's grammar is available.
func (b *Bridge) LanguageSupported(tag Tag) bool {
	return b.registry.Supported(tag)
}

// LanguageQueries returns tag's canned queries keyed by name. It is empty for
// unsupported tags.
func (b *Bridge) LanguageQueries(tag Tag) map[string]string {
	qs := b.registry.Queries(tag)
	out := make(map[string]string, len(qs))
	for _, q := range qs {
		out[q.Name] = q.Source
	}
	return out
}

// LanguageQueryList is LanguageQueries in registration order.
func (b *Bridge) LanguageQueryList(tag Tag) []Query {
	return b.registry.Queries(tag)
}

// ParserNew creates a parser handle for tag.
func (b *Bridge) ParserNew(tag Tag) (*Parser, error) {
	var opts []sitter.ParserOption
	if b.timeout > 0 {
		opts = append(opts, sitter.WithTimeout(b.timeout))
	}
	p, err := sitter.NewParser(b.registry, tag, opts...)
	if err != nil {
		return nil, fmt.Errorf("treebridge: parser_new: %w", err)
	}
	return p, nil
}

// ParserSetLanguage reassigns p's grammar.
func (b *Bridge) ParserSetLanguage(p *Parser, tag Tag) error {
	if err := p.SetLanguage(b.registry, tag); err != nil {
		return fmt.Errorf("treebridge: parser_set_language: %w", err)
	}
	return nil
}

// ParserSetIncludedRanges restricts p's later parses to ranges. An empty
// list restores whole-input parsing.
func (b *Bridge) ParserSetIncludedRanges(p *Parser, ranges []Range) error {
	if err := p.SetIncludedRanges(ranges); err != nil {
		return fmt.Errorf("treebridge: parser_set_included_ranges: %w", err)
	}
	return nil
}

// ParserParse parses src with p, incrementally when old is non-nil. Every
// edit between old's source and src must already be applied with TreeEdit.
// A nil tree with a nil error means the engine produced no tree.
func (b *Bridge) ParserParse(ctx context.Context, p *Parser, src []byte, old *Tree) (*Tree, error) {
	tree, err := sched.Run(ctx, b.pool, "parser_parse", func() (*Tree, error) {
		return p.Parse(src, old)
	})
	if err != nil {
		return nil, fmt.Errorf("treebridge: parser_parse: %w", err)
	}
	return tree, nil
}

// TreeEdit applies one text edit to t in place.
func (b *Bridge) TreeEdit(ctx context.Context, t *Tree, edit InputEdit) error {
	err := b.pool.Heavy(ctx, "tree_edit", func() error {
		return t.Edit(edit)
	})
	if err != nil {
		return fmt.Errorf("treebridge: tree_edit: %w", err)
	}
	return nil
}

// TreeRootNode snapshots t's root node, without text.
func (b *Bridge) TreeRootNode(ctx context.Context, t *Tree) (Node, error) {
	n, err := sched.Run(ctx, b.pool, "tree_root_node", t.RootNode)
	if err != nil {
		return Node{}, fmt.Errorf("treebridge: tree_root_node: %w", err)
	}
	return n, nil
}

// TreePreWalk snapshots every node of t in pre-order, without text.
func (b *Bridge) TreePreWalk(ctx context.Context, t *Tree) ([]Node, error) {
	nodes, err := sched.Run(ctx, b.pool, "tree_pre_walk", t.PreWalk)
	if err != nil {
		return nil, fmt.Errorf("treebridge: tree_pre_walk: %w", err)
	}
	return nodes, nil
}

// QueryMatches compiles query for tag and runs it over t. Capture text is
// sliced from source, which should be the bytes t was parsed from.
func (b *Bridge) QueryMatches(ctx context.Context, t *Tree, tag Tag, query, source []byte) ([]QueryMatch, error) {
	matches, err := sched.Run(ctx, b.pool, "query_matches", func() ([]QueryMatch, error) {
		return sitter.QueryMatches(b.registry, t, tag, query, source)
	})
	if err != nil {
		return nil, fmt.Errorf("treebridge: query_matches: %w", err)
	}
	return matches, nil
}
