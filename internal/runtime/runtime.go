// Package runtime binds the bridge into the Risor scripting VM. Scripts get
// the bridge entry points as builtins, opaque parser and tree handles, and
// snapshots as plain Risor maps and lists.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"

	"github.com/jward/treebridge"
	"github.com/jward/treebridge/internal/store"
)

var log = commonlog.GetLogger("treebridge.runtime")

// Runtime evaluates Risor scripts against a Bridge.
type Runtime struct {
	bridge     *treebridge.Bridge
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts and resolves imports from fsys instead of
// scriptsDir.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithStore exposes store_tree and db_query to scripts.
func WithStore(s *store.Store) RuntimeOption {
	return func(r *Runtime) {
		r.store = s
	}
}

// NewRuntime creates a Runtime over b. scriptsDir is the base for relative
// script paths and imports; it may be empty.
func NewRuntime(b *treebridge.Bridge, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		bridge:     b,
		scriptsDir: scriptsDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and evaluates a script. The result is the value of the
// script's last expression converted to Go.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource evaluates Risor source directly.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) (any, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (any, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	log.Debugf("evaluating %s", label)
	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.Interface(), nil
}

// buildImporter returns an importer over the configured script source, or
// nil when there is none.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a script from the configured fs.FS, or from disk relative
// to scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs everything a script can see.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	b := r.bridge
	globals := map[string]any{
		"language_tags":              makeLanguageTagsFn(b),
		"language_supported":         makeLanguageSupportedFn(b),
		"language_queries":           makeLanguageQueriesFn(b),
		"parser_new":                 makeParserNewFn(b),
		"parser_set_language":        makeParserSetLanguageFn(b),
		"parser_set_included_ranges": makeParserSetIncludedRangesFn(b),
		"parser_parse":               makeParserParseFn(b),
		"tree_edit":                  makeTreeEditFn(b),
		"tree_root_node":             makeTreeRootNodeFn(b),
		"tree_pre_walk":              makeTreePreWalkFn(b),
		"query_matches":              makeQueryMatchesFn(b),
		"log":                        mustProxy(&logObject{log: commonlog.GetLogger("treebridge.script")}),
	}

	if r.store != nil {
		globals["store_tree"] = makeStoreTreeFn(b, r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
