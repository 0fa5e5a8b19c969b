package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jward/treebridge"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List available grammars and their canned queries",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

func runLanguages(cmd *cobra.Command, args []string) error {
	b, err := newBridge()
	if err != nil {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), "languages", err)
	}
	defer b.Close()

	langs := []CLILanguage{}
	for _, tag := range treebridge.Tags() {
		names := []string{}
		for _, q := range b.LanguageQueryList(tag) {
			names = append(names, q.Name)
		}
		langs = append(langs, CLILanguage{Tag: tag.String(), Supported: b.LanguageSupported(tag), Queries: names})
	}
	total := len(langs)
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "languages", Results: langs, TotalCount: &total})
}

var (
	flagLang string
	flagWalk bool
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse files and report their syntax trees",
	Long:  "Parses each file with the grammar inferred from its extension (or --lang). Files are parsed concurrently on the bridge's worker pool.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&flagLang, "lang", "", "grammar to use for every file (default: by extension)")
	parseCmd.Flags().BoolVar(&flagWalk, "walk", false, "include every node in pre-order")
}

// parsedFile is a file that made it through the parser. tree is nil when
// the engine produced no tree.
type parsedFile struct {
	path string
	tag  treebridge.Tag
	src  []byte
	tree *treebridge.Tree
}

func (f *parsedFile) Close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

// readSource resolves path's grammar and reads its bytes.
func readSource(path, lang string) (treebridge.Tag, []byte, error) {
	tag, err := resolveTag(path, lang)
	if err != nil {
		return "", nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return tag, src, nil
}

// parseFile reads and parses one file with a fresh parser.
func parseFile(ctx context.Context, b *treebridge.Bridge, path, lang string) (*parsedFile, error) {
	tag, src, err := readSource(path, lang)
	if err != nil {
		return nil, err
	}
	return parseSource(ctx, b, path, tag, src)
}

func parseSource(ctx context.Context, b *treebridge.Bridge, path string, tag treebridge.Tag, src []byte) (*parsedFile, error) {
	p, err := b.ParserNew(tag)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	tree, err := b.ParserParse(ctx, p, src, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &parsedFile{path: path, tag: tag, src: src, tree: tree}, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	b, err := newBridge()
	if err != nil {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), "parse", err)
	}
	defer b.Close()

	results, err := parseAll(cmd.Context(), b, args, flagLang, flagWalk)
	if err != nil {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), "parse", err)
	}
	total := len(results)
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "parse", Results: results, TotalCount: &total})
}

// parseAll parses paths concurrently. Results keep the order of paths.
func parseAll(ctx context.Context, b *treebridge.Bridge, paths []string, lang string, walk bool) ([]CLIParse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]CLIParse, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := parseFile(gctx, b, path, lang)
			if err != nil {
				return err
			}
			defer f.Close()

			res := CLIParse{File: path, Language: f.tag.String(), Bytes: len(f.src)}
			if f.tree == nil {
				res.NoTree = true
				results[i] = res
				return nil
			}

			root, err := b.TreeRootNode(gctx, f.tree)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			nodes, err := b.TreePreWalk(gctx, f.tree)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			res.Root = &root
			res.NodeCount = len(nodes)
			if walk {
				for j := range nodes {
					if nodes[j].ChildCount == 0 {
						nodes[j] = nodes[j].WithText(f.src)
					}
				}
				res.Nodes = nodes
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

var (
	flagQueryName string
	flagQuery     string
	flagQueryFile string
)

var queryCmd = &cobra.Command{
	Use:   "query FILE",
	Short: "Run a tree-sitter query over a file",
	Long:  "Runs a canned query (--name), inline query text (--query) or a query file (--query-file) over FILE and lists every capture.",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&flagLang, "lang", "", "grammar to use (default: by extension)")
	queryCmd.Flags().StringVar(&flagQueryName, "name", "", "canned query name (e.g. tags, highlights)")
	queryCmd.Flags().StringVar(&flagQuery, "query", "", "inline query source")
	queryCmd.Flags().StringVar(&flagQueryFile, "query-file", "", "read query source from a file")
	queryCmd.MarkFlagsMutuallyExclusive("name", "query", "query-file")
	queryCmd.MarkFlagsOneRequired("name", "query", "query-file")
}

// querySource resolves the query flags to query text for tag.
func querySource(b *treebridge.Bridge, tag treebridge.Tag, name, inline, file string) ([]byte, error) {
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading query file: %w", err)
		}
		return data, nil
	default:
		src, ok := b.LanguageQueries(tag)[name]
		if !ok {
			return nil, fmt.Errorf("no %q query for %s", name, tag)
		}
		return []byte(src), nil
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	fail := func(err error) error {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), "query", err)
	}

	b, err := newBridge()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := parseFile(ctx, b, args[0], flagLang)
	if err != nil {
		return fail(err)
	}
	defer f.Close()
	if f.tree == nil {
		return fail(fmt.Errorf("%s: parser produced no tree", args[0]))
	}

	q, err := querySource(b, f.tag, flagQueryName, flagQuery, flagQueryFile)
	if err != nil {
		return fail(err)
	}
	matches, err := b.QueryMatches(ctx, f.tree, f.tag, q, f.src)
	if err != nil {
		return fail(err)
	}

	caps := capturesFromMatches(matches)
	total := len(matches)
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "query", Results: caps, TotalCount: &total})
}
