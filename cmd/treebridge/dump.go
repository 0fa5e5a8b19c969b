package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/jward/treebridge"
	"github.com/jward/treebridge/internal/store"
)

var (
	flagDB    string
	flagForce bool
)

var log = commonlog.GetLogger("treebridge.cli")

var dumpCmd = &cobra.Command{
	Use:   "dump FILE...",
	Short: "Store syntax trees and canned-query captures in SQLite",
	Long:  "Parses each file, collects its pre-walk and the captures of every canned query for its grammar, and writes them to the database in one transaction. A file already in the database is replaced.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&flagDB, "db", "", "database path (default: .treebridge/trees.db relative to repo root)")
	dumpCmd.Flags().StringVar(&flagLang, "lang", "", "grammar to use for every file (default: by extension)")
	dumpCmd.Flags().BoolVar(&flagForce, "force", false, "re-store files even when their content is unchanged")
}

func runDump(cmd *cobra.Command, args []string) error {
	fail := func(err error) error {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), "dump", err)
	}

	dbPath, err := storePath(flagDB)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fail(fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
	}

	s, err := openStore(dbPath)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	b, err := newBridge()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	dumps, err := dumpFiles(ctx, b, s, args, flagLang, flagForce)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Database: %s\n", dbPath)
	total := len(dumps)
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "dump", Results: dumps, TotalCount: &total})
}

// dumpFiles skips files whose content hash matches their stored tree unless
// force is set. The rest are parsed and collected concurrently, then
// committed in one transaction.
func dumpFiles(ctx context.Context, b *treebridge.Bridge, s *store.Store, paths []string, lang string, force bool) ([]CLIDump, error) {
	type pending struct {
		path string
		tag  treebridge.Tag
		src  []byte
	}

	var (
		work  []pending
		dumps []CLIDump
		seen  = make(map[string]bool, len(paths))
	)
	for _, path := range paths {
		key := filepath.Clean(path)
		if seen[key] {
			continue
		}
		seen[key] = true
		tag, src, err := readSource(path, lang)
		if err != nil {
			return nil, err
		}
		if !force {
			prev, err := s.TreeByPath(path)
			if err != nil {
				return nil, err
			}
			if prev != nil && prev.Hash == store.ContentHash(src) {
				log.Debugf("%s unchanged, skipping", path)
				dumps = append(dumps, CLIDump{File: path, Language: prev.Language, TreeID: prev.ID, Nodes: prev.NodeCount, HasError: prev.HasError, Skipped: true})
				continue
			}
		}
		work = append(work, pending{path: path, tag: tag, src: src})
	}

	batches := make([]*store.Batch, len(work))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range work {
		g.Go(func() error {
			f, err := parseSource(gctx, b, w.path, w.tag, w.src)
			if err != nil {
				return err
			}
			defer f.Close()
			if f.tree == nil {
				return fmt.Errorf("%s: parser produced no tree", w.path)
			}
			batch, err := store.Collect(gctx, b, w.path, f.tree, f.src)
			if err != nil {
				return err
			}
			batches[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return dumps, nil
	}

	ids, err := s.CommitBatch(batches...)
	if err != nil {
		return nil, err
	}
	for i, batch := range batches {
		dumps = append(dumps, CLIDump{
			File:     batch.Tree.Path,
			Language: batch.Tree.Language,
			TreeID:   ids[i],
			Nodes:    len(batch.Nodes),
			Captures: batch.CaptureCount(),
			HasError: batch.Tree.HasError,
		})
	}
	return dumps, nil
}

// openStore opens the database at dbPath and brings its schema up to date.
func openStore(dbPath string) (*store.Store, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path for the --db value, relative to
// repoRoot, or the default when the value is empty.
func resolveDBPath(repoRoot, db string) string {
	if db != "" {
		if filepath.IsAbs(db) {
			return db
		}
		return filepath.Join(repoRoot, db)
	}
	return filepath.Join(repoRoot, ".treebridge", "trees.db")
}

// storePath resolves a --db value against the repo containing the working
// directory. Every command that opens the store goes through it.
func storePath(db string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return resolveDBPath(findRepoRoot(cwd), db), nil
}
