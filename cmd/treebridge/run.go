package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/treebridge/internal/runtime"
	"github.com/jward/treebridge/scripts"
)

var (
	flagBuiltin    string
	flagInput      string
	flagScriptArgs []string
)

var runCmd = &cobra.Command{
	Use:   "run [SCRIPT]",
	Short: "Run a Risor script against the bridge",
	Long: "Evaluates a Risor script file, or a built-in script chosen with --builtin. " +
		"With --file, the globals path, language and source describe that file. " +
		"With --db, the script can also call store_tree and db_query.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagBuiltin, "builtin", "", "built-in script name ("+strings.Join(scripts.Names(), ", ")+")")
	runCmd.Flags().StringVar(&flagInput, "file", "", "source file exposed to the script as path, language and source")
	runCmd.Flags().StringVar(&flagLang, "lang", "", "grammar for --file (default: by extension)")
	runCmd.Flags().StringArrayVar(&flagScriptArgs, "arg", nil, "extra string global as key=value (repeatable)")
	runCmd.Flags().StringVar(&flagDB, "db", "", "database exposed through store_tree and db_query (relative to repo root)")
}

// scriptGlobals builds the extra globals for a script run.
func scriptGlobals(input, lang string, kvs []string) (map[string]any, error) {
	globals := map[string]any{}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", kv)
		}
		globals[k] = v
	}
	if input == "" {
		return globals, nil
	}

	tag, err := resolveTag(input, lang)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", input, err)
	}
	globals["path"] = input
	globals["language"] = tag.String()
	globals["source"] = string(src)
	return globals, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	fail := func(err error) error {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), "run", err)
	}

	if (len(args) == 0) == (flagBuiltin == "") {
		return fail(fmt.Errorf("give exactly one of SCRIPT or --builtin"))
	}
	if flagBuiltin != "" && !slices.Contains(scripts.Names(), flagBuiltin) {
		return fail(fmt.Errorf("unknown builtin %q (have %s)", flagBuiltin, strings.Join(scripts.Names(), ", ")))
	}

	globals, err := scriptGlobals(flagInput, flagLang, flagScriptArgs)
	if err != nil {
		return fail(err)
	}

	b, err := newBridge()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	var opts []runtime.RuntimeOption
	if flagDB != "" {
		dbPath, err := storePath(flagDB)
		if err != nil {
			return fail(err)
		}
		s, err := openStore(dbPath)
		if err != nil {
			return fail(err)
		}
		defer s.Close()
		opts = append(opts, runtime.WithStore(s))
	}

	var (
		rt     *runtime.Runtime
		script string
	)
	if flagBuiltin != "" {
		opts = append(opts, runtime.WithRuntimeFS(scripts.FS))
		rt = runtime.NewRuntime(b, "", opts...)
		script = scripts.Path(flagBuiltin)
	} else {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fail(err)
		}
		rt = runtime.NewRuntime(b, filepath.Dir(abs), opts...)
		script = abs
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := rt.RunScript(ctx, script, globals)
	if err != nil {
		return fail(err)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "run", Results: result})
}
