package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jward/treebridge"
	"github.com/jward/treebridge/internal/grammar"
)

var (
	flagFormat       string
	flagLanguages    string
	flagWorkers      int
	flagParseTimeout time.Duration
	flagVerbose      int
	flagLogFile      string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "treebridge",
	Short:         "Parse, query and script source trees with tree-sitter",
	Long:          "treebridge parses source files with tree-sitter grammars, runs tree-sitter queries over them, stores snapshots in SQLite and exposes the same operations to Risor scripts.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		configureLogging()
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagFormat, "format", "json", "output format: json|text")
	pf.StringVar(&flagLanguages, "languages", "", "comma-separated grammar filter (e.g. javascript,css)")
	pf.IntVar(&flagWorkers, "workers", 0, "heavy-work pool size (default: GOMAXPROCS)")
	pf.DurationVar(&flagParseTimeout, "parse-timeout", 0, "abandon a single parse after this long (0 = no limit)")
	pf.CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (repeatable)")
	pf.StringVar(&flagLogFile, "log", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(runCmd)
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be json or text", format)
	}
}

func configureLogging() {
	if flagLogFile != "" {
		commonlog.Configure(flagVerbose, &flagLogFile)
		return
	}
	commonlog.Configure(flagVerbose, nil)
}

// parseLanguages splits the --languages flag into grammar tags, rejecting
// names that are not known grammars.
func parseLanguages(s string) ([]treebridge.Tag, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var tags []treebridge.Tag
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, ok := grammar.ParseTag(name)
		if !ok {
			return nil, fmt.Errorf("unknown language %q", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// newBridge builds a Bridge from the global flags.
func newBridge() (*treebridge.Bridge, error) {
	tags, err := parseLanguages(flagLanguages)
	if err != nil {
		return nil, err
	}
	var opts []treebridge.Option
	if len(tags) > 0 {
		opts = append(opts, treebridge.WithLanguages(tags...))
	}
	if flagWorkers > 0 {
		opts = append(opts, treebridge.WithWorkers(flagWorkers))
	}
	if flagParseTimeout > 0 {
		opts = append(opts, treebridge.WithParseTimeout(flagParseTimeout))
	}
	return treebridge.New(opts...), nil
}

// resolveTag picks the grammar for path: the explicit --lang value when set,
// otherwise the file extension.
func resolveTag(path, lang string) (treebridge.Tag, error) {
	if lang != "" {
		tag, ok := grammar.ParseTag(lang)
		if !ok {
			return "", fmt.Errorf("unknown language %q", lang)
		}
		return tag, nil
	}
	tag, ok := grammar.TagForFile(path)
	if !ok {
		return "", fmt.Errorf("cannot infer language for %s (use --lang)", path)
	}
	return tag, nil
}
