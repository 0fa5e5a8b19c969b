package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/treebridge"
)

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. JSON errors go to stdout inside the envelope;
// text errors go to stderr.
func outputError(w, errw io.Writer, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(errw, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command:   command,
		Error:     err.Error(),
		ErrorKind: treebridge.ErrorKind(err),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILanguage:
		formatLanguagesText(w, v)
	case []CLIParse:
		formatParsesText(w, v)
	case []CLICapture:
		formatCapturesText(w, v)
	case []CLIDump:
		formatDumpsText(w, v)
	default:
		formatValueText(w, v)
	}
	return nil
}

func formatLanguagesText(w io.Writer, langs []CLILanguage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tSUPPORTED\tQUERIES")
	for _, l := range langs {
		fmt.Fprintf(tw, "%s\t%t\t%s\n", l.Tag, l.Supported, strings.Join(l.Queries, ","))
	}
	tw.Flush()
}

func formatParsesText(w io.Writer, parses []CLIParse) {
	for _, p := range parses {
		if p.NoTree {
			fmt.Fprintf(w, "%s (%s): no tree\n", p.File, p.Language)
			continue
		}
		root := p.Root
		status := "ok"
		if root != nil && root.HasError {
			status = "has errors"
		}
		fmt.Fprintf(w, "%s (%s): %d bytes, %d nodes, %s\n", p.File, p.Language, p.Bytes, p.NodeCount, status)
		if len(p.Nodes) > 0 {
			formatNodesText(w, p.Nodes)
		}
	}
}

func formatNodesText(w io.Writer, nodes []treebridge.Node) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSTART\tEND\tFLAGS")
	for _, n := range nodes {
		r := n.Range
		fmt.Fprintf(tw, "%s\t%d:%d\t%d:%d\t%s\n",
			n.Kind, r.StartPoint.Row, r.StartPoint.Column, r.EndPoint.Row, r.EndPoint.Column, nodeFlags(n))
	}
	tw.Flush()
}

func nodeFlags(n treebridge.Node) string {
	var flags []string
	if n.IsNamed {
		flags = append(flags, "named")
	}
	if n.IsExtra {
		flags = append(flags, "extra")
	}
	if n.IsError {
		flags = append(flags, "error")
	}
	if n.IsMissing {
		flags = append(flags, "missing")
	}
	return strings.Join(flags, ",")
}

func formatCapturesText(w io.Writer, caps []CLICapture) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tCAPTURE\tKIND\tSTART\tTEXT")
	for _, c := range caps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d:%d\t%s\n",
			c.Match, c.CaptureName, c.Kind, c.StartRow, c.StartCol, oneLine(c.Text))
	}
	tw.Flush()
}

func formatDumpsText(w io.Writer, dumps []CLIDump) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tLANGUAGE\tNODES\tCAPTURES\tSTATUS")
	for _, d := range dumps {
		status := "stored"
		if d.Skipped {
			status = "unchanged"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", d.TreeID, d.File, d.Language, d.Nodes, d.Captures, status)
	}
	tw.Flush()
}

// formatValueText prints script results: lists of maps become a table keyed
// by the union of map keys, anything else is printed as JSON.
func formatValueText(w io.Writer, v any) {
	rows, ok := v.([]any)
	if !ok {
		data, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	keySet := map[string]bool{}
	maps := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			data, _ := json.Marshal(row)
			fmt.Fprintln(w, string(data))
			continue
		}
		maps = append(maps, m)
		for k := range m {
			keySet[k] = true
		}
	}
	if len(maps) == 0 {
		return
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(keys, "\t")))
	for _, m := range maps {
		cells := make([]string, len(keys))
		for i, k := range keys {
			if val, ok := m[k]; ok && val != nil {
				cells[i] = oneLine(fmt.Sprint(val))
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
