package main

import "github.com/jward/treebridge"

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
}

// CLILanguage describes one grammar and its canned queries.
type CLILanguage struct {
	Tag       string   `json:"tag"`
	Supported bool     `json:"supported"`
	Queries   []string `json:"queries"`
}

// CLIParse is the outcome of parsing one file.
type CLIParse struct {
	File      string            `json:"file"`
	Language  string            `json:"language"`
	Bytes     int               `json:"bytes"`
	NoTree    bool              `json:"no_tree,omitempty"`
	Root      *treebridge.Node  `json:"root,omitempty"`
	Nodes     []treebridge.Node `json:"nodes,omitempty"`
	NodeCount int               `json:"node_count"`
}

// CLICapture flattens one capture of one match.
type CLICapture struct {
	Match       int    `json:"match"`
	Pattern     uint   `json:"pattern"`
	CaptureName string `json:"capture_name"`
	Kind        string `json:"kind"`
	StartRow    uint   `json:"start_row"`
	StartCol    uint   `json:"start_col"`
	EndRow      uint   `json:"end_row"`
	EndCol      uint   `json:"end_col"`
	Text        string `json:"text"`
}

// CLIDump reports one file written to the database.
type CLIDump struct {
	File     string `json:"file"`
	Language string `json:"language"`
	TreeID   int64  `json:"tree_id"`
	Nodes    int    `json:"nodes"`
	Captures int    `json:"captures"`
	HasError bool   `json:"has_error"`
	Skipped  bool   `json:"skipped,omitempty"`
}

func capturesFromMatches(matches []treebridge.QueryMatch) []CLICapture {
	out := []CLICapture{}
	for i, m := range matches {
		for _, c := range m.Captures {
			r := c.Node.Range
			out = append(out, CLICapture{
				Match:       i,
				Pattern:     m.PatternIndex,
				CaptureName: c.CaptureName,
				Kind:        c.Node.Kind,
				StartRow:    r.StartPoint.Row,
				StartCol:    r.StartPoint.Column,
				EndRow:      r.EndPoint.Row,
				EndCol:      r.EndPoint.Column,
				Text:        c.Node.TextOr(""),
			})
		}
	}
	return out
}
