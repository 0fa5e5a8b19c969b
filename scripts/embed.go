// Package scripts holds the Risor scripts built into the treebridge binary.
// Each script reads the globals path, language and source, and evaluates to
// a list of maps.
package scripts

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.risor
var FS embed.FS

// Names lists the embedded scripts without their extension.
func Names() []string {
	entries, _ := fs.ReadDir(FS, ".")
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".risor"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Path returns the file name of the named script within FS.
func Path(name string) string {
	return name + ".risor"
}
