package sitter

import (
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("treebridge.sitter")

// resourceKind counts handles of one kind over the life of the process.
type resourceKind struct {
	name     string
	created  atomic.Int64
	released atomic.Int64
}

func (k *resourceKind) acquire() {
	k.created.Add(1)
}

func (k *resourceKind) release(via string) {
	k.released.Add(1)
	log.Debugf("%s released by %s", k.name, via)
}

// Both kinds are registered at package initialisation so that stats exist
// before the first handle is made.
var (
	parserKind = &resourceKind{name: "parser"}
	treeKind   = &resourceKind{name: "tree"}
)

// ResourceStats is a point-in-time view of one resource kind.
type ResourceStats struct {
	Kind     string `json:"kind"`
	Created  int64  `json:"created"`
	Released int64  `json:"released"`
	Live     int64  `json:"live"`
}

func (k *resourceKind) stats() ResourceStats {
	released := k.released.Load()
	created := k.created.Load()
	return ResourceStats{Kind: k.name, Created: created, Released: released, Live: created - released}
}

// Stats reports counters for the parser and tree resource kinds.
func Stats() []ResourceStats {
	return []ResourceStats{parserKind.stats(), treeKind.stats()}
}
