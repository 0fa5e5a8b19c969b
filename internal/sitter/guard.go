package sitter

import (
	"sync"
	"sync/atomic"
)

// guard is a mutex that poisons itself when a panic unwinds through a
// critical section. Once poisoned, every later acquisition fails with
// ErrLockPoisoned instead of running against possibly half-mutated engine
// state. There is no shared mode: reading an engine tree moves cursors.
type guard struct {
	mu       sync.Mutex
	poisoned atomic.Bool
}

// do runs fn with the lock held. A panic in fn poisons the guard and is
// re-raised after the lock is released.
func (g *guard) do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.poisoned.Load() {
		return ErrLockPoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			g.poisoned.Store(true)
			log.Warningf("handle lock poisoned by panic: %v", r)
			panic(r)
		}
	}()
	return fn()
}

func (g *guard) isPoisoned() bool {
	return g.poisoned.Load()
}
