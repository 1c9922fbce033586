package refpack

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultArenaSize is the number of session registries kept resident before
// least-recently-used eviction kicks in.
const DefaultArenaSize = 256

// Arena holds the per-session registries, evicting the least recently used
// session when capacity is reached. Evicted sessions are rebuilt lazily from
// the [Store] (or from scratch, receiving fresh IDs for new assignments).
type Arena struct {
	cache  *lru.Cache[string, *Registry]
	notify func(delta int)
}

// NewArena creates an arena holding at most size session registries.
func NewArena(size int) (*Arena, error) {
	if size <= 0 {
		size = DefaultArenaSize
	}
	a := &Arena{notify: func(int) {}}
	cache, err := lru.NewWithEvict(size, func(string, *Registry) { a.notify(-1) })
	if err != nil {
		return nil, fmt.Errorf("refpack: new arena: %w", err)
	}
	a.cache = cache
	return a, nil
}

// Notify registers a residency callback: +1 when a session becomes
// resident, -1 when one is evicted. Must be set before the arena is used.
func (a *Arena) Notify(fn func(delta int)) {
	if fn != nil {
		a.notify = fn
	}
}

// Session returns the registry for the given session, creating an empty one
// on first access.
func (a *Arena) Session(sessionID string) *Registry {
	if reg, ok := a.cache.Get(sessionID); ok {
		return reg
	}
	reg := NewRegistry(sessionID)
	// A racing creation for the same session may win; re-read to converge.
	if prev, ok, _ := a.cache.PeekOrAdd(sessionID, reg); ok {
		return prev
	}
	a.notify(1)
	return reg
}

// Put installs a pre-built registry, replacing any resident one. Used by the
// store warm-load path.
func (a *Arena) Put(reg *Registry) {
	known := a.cache.Contains(reg.SessionID())
	a.cache.Add(reg.SessionID(), reg)
	if !known {
		a.notify(1)
	}
}

// Len reports the number of resident session registries.
func (a *Arena) Len() int { return a.cache.Len() }
