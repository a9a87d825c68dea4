// Package interner implements the bidirectional string<->handle bijection
// shared by the node namespace and the edge-type dictionary.
package interner

import (
	"sync"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/metrics"
)

// Interner is a bidirectional, append-only mapping between strings and
// dense handles. A handle, once issued, is never reassigned to a different
// string. It is safe for concurrent use.
type Interner struct {
	mu      sync.RWMutex
	forward map[string]core.Handle
	reverse []string
}

// New returns an empty interner.
func New() *Interner {
	return &Interner{
		forward: make(map[string]core.Handle),
	}
}

// Intern returns the existing handle for s if present, otherwise appends s
// and returns the newly issued handle. O(1) average.
func (in *Interner) Intern(s string) core.Handle {
	in.mu.RLock()
	if h, ok := in.forward[s]; ok {
		in.mu.RUnlock()
		return h
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if h, ok := in.forward[s]; ok {
		return h
	}
	h := core.Handle(len(in.reverse))
	in.reverse = append(in.reverse, s)
	in.forward[s] = h
	metrics.InternerHandlesTotal.Inc()
	return h
}

// Lookup performs a forward lookup without interning s.
func (in *Interner) Lookup(s string) (core.Handle, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	h, ok := in.forward[s]
	return h, ok
}

// Resolve returns the string for a handle. It errors with
// core.ErrUnknownHandle if h is out of range.
func (in *Interner) Resolve(h core.Handle) (string, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(h) >= len(in.reverse) {
		return "", core.NewUnknownHandleError(h, len(in.reverse))
	}
	return in.reverse[h], nil
}

// Len returns the current handle count.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.reverse)
}

// Entries returns a snapshot of all interned strings in handle order. Used
// by the snapshot codec; the returned slice is a copy and safe to retain.
func (in *Interner) Entries() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]string, len(in.reverse))
	copy(out, in.reverse)
	return out
}

// LoadEntries returns a new interner holding exactly the given ordered list
// of strings, assigning handles 0..len(entries)-1 in order. Used by
// snapshot load.
func LoadEntries(entries []string) *Interner {
	in := New()
	in.reverse = make([]string, len(entries))
	copy(in.reverse, entries)
	for i, s := range in.reverse {
		in.forward[s] = core.Handle(i)
	}
	return in
}
