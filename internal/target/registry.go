package target

import "sync"

// Registry is the process-scoped mapping TargetId -> ResolvedTarget (§4.2).
// First writer wins: a second call to Finish for an already-present Id is a
// no-op, and Lookup returns the cached node. This is the mechanism by which
// diamond dependencies collapse to a single node (§8 property 4) — two
// dependents reaching the same target through different paths both end up
// looking at the same *ResolvedTarget.
type Registry struct {
	mu      sync.Mutex
	targets map[Id]*ResolvedTarget
	order   []Id // insertion order, for a stable All() independent of map iteration
}

// New returns a fresh, empty registry. Per §9, the registry is constructed
// explicitly at the start of a resolve invocation and discarded at its end;
// there is no package-level singleton.
func New() *Registry {
	return &Registry{targets: make(map[Id]*ResolvedTarget)}
}

// Lookup returns the previously-finished target for id, if any.
func (r *Registry) Lookup(id Id) (*ResolvedTarget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.targets[id]
	return rt, ok
}

// Finish records rt as the resolved target for id. If id already has an
// entry (a concurrent or repeated resolution reached it first), the
// existing entry is kept and rt is discarded.
func (r *Registry) Finish(id Id, rt *ResolvedTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[id]; ok {
		return
	}
	r.targets[id] = rt
	r.order = append(r.order, id)
}

// All returns every finished target, in the order each was first finished.
// Callers that need a deterministic order other than insertion order (e.g.
// the resolver's topological sort) build it themselves from this slice;
// All() itself makes no ordering guarantee beyond "not map iteration order."
func (r *Registry) All() []*ResolvedTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ResolvedTarget, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.targets[id])
	}
	return out
}
