// Package registry provides an in-memory named-value store backing the
// evaluator's Resolver interface.
//
// The store keeps three views of every quantity, matching what the
// evaluator's operators consume:
//
//   - current: the value as of the latest sub-iteration, possibly
//     unconverged; what plain references read during a live solve
//   - converged: the value at the last completed fixed point; what
//     references read in display mode
//   - previous: the converged value of the timestep before that; what
//     last() reads
//
// Commit snapshots current into both converged and previous, once per
// timestep, so recurrences such as H = last(H) + 1 advance exactly once
// per timestep no matter how many sub-iterations ran.
package registry

import "sync"

// Registry is a named-value store. It implements evaluator.Resolver.
// The zero value is not usable; create one with New.
type Registry struct {
	mu        sync.Mutex
	current   map[string]float64
	converged map[string]float64
	previous  map[string]float64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		current:   make(map[string]float64),
		converged: make(map[string]float64),
		previous:  make(map[string]float64),
	}
}

// Set records the current value of a name. Call it from wherever the
// quantity is produced, as often as every sub-iteration.
func (r *Registry) Set(name string, v float64) {
	r.mu.Lock()
	r.current[name] = v
	r.mu.Unlock()
}

// SetInitial registers an initial value for a name, made visible to the
// engine's name_init lookup. last() and lag() fall back to it before the
// first timestep commits.
func (r *Registry) SetInitial(name string, v float64) {
	r.Set(name+"_init", v)
}

// Resolve returns the current value of a name.
func (r *Registry) Resolve(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.current[name]
	return v, ok
}

// ResolveConverged returns the value at the last completed fixed point.
func (r *Registry) ResolveConverged(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.converged[name]
	return v, ok
}

// ResolvePrevious returns the previous timestep's converged value. There
// is deliberately no fallback to newer values.
func (r *Registry) ResolvePrevious(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.previous[name]
	return v, ok
}

// Commit snapshots the views at the end of a timestep, after the host's
// solve has converged: the current values become both the converged and
// the previous-timestep view. During the next timestep, current drifts
// with each sub-iteration while both snapshots stay at the committed
// values, which is exactly what keeps last() advancing once per timestep.
func (r *Registry) Commit() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range r.current {
		r.converged[k] = v
		r.previous[k] = v
	}
}

// Reset drops everything, as when the simulation is restarted.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.current)
	clear(r.converged)
	clear(r.previous)
}

// Names returns the names with a current value, in no particular order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.current))
	for k := range r.current {
		names = append(names, k)
	}
	return names
}
