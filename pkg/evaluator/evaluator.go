// Package evaluator implements the tree-walking formula evaluator.
//
// The evaluator walks a compiled expression against a per-formula [State].
// Evaluation is a total function: domain errors (division by near-zero,
// unresolved names) degrade to 0 instead of failing, and unresolved names
// are collected on a diagnostics list for the host to display.
//
// A formula is typically evaluated many times per simulation timestep, once
// per sub-iteration of the host's non-linear solver. The time-domain
// operators (integrate, diff, lag) therefore follow a two-phase discipline:
// evaluation only records pending inputs, and [State.Commit] — called by
// the host exactly once per timestep, after convergence — advances the
// committed values.
package evaluator

import "math"

// Resolver supplies externally computed values by name. Hosts back it with
// whatever owns the quantities: labeled circuit nodes, sliders, table
// cells.
type Resolver interface {
	// Resolve returns the current value of a name. During a live solve
	// this may be a mid-iteration, unconverged value.
	Resolve(name string) (float64, bool)

	// ResolveConverged returns the stable value from the last completed
	// fixed point, used for display-only evaluation.
	ResolveConverged(name string) (float64, bool)

	// ResolvePrevious returns the previous timestep's converged value,
	// consumed by the last() operator. It must not fall back to current
	// values: recurrences like H = last(H) + 1 advance exactly once per
	// timestep only because last() never sees in-progress values.
	ResolvePrevious(name string) (float64, bool)
}

// Evaluator evaluates compiled expressions. One Evaluator is shared by all
// formulas of a simulation: it carries the host-provided resolver and
// timestep, the resolution-mode switch, the unresolved-name diagnostics,
// and the re-entrancy guard. It is not safe for concurrent use.
type Evaluator struct {
	resolver     Resolver
	timeStep     float64
	useConverged bool

	unresolved     []string
	unresolvedSeen map[string]struct{}

	evaluating bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithResolver sets the named-value source.
func WithResolver(r Resolver) Option {
	return func(e *Evaluator) {
		e.resolver = r
	}
}

// WithTimeStep sets the simulation timestep read by integrate, diff and
// the register rate operators.
func WithTimeStep(dt float64) Option {
	return func(e *Evaluator) {
		e.timeStep = dt
	}
}

// WithConvergedValues selects converged-value resolution for named
// references, for display-only recomputation that must not jitter with
// sub-iterations.
func WithConvergedValues(converged bool) Option {
	return func(e *Evaluator) {
		e.useConverged = converged
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		unresolvedSeen: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetResolver replaces the named-value source.
func (e *Evaluator) SetResolver(r Resolver) {
	e.resolver = r
}

// SetTimeStep updates the simulation timestep.
func (e *Evaluator) SetTimeStep(dt float64) {
	e.timeStep = dt
}

// TimeStep returns the current timestep.
func (e *Evaluator) TimeStep() float64 {
	return e.timeStep
}

// SetConvergedValues switches between current-value and converged-value
// resolution of named references.
func (e *Evaluator) SetConvergedValues(converged bool) {
	e.useConverged = converged
}

// Unresolved returns the names that failed resolution since the last
// ClearUnresolved, in first-seen order, de-duplicated.
func (e *Evaluator) Unresolved() []string {
	out := make([]string, len(e.unresolved))
	copy(out, e.unresolved)
	return out
}

// ClearUnresolved empties the diagnostics list. Hosts call this at the
// start of each timestep.
func (e *Evaluator) ClearUnresolved() {
	e.unresolved = e.unresolved[:0]
	clear(e.unresolvedSeen)
}

func (e *Evaluator) recordUnresolved(name string) {
	if _, ok := e.unresolvedSeen[name]; ok {
		return
	}
	e.unresolvedSeen[name] = struct{}{}
	e.unresolved = append(e.unresolved, name)
}

// resolveRef looks a named reference up in the resolver, honoring the
// resolution mode. Failures degrade to 0 and are recorded on the
// diagnostics list.
func (e *Evaluator) resolveRef(name string) float64 {
	if e.resolver != nil {
		var v float64
		var ok bool
		if e.useConverged {
			v, ok = e.resolver.ResolveConverged(name)
		} else {
			v, ok = e.resolver.Resolve(name)
		}
		if ok {
			return v
		}
	}
	e.recordUnresolved(name)
	return 0
}

// resolveInitial looks up a user-registered initial value for a name,
// tried as name_init then nameinit.
func (e *Evaluator) resolveInitial(name string) (float64, bool) {
	if e.resolver == nil {
		return 0, false
	}
	if v, ok := e.resolver.Resolve(name + "_init"); ok {
		return v, true
	}
	if v, ok := e.resolver.Resolve(name + "init"); ok {
		return v, true
	}
	return 0, false
}

// nearZero is the divisor guard threshold: divisions and modulo with a
// divisor smaller than this yield 0 instead of infinity or NaN.
const nearZero = 1e-12

func guardedDiv(num, div float64) float64 {
	if math.Abs(div) < nearZero {
		return 0
	}
	return num / div
}
