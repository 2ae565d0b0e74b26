// Package formula is a small expression language for time-domain formulas
// inside a simulation host.
//
// A formula is compiled once into a syntax tree and re-evaluated every
// solver sub-iteration against a per-instance mutable state. Beyond plain
// arithmetic and the usual math functions, the language carries stateful
// time-domain operators — running integral, discrete derivative, delayed
// values, previous committed value — that follow a two-phase discipline:
// evaluations record pending inputs, and a once-per-timestep commit
// advances the settled state.
//
// # Quick start
//
//	expr, err := formula.Compile("integrate(sin(t))")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ev := evaluator.New(evaluator.WithTimeStep(0.01))
//	st := evaluator.NewState(expr.LagSlots())
//	for step := 0; step < 100; step++ {
//	    st.T = float64(step) * 0.01
//	    v := ev.Eval(expr, st) // once per sub-iteration
//	    st.Commit(0.01)        // once per timestep, after convergence
//	    _ = v
//	}
//
// # Analysis
//
// Hosts can classify a compiled formula before choosing how to stamp it
// into their system: [IsConstant] (fold once, never re-evaluate),
// [Alias] (a bare rename, no solver row), and [LinearTerms] (a weighted
// sum of references, stamped as a linear element).
package formula

import (
	"fmt"

	"github.com/sfcsim/formula/pkg/analysis"
	"github.com/sfcsim/formula/pkg/parser"
	"github.com/sfcsim/formula/pkg/types"
)

// Version returns the current version of the module.
func Version() string {
	return "v0.1.0-dev"
}

// Compile compiles a formula for repeated evaluation.
//
// The compiled expression is immutable and can outlive any number of
// evaluations; all mutable state lives in the evaluator's State. A compile
// error means the expression is unusable: hosts show the message and fall
// back to a neutral stamping strategy.
func Compile(text string, opts ...parser.CompileOption) (*types.Expression, error) {
	return parser.Compile(text, opts...)
}

// MustCompile is like Compile but panics if the formula cannot be
// compiled. It simplifies safe initialization of global variables.
func MustCompile(text string) *types.Expression {
	expr, err := Compile(text)
	if err != nil {
		panic(fmt.Sprintf("formula: Compile(%q): %v", text, err))
	}
	return expr
}

// IsConstant reports whether the formula folds to a constant.
func IsConstant(expr *types.Expression) bool {
	return analysis.IsConstant(expr)
}

// Alias reports whether the formula is a bare named reference.
func Alias(expr *types.Expression) (string, bool) {
	return analysis.Alias(expr)
}

// LinearTerms expresses the formula as a weighted sum of named references
// plus a constant, if it is linear.
func LinearTerms(expr *types.Expression) (map[string]float64, float64, bool) {
	return analysis.LinearTerms(expr)
}
